// Command keyagree is a demonstration CLI for the Cycle engine. Its
// "demo" subcommand boots several in-process participants wired to each
// other over an in-memory bus and drives them through a full key
// agreement, printing every step transition as it happens. Its "join"
// subcommand instead joins a single participant to a real relt group, for
// exercising the engine against an actual network.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/jabolina/go-keyagree/crypto/bd"
	"github.com/jabolina/go-keyagree/pkg/keyagree"
	"github.com/jabolina/go-keyagree/pkg/keyagree/definition"
	"github.com/jabolina/go-keyagree/pkg/keyagree/types"
	reltTransport "github.com/jabolina/go-keyagree/transport/relt"
)

var (
	app = kingpin.New("keyagree", "Drive the Cycle engine from the command line.")

	demoCmd   = app.Command("demo", "Run N in-process participants over an in-memory bus.")
	demoCount = demoCmd.Flag("participants", "Number of participants in the demo roster.").Default("4").Int()
	demoDebug = demoCmd.Flag("debug", "Enable debug logging on every participant.").Bool()

	joinCmd   = app.Command("join", "Join one participant to a real relt group.")
	joinID    = joinCmd.Flag("id", "This participant's numeric id.").Required().Uint64()
	joinGroup = joinCmd.Flag("group", "The relt exchange name shared by every participant.").Required().String()
	joinPeers = joinCmd.Flag("peer", "A peer id already in the roster. Repeatable.").Uint64List()
)

func main() {
	out := colorable.NewColorableStdout()
	color.Output = out

	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case demoCmd.FullCommand():
		runDemo(*demoCount, *demoDebug)
	case joinCmd.FullCommand():
		runJoin(types.ParticipantID(*joinID), *joinGroup, *joinPeers)
	}
}

// bus is a minimal in-memory broadcast medium for the demo subcommand. It
// is deliberately simpler than testsupport.Network: the demo only needs
// fan-out and FIFO queues, not delivery-order scheduling hooks.
type bus struct {
	recipients []types.ParticipantID
	inbox      map[types.ParticipantID][]types.InboundMessage
}

func newBus() *bus {
	return &bus{inbox: make(map[types.ParticipantID][]types.InboundMessage)}
}

type busSink struct {
	from types.ParticipantID
	b    *bus
}

func (s *busSink) Send(msg types.OutboundMessage) error {
	for _, r := range s.b.recipients {
		if r == s.from {
			continue
		}
		s.b.inbox[r] = append(s.b.inbox[r], types.InboundMessage{
			Initiator:       msg.Initiator,
			Type:            msg.Type,
			Payload:         msg.Payload,
			SenderID:        s.from,
			ProtocolVersion: msg.ProtocolVersion,
		})
	}
	return nil
}

func (b *bus) register(id types.ParticipantID) *busSink {
	b.recipients = append(b.recipients, id)
	return &busSink{from: id, b: b}
}

func (b *bus) hasPending() bool {
	for _, q := range b.inbox {
		if len(q) > 0 {
			return true
		}
	}
	return false
}

func runDemo(count int, debug bool) {
	if count < 2 {
		fmt.Fprintln(os.Stderr, color.RedString("demo requires at least two participants"))
		os.Exit(1)
	}

	ids := make([]types.ParticipantID, count)
	for i := range ids {
		ids[i] = types.ParticipantID(i + 1)
	}

	b := newBus()
	engines := make(map[types.ParticipantID]*keyagree.Engine)
	ctx := context.Background()

	for _, id := range ids {
		id := id
		logger := definition.NewDefaultLogger()
		logger.ToggleDebug(debug)
		sink := b.register(id)
		e, err := keyagree.New(keyagree.Config{
			Crypto: bd.NewSuite(),
			Sink:   sink,
			Logger: logger,
			OnStepChange: func(s types.Step) {
				fmt.Printf("%s participant %d -> %s\n", color.CyanString("[step]"), id, s)
			},
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("building participant %d: %v", id, err))
			os.Exit(1)
		}
		e.SetMyID(id)
		engines[id] = e
	}

	for _, self := range ids {
		for _, other := range ids {
			if self == other {
				continue
			}
			if err := engines[self].AddMember(ctx, other); err != nil {
				fmt.Fprintln(os.Stderr, color.RedString("%d.AddMember(%d): %v", self, other, err))
				os.Exit(1)
			}
		}
	}

	initiator := ids[0]
	for _, id := range ids {
		if engines[id].IsInitiator() {
			initiator = id
			break
		}
	}
	fmt.Printf("%s participant %d starts the cycle\n", color.YellowString("[run]"), initiator)
	if err := engines[initiator].Start(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Start: %v", err))
		os.Exit(1)
	}

	for b.hasPending() {
		for _, id := range ids {
			queue := b.inbox[id]
			b.inbox[id] = nil
			for _, msg := range queue {
				if err := engines[id].Ingest(ctx, msg); err != nil {
					fmt.Fprintln(os.Stderr, color.RedString("%d.Ingest: %v", id, err))
					os.Exit(1)
				}
			}
		}
	}

	var reference types.Key
	for i, id := range ids {
		key, ok := engines[id].Key()
		if !ok {
			fmt.Fprintln(os.Stderr, color.RedString("participant %d never derived a key", id))
			os.Exit(1)
		}
		if i == 0 {
			reference = key.Key
		} else if !bytes.Equal(reference, key.Key) {
			fmt.Fprintln(os.Stderr, color.RedString("participant %d diverged from participant %d", id, ids[0]))
			os.Exit(1)
		}
	}
	fmt.Printf("%s every participant agreed on the same %d-byte key\n", color.GreenString("[done]"), len(reference))
}

func runJoin(myID types.ParticipantID, group string, peers []uint64) {
	logger := definition.NewDefaultLogger()
	trans, err := reltTransport.New(reltTransport.Config{
		Name:   fmt.Sprintf("keyagree-%d", myID),
		Group:  group,
		MyID:   myID,
		Logger: logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("joining group %s: %v", group, err))
		os.Exit(1)
	}
	defer trans.Close()

	e, err := keyagree.New(keyagree.Config{
		Crypto: bd.NewSuite(),
		Sink:   trans,
		Logger: logger,
		OnStepChange: func(s types.Step) {
			fmt.Printf("%s -> %s\n", color.CyanString("[step]"), s)
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("building engine: %v", err))
		os.Exit(1)
	}
	e.SetMyID(myID)

	ctx := context.Background()
	roster := append([]uint64{}, peers...)
	sort.Slice(roster, func(i, j int) bool { return roster[i] < roster[j] })
	for _, p := range roster {
		if err := e.AddMember(ctx, types.ParticipantID(p)); err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("AddMember(%d): %v", p, err))
			os.Exit(1)
		}
	}

	if e.IsInitiator() {
		fmt.Println(color.YellowString("[run] this participant is the initiator, starting"))
		if err := e.Start(); err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("Start: %v", err))
			os.Exit(1)
		}
	}

	for msg := range trans.Listen() {
		if err := e.Ingest(ctx, msg); err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("Ingest: %v", err))
			os.Exit(1)
		}
		if key, ok := e.Key(); ok {
			fmt.Printf("%s derived a %d-byte key for cycle (%d,%d)\n", color.GreenString("[done]"), len(key.Key), key.InitiatorID, key.Counter)
		}
	}
}
