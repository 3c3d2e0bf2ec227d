package fuzzy

import (
	"bytes"
	"context"
	"testing"

	"go.uber.org/goleak"

	"github.com/jabolina/go-keyagree/pkg/keyagree"
	"github.com/jabolina/go-keyagree/pkg/keyagree/types"
	"github.com/jabolina/go-keyagree/testsupport"
)

// This exercises the round-trip property from the engine's testable
// properties: for a fixed roster, any delivery-order permutation that
// preserves per-sender FIFO must still converge every honest participant
// on the same key, with every cycle table empty afterward. The network
// already guarantees per-sender FIFO into each recipient's own queue; what
// varies across the schedules below is the relative order in which
// different recipients get serviced.
type schedule func(pending []types.ParticipantID) types.ParticipantID

func ascending(pending []types.ParticipantID) types.ParticipantID {
	min := pending[0]
	for _, id := range pending[1:] {
		if id < min {
			min = id
		}
	}
	return min
}

func descending(pending []types.ParticipantID) types.ParticipantID {
	max := pending[0]
	for _, id := range pending[1:] {
		if id > max {
			max = id
		}
	}
	return max
}

// roundRobin cycles through ids regardless of which of them currently have
// pending work, skipping any that don't.
func roundRobin(ids []types.ParticipantID) schedule {
	i := 0
	return func(pending []types.ParticipantID) types.ParticipantID {
		for {
			candidate := ids[i%len(ids)]
			i++
			for _, id := range pending {
				if id == candidate {
					return candidate
				}
			}
		}
	}
}

type fleet struct {
	ids     []types.ParticipantID
	net     *testsupport.Network
	engines map[types.ParticipantID]*keyagree.Engine
	seen    map[types.ParticipantID][]types.Step
}

func buildFleet(t *testing.T, ids []types.ParticipantID) *fleet {
	t.Helper()
	f := &fleet{
		ids:     ids,
		net:     testsupport.NewNetwork(),
		engines: make(map[types.ParticipantID]*keyagree.Engine),
		seen:    make(map[types.ParticipantID][]types.Step),
	}
	for _, id := range ids {
		id := id
		sink := f.net.Register(id)
		e, err := keyagree.New(keyagree.Config{
			Crypto:       testsupport.NewToyCrypto(),
			Sink:         sink,
			OnStepChange: func(s types.Step) { f.seen[id] = append(f.seen[id], s) },
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		e.SetMyID(id)
		f.engines[id] = e
	}
	ctx := context.Background()
	for _, self := range ids {
		for _, other := range ids {
			if self == other {
				continue
			}
			if err := f.engines[self].AddMember(ctx, other); err != nil {
				t.Fatalf("%d.AddMember(%d): %v", self, other, err)
			}
		}
	}
	return f
}

func (f *fleet) driveSchedule(t *testing.T, pick schedule) {
	t.Helper()
	ctx := context.Background()
	for f.net.HasPending() {
		var pending []types.ParticipantID
		for _, id := range f.ids {
			if f.net.HasPendingFor(id) {
				pending = append(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}
		id := pick(pending)
		msg, ok := f.net.PopOne(id)
		if !ok {
			continue
		}
		if err := f.engines[id].Ingest(ctx, msg); err != nil {
			t.Fatalf("participant %d ingest failed: %v", id, err)
		}
	}
}

func (f *fleet) assertConverged(t *testing.T) {
	t.Helper()
	var first types.Key
	for i, id := range f.ids {
		key, ok := f.engines[id].Key()
		if !ok {
			t.Fatalf("participant %d never derived a key", id)
		}
		if i == 0 {
			first = key.Key
		} else if !bytes.Equal(first, key.Key) {
			t.Fatalf("participant %d derived a different key than participant %d", id, f.ids[0])
		}
		if f.engines[id].PendingCycles() != 0 {
			t.Fatalf("participant %d has %d cycle records left over, want 0", id, f.engines[id].PendingCycles())
		}
		if f.engines[id].Step() != types.Ready {
			t.Fatalf("participant %d ended in step %v, want Ready", id, f.engines[id].Step())
		}
	}
}

func TestRoundTrip_DeliveryOrderDoesNotAffectConvergence(t *testing.T) {
	defer goleak.VerifyNone(t)

	ids := []types.ParticipantID{1, 2, 3, 4, 5}
	schedules := map[string]schedule{
		"ascending":   ascending,
		"descending":  descending,
		"round-robin": roundRobin(ids),
	}

	for name, pick := range schedules {
		name, pick := name, pick
		t.Run(name, func(t *testing.T) {
			f := buildFleet(t, ids)
			if err := f.engines[f.ids[0]].Start(); err != nil {
				t.Fatalf("Start: %v", err)
			}
			f.driveSchedule(t, pick)
			f.assertConverged(t)
		})
	}
}
