// Package relt adapts github.com/jabolina/relt's reliable broadcast
// primitive into a types.Sink plus an inbound feed, so an Engine's Sink
// collaborator can be a real network instead of the in-memory
// testsupport.Network used in tests.
//
// The engine itself stays single-threaded: this adapter never calls
// Ingest directly from its poll goroutine. It only decodes what arrives
// on the wire and hands it to the caller through Listen(), the same
// division the teacher's ReliableTransport draws between receiving and
// consuming.
package relt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jabolina/relt/pkg/relt"

	"github.com/jabolina/go-keyagree/pkg/keyagree/types"
)

// Config names the group this participant joins and the logger used for
// transport-level diagnostics.
type Config struct {
	// Name is this participant's identity on the relt group; it need not
	// match the protocol's numeric ParticipantID.
	Name string

	// Group is the relt exchange every participant in the same roster
	// must share.
	Group string

	// MyID is stamped as SenderID on every frame this Transport sends,
	// since types.OutboundMessage itself carries no sender identity.
	MyID types.ParticipantID

	Logger types.Logger
}

// Transport is a types.Sink backed by a relt reliable-broadcast group. It
// also exposes the inbound side as a channel of decoded
// types.InboundMessage, which the caller must drain and feed to its
// Engine's Ingest in its own serialized loop.
type Transport struct {
	log  types.Logger
	myID types.ParticipantID

	relt *relt.Relt

	inbound chan types.InboundMessage

	ctx    context.Context
	cancel context.CancelFunc
}

// New joins the relt group named by cfg.Group and starts the background
// poll loop that decodes incoming frames.
func New(cfg Config) (*Transport, error) {
	conf := relt.DefaultReltConfiguration()
	conf.Name = cfg.Name
	conf.Exchange = relt.GroupAddress(cfg.Group)
	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		log:     cfg.Logger,
		myID:    cfg.MyID,
		relt:    r,
		inbound: make(chan types.InboundMessage, 256),
		ctx:     ctx,
		cancel:  cancel,
	}
	go t.poll()
	return t, nil
}

// Send implements types.Sink. It stamps msg with this participant's id as
// sender, marshals the result as the wire frame, and broadcasts it to
// every member of the group.
func (t *Transport) Send(msg types.OutboundMessage) error {
	frame := types.InboundMessage{
		Initiator:       msg.Initiator,
		Type:            msg.Type,
		Payload:         msg.Payload,
		SenderID:        t.myID,
		ProtocolVersion: msg.ProtocolVersion,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		t.log.Errorf("relt: failed marshalling outbound message for cycle (%d,%d): %v", msg.Initiator.ID, msg.Initiator.Counter, err)
		return err
	}
	return t.relt.Broadcast(t.ctx, relt.Send{Data: data})
}

// Listen returns the channel of decoded inbound messages. The caller
// drains it and calls Engine.Ingest for each one, in the same goroutine
// that owns the Engine.
func (t *Transport) Listen() <-chan types.InboundMessage {
	return t.inbound
}

// Close stops the poll loop and tears down the underlying relt group.
func (t *Transport) Close() error {
	t.cancel()
	return t.relt.Close()
}

func (t *Transport) poll() {
	listener, err := t.relt.Consume()
	if err != nil {
		t.log.Errorf("relt: failed starting consume loop: %v", err)
		return
	}
	for {
		select {
		case <-t.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			t.consume(recv)
		}
	}
}

func (t *Transport) consume(recv relt.Recv) {
	if recv.Error != nil {
		t.log.Errorf("relt: failed consuming message: %v", recv.Error)
		return
	}
	if recv.Data == nil {
		t.log.Warnf("relt: received empty frame")
		return
	}

	var msg types.InboundMessage
	if err := json.Unmarshal(recv.Data, &msg); err != nil {
		t.log.Errorf("relt: failed unmarshalling frame: %v", err)
		return
	}
	if msg.SenderID == t.myID {
		// relt's broadcast group echoes our own frames back to us.
		return
	}

	timeout, cancel := context.WithTimeout(t.ctx, 250*time.Millisecond)
	defer cancel()
	select {
	case <-timeout.Done():
		t.log.Warnf("relt: dropped message for cycle (%d,%d), consumer too slow", msg.Initiator.ID, msg.Initiator.Counter)
	case t.inbound <- msg:
	}
}
