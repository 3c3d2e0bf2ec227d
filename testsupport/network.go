package testsupport

import "github.com/jabolina/go-keyagree/pkg/keyagree/types"

// Network is an in-memory fan-out broadcast medium connecting several
// engines in one process. Each recipient's queue is FIFO; beyond that, the
// delivery order is whatever the caller imposes by choosing which
// recipient to drain next, which is the point:
// tests use it to exercise specific delivery-order permutations, the
// round-trip property from spec.md §8.
type Network struct {
	recipients []types.ParticipantID
	inbox      map[types.ParticipantID][]types.InboundMessage
	sent       []types.OutboundMessage
}

// NewNetwork returns an empty Network.
func NewNetwork() *Network {
	return &Network{inbox: make(map[types.ParticipantID][]types.InboundMessage)}
}

// MemorySink is the types.Sink handed to one participant's Engine; it
// fans every broadcast out to the Network's other registered recipients.
type MemorySink struct {
	from types.ParticipantID
	net  *Network

	// Outbox records every message this one participant has sent, in
	// emission order. Exported so tests can assert on a single
	// participant's broadcast history without filtering Network.Sent().
	Outbox []types.OutboundMessage
}

func (s *MemorySink) Send(msg types.OutboundMessage) error {
	s.net.sent = append(s.net.sent, msg)
	s.Outbox = append(s.Outbox, msg)
	for _, r := range s.net.recipients {
		if r == s.from {
			continue
		}
		s.net.inbox[r] = append(s.net.inbox[r], types.InboundMessage{
			Initiator:       msg.Initiator,
			Type:            msg.Type,
			Payload:         msg.Payload,
			SenderID:        s.from,
			ProtocolVersion: msg.ProtocolVersion,
		})
	}
	return nil
}

// Register adds id as a recipient and returns the Sink it should use to
// broadcast.
func (n *Network) Register(id types.ParticipantID) *MemorySink {
	n.recipients = append(n.recipients, id)
	return &MemorySink{from: id, net: n}
}

// Pending drains and returns every message queued for id, in FIFO order.
func (n *Network) Pending(id types.ParticipantID) []types.InboundMessage {
	msgs := n.inbox[id]
	n.inbox[id] = nil
	return msgs
}

// PopOne removes and returns the oldest message queued for id, preserving
// FIFO order within that recipient's queue. The second return value is
// false when nothing is queued.
func (n *Network) PopOne(id types.ParticipantID) (types.InboundMessage, bool) {
	queue := n.inbox[id]
	if len(queue) == 0 {
		return types.InboundMessage{}, false
	}
	msg := queue[0]
	n.inbox[id] = queue[1:]
	return msg, true
}

// HasPendingFor reports whether id specifically has an undelivered message
// queued.
func (n *Network) HasPendingFor(id types.ParticipantID) bool {
	return len(n.inbox[id]) > 0
}

// HasPending reports whether any recipient still has undelivered messages.
func (n *Network) HasPending() bool {
	for _, msgs := range n.inbox {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

// Sent returns every message ever broadcast on the network, in emission
// order. Useful for assertions about what was sent without caring who
// received it yet.
func (n *Network) Sent() []types.OutboundMessage {
	return n.sent
}
