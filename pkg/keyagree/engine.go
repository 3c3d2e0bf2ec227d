// Package keyagree implements the Cycle engine: a Burmester-Desmedt-style
// group key-agreement state machine. One Engine runs per participant;
// instances exchange Z and X broadcasts through an injected Sink and
// converge on the same symmetric key without a trusted party.
//
// The engine is single-threaded cooperative: every exported method is
// non-reentrant with respect to the same Engine and must be serialized by
// the caller, the same contract the teacher's Unity.process loop enforces
// through its own run/poll goroutine. Engine itself holds no lock.
package keyagree

import (
	"context"
	"fmt"

	hversion "github.com/hashicorp/go-version"

	"github.com/jabolina/go-keyagree/pkg/keyagree/core"
	"github.com/jabolina/go-keyagree/pkg/keyagree/types"
)

// Engine is one participant's instance of the cyclic group key-agreement
// protocol.
type Engine struct {
	cfg     *Config
	version *hversion.Version

	myID    types.ParticipantID
	myIDSet bool
	roster  types.Roster

	table *core.Table
	step  types.Step

	key         *types.KeyRecord
	previousKey *types.KeyRecord

	myCounter uint64
}

// New builds an Engine from cfg. The returned Engine starts in step
// Initialized with an empty roster; call SetMyID before anything else.
func New(cfg Config) (*Engine, error) {
	v, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     &cfg,
		version: v,
		table:   core.NewTable(),
		step:    types.Initialized,
	}, nil
}

// SetMyID is one-shot: the first call records the local id and inserts it
// into the roster; later calls are no-ops.
func (e *Engine) SetMyID(id types.ParticipantID) {
	if e.myIDSet {
		return
	}
	e.myIDSet = true
	e.myID = id
	e.roster.Add(id)
}

// MyID returns the local participant id.
func (e *Engine) MyID() types.ParticipantID {
	return e.myID
}

// IsInitiator is a pure function of (my_id, roster): the smallest id in
// the roster is the sole elected initiator.
func (e *Engine) IsInitiator() bool {
	min, ok := e.roster.Min()
	return ok && e.myID == min
}

// Step returns the current coarse public phase.
func (e *Engine) Step() types.Step {
	return e.step
}

// Key returns the most recently installed key, if any.
func (e *Engine) Key() (types.KeyRecord, bool) {
	if e.key == nil {
		return types.KeyRecord{}, false
	}
	return *e.key, true
}

// PreviousKey returns the key that was active before the most recent
// rotation, if any.
func (e *Engine) PreviousKey() (types.KeyRecord, bool) {
	if e.previousKey == nil {
		return types.KeyRecord{}, false
	}
	return *e.previousKey, true
}

// Roster returns the current locally-observed membership.
func (e *Engine) Roster() []types.ParticipantID {
	return e.roster.Snapshot()
}

// PendingCycles returns the number of cycle records currently in flight.
// Invariant 3 (spec.md §3) guarantees this drops to zero once every
// started or joined cycle has installed its key.
func (e *Engine) PendingCycles() int {
	return e.table.Len()
}

// AddMember inserts id into the roster and, when this instance is not the
// initiator and is in WaitingZ or WaitingX, re-checks every in-flight
// cycle: a departure or arrival may be exactly what a stalled cycle was
// waiting for.
func (e *Engine) AddMember(ctx context.Context, id types.ParticipantID) error {
	e.roster.Add(id)
	return e.recheckRipeness(ctx)
}

// DeleteMember removes id from the roster, if present, and re-checks
// in-flight cycles under the same conditions as AddMember.
func (e *Engine) DeleteMember(ctx context.Context, id types.ParticipantID) error {
	e.roster.Delete(id)
	return e.recheckRipeness(ctx)
}

// Start is callable only by the elected initiator, and only once the
// roster has at least two members. It allocates a new cycle, seeds this
// participant's Z at index 0, broadcasts it, and moves to WaitingZ.
func (e *Engine) Start() error {
	e.assertf(e.IsInitiator(), "Start called by non-initiator %d (roster min differs)", e.myID)

	if e.roster.Len() < 2 {
		return fmt.Errorf("keyagree: Start requires at least two roster members, have %d", e.roster.Len())
	}

	r, err := e.cfg.Crypto.GenerateRi()
	if err != nil {
		return err
	}
	z, err := e.cfg.Crypto.ComputeZi(r)
	if err != nil {
		return err
	}

	e.myCounter++
	counter := e.myCounter
	members := e.roster.Snapshot()

	if existing, ok := e.table.Get(e.myID); ok {
		e.assertf(existing.Counter != counter, "cycle (%d,%d) started twice", e.myID, counter)
	}

	record := core.NewRecord(e.myID, counter, members, r)
	record.SetZ(0, z)
	e.table.Put(record)

	e.broadcast(types.Initiator{ID: e.myID, Counter: counter, Members: members}, types.PayloadZ, []byte(z))
	e.setStep(types.WaitingZ)
	return nil
}

// Ingest processes one inbound protocol message: lazy record creation
// followed by payload apply and the matching ripeness check, per
// spec.md §4.3.
func (e *Engine) Ingest(ctx context.Context, msg types.InboundMessage) error {
	if err := e.checkVersion(msg.ProtocolVersion); err != nil {
		return err
	}

	id := msg.Initiator.ID
	counter := msg.Initiator.Counter

	if e.table.NeedsCreate(id, counter) {
		if err := e.createRecord(id, counter, msg.Initiator.Members); err != nil {
			return err
		}
	}

	record, ok := e.table.Get(id)
	if !ok {
		// The cycle for id was already completed and deleted; the
		// message has no home and is silently dropped.
		return nil
	}
	if record.Counter != counter {
		// A stale duplicate for an already-superseded counter: the
		// record we hold now belongs to a different cycle instance
		// (invariant 1 ties Members to a single counter), so the
		// payload cannot be safely applied to it.
		e.cfg.Logger.Debugf("keyagree: dropping stale message for initiator %d counter %d (have %d)", id, counter, record.Counter)
		return nil
	}

	senderIdx := record.IndexOf(msg.SenderID)
	e.assertf(senderIdx >= 0, "sender %d not listed in declared members for cycle (%d,%d)", msg.SenderID, id, counter)

	switch msg.Type {
	case types.PayloadZ:
		record.SetZ(senderIdx, types.Z(msg.Payload))
		return e.tryZRipe(record)
	case types.PayloadX:
		record.SetX(senderIdx, types.X(msg.Payload))
		return e.tryXRipe(ctx, record)
	default:
		return fmt.Errorf("keyagree: unknown payload type %v", msg.Type)
	}
}

// createRecord implements the "join an in-progress cycle" path: allocate
// a local r, compute the local Z, seed it at this participant's declared
// position, and broadcast it.
func (e *Engine) createRecord(id types.ParticipantID, counter uint64, members []types.ParticipantID) error {
	r, err := e.cfg.Crypto.GenerateRi()
	if err != nil {
		return err
	}
	z, err := e.cfg.Crypto.ComputeZi(r)
	if err != nil {
		return err
	}

	record := core.NewRecord(id, counter, members, r)
	myIdx := record.IndexOf(e.myID)
	e.assertf(myIdx >= 0, "local id %d missing from declared members for cycle (%d,%d)", e.myID, id, counter)
	record.SetZ(myIdx, z)
	e.table.Put(record)

	e.broadcast(types.Initiator{ID: id, Counter: counter, Members: record.Members}, types.PayloadZ, []byte(z))
	e.setStep(types.WaitingZ)
	return nil
}

// recheckRipeness re-runs the ripeness check for every in-flight cycle
// after a roster change, but only when this instance is not the
// initiator and is currently between phases. This catches late-arriving
// members that unblock a cycle stalled on the roster-containment guard.
func (e *Engine) recheckRipeness(ctx context.Context) error {
	if e.IsInitiator() {
		return nil
	}
	if e.step != types.WaitingZ && e.step != types.WaitingX {
		return nil
	}

	var firstErr error
	e.table.Range(func(id types.ParticipantID, record *core.Record) {
		if firstErr != nil {
			return
		}
		myIdx := record.IndexOf(e.myID)
		if myIdx < 0 {
			return
		}
		var err error
		if record.XFilled(myIdx) {
			err = e.tryXRipe(ctx, record)
		} else {
			err = e.tryZRipe(record)
		}
		if err != nil {
			firstErr = err
		}
	})
	return firstErr
}

// tryZRipe advances one cycle record from WaitingZ to WaitingX once every
// precondition in spec.md §4.4 is met. Any failed precondition is a
// transient stall: it aborts silently and retries on the next triggering
// event.
func (e *Engine) tryZRipe(record *core.Record) error {
	n := len(record.Members)
	if e.roster.Len() < n || !e.roster.ContainsAll(record.Members) || !record.ZComplete() {
		return nil
	}

	i := record.IndexOf(e.myID)
	e.assertf(i >= 0, "local id %d missing from own cycle record (%d,%d)", e.myID, record.InitiatorID, record.Counter)

	left := (n + i - 1) % n
	right := (i + 1) % n

	x, err := e.cfg.Crypto.ComputeXi(record.R, record.Z(right), record.Z(left))
	if err != nil {
		return err
	}

	e.assertf(!record.XFilled(i), "own x slot already filled for cycle (%d,%d)", record.InitiatorID, record.Counter)
	record.SetX(i, x)

	e.broadcast(types.Initiator{ID: record.InitiatorID, Counter: record.Counter, Members: record.Members}, types.PayloadX, []byte(x))
	e.setStep(types.WaitingX)
	return nil
}

// tryXRipe advances one cycle record from WaitingX to Ready: derives the
// shared key, rolls the key slots forward, and deletes the record. The
// call into DeriveKey is the engine's sole suspension point; the record
// is removed only after it returns, so a late duplicate X arriving during
// derivation finds the record still present, writes its slot (subject to
// the usual write-once assertion), and is simply discarded with the
// record once derivation completes.
func (e *Engine) tryXRipe(ctx context.Context, record *core.Record) error {
	n := len(record.Members)
	if e.roster.Len() < n || !e.roster.ContainsAll(record.Members) || !record.XComplete() {
		return nil
	}

	i := record.IndexOf(e.myID)
	e.assertf(i >= 0, "local id %d missing from own cycle record (%d,%d)", e.myID, record.InitiatorID, record.Counter)
	left := (n + i - 1) % n

	secret, err := e.cfg.Crypto.ComputeSharedSecret(record.R, record.X(i), record.Z(left), record.XValues())
	if err != nil {
		return err
	}

	key, err := e.cfg.Crypto.DeriveKey(ctx, secret)
	if err != nil {
		return err
	}

	if e.key != nil {
		prev := *e.key
		e.previousKey = &prev
	}
	e.key = &types.KeyRecord{Key: key, InitiatorID: record.InitiatorID, Counter: record.Counter}
	e.table.Delete(record.InitiatorID)
	e.setStep(types.Ready)
	return nil
}

func (e *Engine) broadcast(initiator types.Initiator, t types.PayloadType, payload []byte) {
	msg := types.OutboundMessage{
		Initiator:       initiator,
		Type:            t,
		Payload:         payload,
		ProtocolVersion: e.cfg.ProtocolVersion,
	}
	if err := e.cfg.Sink.Send(msg); err != nil {
		e.cfg.Logger.Errorf("keyagree: failed sending %s for cycle (%d,%d): %v", t, initiator.ID, initiator.Counter, err)
	}
}

func (e *Engine) setStep(s types.Step) {
	if e.step == s {
		return
	}
	e.step = s
	e.cfg.OnStepChange(s)
}

func (e *Engine) checkVersion(declared string) error {
	if declared == "" {
		return nil
	}
	v, err := hversion.NewVersion(declared)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedProtocol, err)
	}
	if !v.Equal(e.version) {
		return ErrUnsupportedProtocol
	}
	return nil
}

// assertf panics, halting the instance, when cond is false. It implements
// spec.md §7's programming-error class: bugs in the caller or the peer
// that must not be silently tolerated.
func (e *Engine) assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("keyagree: assertion failed: "+format, args...))
	}
}
