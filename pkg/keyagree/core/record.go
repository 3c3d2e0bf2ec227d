// Package core holds the cycle table: the per-initiator mini state
// machines the engine advances as Z and X messages arrive.
package core

import "github.com/jabolina/go-keyagree/pkg/keyagree/types"

// slot is a write-once array entry. Preferring an explicit filled flag
// over a sentinel "undefined" value keeps the write-once invariant a
// single empty-to-filled transition, per the teacher's record-then-assert
// style in processInitialMessage/exchangeTimestamp.
type slot struct {
	filled bool
	value  []byte
}

// Record is one in-flight cycle, keyed by its initiator id in the
// Table. Members and the lengths of ZArray/XArray are fixed at
// creation and never change afterward.
type Record struct {
	InitiatorID types.ParticipantID
	Counter     uint64
	Members     []types.ParticipantID
	R           types.Scalar

	zArray []slot
	xArray []slot
}

// NewRecord allocates a record for the given (initiator, counter,
// members) triple with an empty Z/X array sized to len(members).
func NewRecord(initiator types.ParticipantID, counter uint64, members []types.ParticipantID, r types.Scalar) *Record {
	m := make([]types.ParticipantID, len(members))
	copy(m, members)
	return &Record{
		InitiatorID: initiator,
		Counter:     counter,
		Members:     m,
		R:           r,
		zArray:      make([]slot, len(m)),
		xArray:      make([]slot, len(m)),
	}
}

// IndexOf returns the position of id within the declared members, or -1.
func (r *Record) IndexOf(id types.ParticipantID) int {
	for i, m := range r.Members {
		if m == id {
			return i
		}
	}
	return -1
}

// SetZ fills the Z slot at index i. It panics if the slot is already
// filled — a sender resending its Z for the same cycle is a protocol
// violation (spec §7: programming error).
func (r *Record) SetZ(i int, z types.Z) {
	if r.zArray[i].filled {
		panic("keyagree: z slot already filled")
	}
	r.zArray[i] = slot{filled: true, value: z}
}

// SetX fills the X slot at index i. Same write-once contract as SetZ.
func (r *Record) SetX(i int, x types.X) {
	if r.xArray[i].filled {
		panic("keyagree: x slot already filled")
	}
	r.xArray[i] = slot{filled: true, value: x}
}

// ZFilled reports whether index i of the Z array has been written.
func (r *Record) ZFilled(i int) bool {
	return r.zArray[i].filled
}

// XFilled reports whether index i of the X array has been written.
func (r *Record) XFilled(i int) bool {
	return r.xArray[i].filled
}

// ZComplete reports whether every Z slot has been filled.
func (r *Record) ZComplete() bool {
	for _, s := range r.zArray {
		if !s.filled {
			return false
		}
	}
	return true
}

// XComplete reports whether every X slot has been filled.
func (r *Record) XComplete() bool {
	for _, s := range r.xArray {
		if !s.filled {
			return false
		}
	}
	return true
}

// Z returns the Z value stored at index i. Only valid once ZFilled(i).
func (r *Record) Z(i int) types.Z {
	return types.Z(r.zArray[i].value)
}

// X returns the X value stored at index i. Only valid once XFilled(i).
func (r *Record) X(i int) types.X {
	return types.X(r.xArray[i].value)
}

// XValues returns the complete X array, in member order. Only meaningful
// once XComplete().
func (r *Record) XValues() []types.X {
	out := make([]types.X, len(r.xArray))
	for i, s := range r.xArray {
		out[i] = types.X(s.value)
	}
	return out
}
