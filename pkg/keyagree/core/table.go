package core

import "github.com/jabolina/go-keyagree/pkg/keyagree/types"

// Table is the cycle table: initiator id -> in-flight Record. It is the
// single mutation point enforcing invariant 4 from spec.md §3 — at most
// one record per initiator, and only for the largest counter observed.
type Table struct {
	records map[types.ParticipantID]*Record
}

// NewTable returns an empty cycle table.
func NewTable() *Table {
	return &Table{records: make(map[types.ParticipantID]*Record)}
}

// Get returns the record for id, if any.
func (t *Table) Get(id types.ParticipantID) (*Record, bool) {
	r, ok := t.records[id]
	return r, ok
}

// NeedsCreate reports whether a message for (id, counter) should trigger
// lazy record creation: the table holds nothing for id, or holds a
// strictly older counter. An older-or-equal counter never displaces the
// stored record.
func (t *Table) NeedsCreate(id types.ParticipantID, counter uint64) bool {
	existing, ok := t.records[id]
	if !ok {
		return true
	}
	return existing.Counter < counter
}

// Put installs record, replacing whatever was previously stored for its
// initiator id. Callers must have already checked NeedsCreate; Put itself
// does not re-check, so superseding an equal-or-newer counter is a bug in
// the caller that this table does not detect.
func (t *Table) Put(record *Record) {
	t.records[record.InitiatorID] = record
}

// Delete removes the record for id, invariant 3: called exactly once,
// right after its key has been derived and installed.
func (t *Table) Delete(id types.ParticipantID) {
	delete(t.records, id)
}

// Range calls fn for every record currently in the table. fn may Delete
// the record it was called with (Go allows deleting map entries during
// iteration); it must not Put.
func (t *Table) Range(fn func(id types.ParticipantID, record *Record)) {
	for id, r := range t.records {
		fn(id, r)
	}
}

// Len returns the number of in-flight cycles.
func (t *Table) Len() int {
	return len(t.records)
}
