package core_test

import (
	"testing"

	"github.com/jabolina/go-keyagree/pkg/keyagree/core"
	"github.com/jabolina/go-keyagree/pkg/keyagree/types"
)

func TestTable_NeedsCreate(t *testing.T) {
	table := core.NewTable()
	if !table.NeedsCreate(1, 5) {
		t.Fatalf("an absent initiator must always need creation")
	}

	table.Put(core.NewRecord(1, 5, []types.ParticipantID{1, 2}, types.Scalar("r")))
	if table.NeedsCreate(1, 5) {
		t.Fatalf("an equal counter must not need creation")
	}
	if table.NeedsCreate(1, 4) {
		t.Fatalf("an older counter must not need creation")
	}
	if !table.NeedsCreate(1, 6) {
		t.Fatalf("a strictly newer counter must need creation")
	}
}

func TestTable_PutSupersedesOlderCounter(t *testing.T) {
	table := core.NewTable()
	table.Put(core.NewRecord(1, 5, []types.ParticipantID{1, 2, 3}, types.Scalar("r5")))
	table.Put(core.NewRecord(1, 6, []types.ParticipantID{1, 2}, types.Scalar("r6")))

	if table.Len() != 1 {
		t.Fatalf("table should retain exactly one record per initiator, got %d", table.Len())
	}
	record, ok := table.Get(1)
	if !ok {
		t.Fatalf("expected a record for initiator 1")
	}
	if record.Counter != 6 {
		t.Fatalf("counter = %d, want 6 (the newer record must win)", record.Counter)
	}
	if len(record.Members) != 2 {
		t.Fatalf("stale members leaked through supersession: %v", record.Members)
	}
}

func TestTable_DeleteRemovesRecord(t *testing.T) {
	table := core.NewTable()
	table.Put(core.NewRecord(1, 1, []types.ParticipantID{1, 2}, types.Scalar("r")))
	table.Delete(1)
	if _, ok := table.Get(1); ok {
		t.Fatalf("expected record to be gone after Delete")
	}
	if table.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", table.Len())
	}
}
