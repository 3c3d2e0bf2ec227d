package types_test

import (
	"testing"

	"github.com/jabolina/go-keyagree/pkg/keyagree/types"
)

func TestRoster_AddKeepsSortedAndUnique(t *testing.T) {
	var r types.Roster
	r.Add(3)
	r.Add(1)
	r.Add(2)
	if r.Add(2) {
		t.Fatalf("adding an existing id should report false")
	}

	got := r.Snapshot()
	want := []types.ParticipantID{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("snapshot length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot = %v, want %v", got, want)
		}
	}
}

func TestRoster_DeleteAndContains(t *testing.T) {
	var r types.Roster
	r.Add(1)
	r.Add(2)
	if !r.Contains(1) {
		t.Fatalf("expected roster to contain 1")
	}
	if !r.Delete(1) {
		t.Fatalf("expected Delete(1) to report true")
	}
	if r.Contains(1) {
		t.Fatalf("expected 1 to be gone after Delete")
	}
	if r.Delete(1) {
		t.Fatalf("deleting an absent id should report false")
	}
}

func TestRoster_ContainsAll(t *testing.T) {
	var r types.Roster
	r.Add(1)
	r.Add(2)
	r.Add(4)
	if !r.ContainsAll([]types.ParticipantID{1, 2}) {
		t.Fatalf("expected roster to contain its own subset")
	}
	if r.ContainsAll([]types.ParticipantID{1, 2, 3}) {
		t.Fatalf("expected ContainsAll to fail when an id is missing")
	}
}

func TestRoster_Min(t *testing.T) {
	var r types.Roster
	if _, ok := r.Min(); ok {
		t.Fatalf("expected Min on an empty roster to report false")
	}
	r.Add(5)
	r.Add(2)
	min, ok := r.Min()
	if !ok || min != 2 {
		t.Fatalf("Min() = (%d, %v), want (2, true)", min, ok)
	}
}
