package core_test

import (
	"testing"

	"github.com/jabolina/go-keyagree/pkg/keyagree/core"
	"github.com/jabolina/go-keyagree/pkg/keyagree/types"
)

func TestRecord_IndexOf(t *testing.T) {
	r := core.NewRecord(1, 1, []types.ParticipantID{1, 2, 3}, types.Scalar("r"))
	if r.IndexOf(2) != 1 {
		t.Fatalf("IndexOf(2) = %d, want 1", r.IndexOf(2))
	}
	if r.IndexOf(99) != -1 {
		t.Fatalf("IndexOf(99) = %d, want -1", r.IndexOf(99))
	}
}

func TestRecord_ZXCompleteness(t *testing.T) {
	r := core.NewRecord(1, 1, []types.ParticipantID{1, 2}, types.Scalar("r"))
	if r.ZComplete() || r.XComplete() {
		t.Fatalf("fresh record must not report any array complete")
	}
	r.SetZ(0, types.Z("z0"))
	if r.ZComplete() {
		t.Fatalf("z array should not be complete with one slot filled")
	}
	r.SetZ(1, types.Z("z1"))
	if !r.ZComplete() {
		t.Fatalf("z array should be complete once every slot is filled")
	}
}

func TestRecord_WriteOnceSlotPanics(t *testing.T) {
	r := core.NewRecord(1, 1, []types.ParticipantID{1, 2}, types.Scalar("r"))
	r.SetZ(0, types.Z("z0"))

	defer func() {
		if recover() == nil {
			t.Fatalf("expected SetZ on an already-filled slot to panic")
		}
	}()
	r.SetZ(0, types.Z("z0-again"))
}

func TestRecord_MembersAreCopiedAtConstruction(t *testing.T) {
	members := []types.ParticipantID{1, 2, 3}
	r := core.NewRecord(1, 1, members, types.Scalar("r"))
	members[0] = 99
	if r.Members[0] == 99 {
		t.Fatalf("record must not alias the caller's members slice")
	}
}
