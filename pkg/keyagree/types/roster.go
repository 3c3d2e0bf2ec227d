package types

import "sort"

// Roster is the locally-observed membership: sorted ascending, unique.
// The zero value is an empty roster.
type Roster struct {
	ids []ParticipantID
}

// Snapshot returns the current membership, smallest id first. The
// returned slice is owned by the caller.
func (r *Roster) Snapshot() []ParticipantID {
	out := make([]ParticipantID, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *Roster) Len() int {
	return len(r.ids)
}

func (r *Roster) indexOf(id ParticipantID) (int, bool) {
	i := sort.Search(len(r.ids), func(i int) bool { return r.ids[i] >= id })
	if i < len(r.ids) && r.ids[i] == id {
		return i, true
	}
	return i, false
}

// Contains reports whether id is present in the roster.
func (r *Roster) Contains(id ParticipantID) bool {
	_, ok := r.indexOf(id)
	return ok
}

// ContainsAll reports whether every id in ids is present in the roster.
func (r *Roster) ContainsAll(ids []ParticipantID) bool {
	for _, id := range ids {
		if !r.Contains(id) {
			return false
		}
	}
	return true
}

// Add inserts id, keeping the roster sorted and unique. Returns false if
// id was already present.
func (r *Roster) Add(id ParticipantID) bool {
	i, ok := r.indexOf(id)
	if ok {
		return false
	}
	r.ids = append(r.ids, 0)
	copy(r.ids[i+1:], r.ids[i:])
	r.ids[i] = id
	return true
}

// Delete removes id if present. Returns false if id was not present.
func (r *Roster) Delete(id ParticipantID) bool {
	i, ok := r.indexOf(id)
	if !ok {
		return false
	}
	r.ids = append(r.ids[:i], r.ids[i+1:]...)
	return true
}

// Min returns the smallest id in the roster. The second return value is
// false for an empty roster.
func (r *Roster) Min() (ParticipantID, bool) {
	if len(r.ids) == 0 {
		return 0, false
	}
	return r.ids[0], true
}
