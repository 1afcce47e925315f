package seatmap

import "encoding/json"

// SelectionSet is an insertion-ordered set of seat IDs. The zero value is an
// empty set ready to use. It is not safe for concurrent use.
type SelectionSet struct {
	ids []string
}

// NewSelectionSet builds a set from ids, dropping duplicates and blanks.
func NewSelectionSet(ids ...string) SelectionSet {
	var s SelectionSet
	for _, id := range ids {
		if id != "" {
			s.Add(id)
		}
	}
	return s
}

// Has reports membership.
func (s *SelectionSet) Has(id string) bool {
	return s.index(id) >= 0
}

// Add inserts id at the end unless it is already present.
func (s *SelectionSet) Add(id string) {
	if !s.Has(id) {
		s.ids = append(s.ids, id)
	}
}

// Remove deletes id, keeping the order of the rest.
func (s *SelectionSet) Remove(id string) {
	if i := s.index(id); i >= 0 {
		s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
	}
}

// Apply flips membership of the toggled seat: present seats are removed,
// absent ones appended.
func (s *SelectionSet) Apply(t Toggle) {
	if s.Has(t.SeatID) {
		s.Remove(t.SeatID)
		return
	}
	s.Add(t.SeatID)
}

// Clear empties the set.
func (s *SelectionSet) Clear() { s.ids = nil }

// Len returns the number of selected seats.
func (s *SelectionSet) Len() int { return len(s.ids) }

// IDs returns a copy of the members in insertion order.
func (s *SelectionSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *SelectionSet) index(id string) int {
	for i, v := range s.ids {
		if v == id {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes the set as a plain array, never null.
func (s SelectionSet) MarshalJSON() ([]byte, error) {
	if s.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ids)
}

// UnmarshalJSON decodes an array, deduplicating while keeping first
// occurrences.
func (s *SelectionSet) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = NewSelectionSet(ids...)
	return nil
}
