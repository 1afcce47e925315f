package seatmap

import (
	"errors"
	"fmt"
)

// ErrTopologyMismatch is wrapped by Validate when a seat list does not have
// the shape its class prescribes.
var ErrTopologyMismatch = errors.New("seat list does not match capacity class")

// Validate checks seats against the shape of class and reports the first
// problem found: wrong count, a duplicate ID or position, or a seat whose
// ID, row or column differs from the generated topology.
func Validate(seats []Seat, class CapacityClass) error {
	want := Generate(class)
	if len(seats) != len(want) {
		return fmt.Errorf("%w: %d seats, want %d", ErrTopologyMismatch, len(seats), len(want))
	}
	expected := make(map[string]Seat, len(want))
	for _, s := range want {
		expected[s.ID] = s
	}
	ids := make(map[string]struct{}, len(seats))
	type pos struct{ row, col int }
	positions := make(map[pos]struct{}, len(seats))
	for _, s := range seats {
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("%w: duplicate seat %s", ErrTopologyMismatch, s.ID)
		}
		ids[s.ID] = struct{}{}
		p := pos{s.Row, s.Col}
		if _, dup := positions[p]; dup {
			return fmt.Errorf("%w: two seats at row %d col %d", ErrTopologyMismatch, s.Row, s.Col)
		}
		positions[p] = struct{}{}
		w, ok := expected[s.ID]
		if !ok {
			return fmt.Errorf("%w: unknown seat %s", ErrTopologyMismatch, s.ID)
		}
		if w.Row != s.Row || w.Col != s.Col {
			return fmt.Errorf("%w: seat %s at row %d col %d, want row %d col %d",
				ErrTopologyMismatch, s.ID, s.Row, s.Col, w.Row, w.Col)
		}
	}
	return nil
}
