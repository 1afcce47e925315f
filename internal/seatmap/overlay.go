package seatmap

// Overlay derives a displayable seat list from a topology and the reserved
// seat identifiers of one bus+date snapshot. A seat is Occupied exactly when
// its ID is in reserved, otherwise Available; any state already on the input
// is ignored. The input slice is not modified.
func Overlay(seats []Seat, reserved []string) []Seat {
	taken := make(map[string]struct{}, len(reserved))
	for _, id := range reserved {
		taken[id] = struct{}{}
	}
	out := make([]Seat, len(seats))
	for i, s := range seats {
		s.State = Available
		if _, ok := taken[s.ID]; ok {
			s.State = Occupied
		}
		out[i] = s
	}
	return out
}

// OccupiedIDs returns the identifiers of the occupied seats in topology order.
func OccupiedIDs(seats []Seat) []string {
	var ids []string
	for _, s := range seats {
		if s.Occupied() {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
