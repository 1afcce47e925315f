package seatmap

// SeatState is the state tag carried by a Seat.
type SeatState string

const (
	Available SeatState = "available"
	Occupied  SeatState = "occupied"
	Selected  SeatState = "selected"
)

// Seat is one position in a bus topology. ID is the row number followed by a
// positional letter ("9D"); Row and Col are 1-based and Col keeps the aisle
// gap, so the seat right of the aisle in a regular row is column 4.
type Seat struct {
	ID    string    `json:"id"`
	Row   int       `json:"row"`
	Col   int       `json:"col"`
	State SeatState `json:"status"`
}

// Occupied reports whether the seat is held by a reservation in the snapshot
// it was overlaid with.
func (s Seat) Occupied() bool { return s.State == Occupied }
