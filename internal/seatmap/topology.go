package seatmap

import "strconv"

// Generate returns the full seat list of a bus of the given class, ordered
// by row then column, with every seat Available. It never fails and returns
// a fresh slice on every call.
//
// Letters are assigned by position inside the row (first seat A, second B,
// ...) and not derived from the column number, so the aisle gap never shows
// up in seat IDs while the last row, which has a seat in column 3, still
// reads A..D (or A..E) in order.
func Generate(class CapacityClass) []Seat {
	sh := class.shape()
	seats := make([]Seat, 0, sh.total)
	for row := 1; row <= sh.lastRow; row++ {
		cols := sh.regularCols
		if row == sh.lastRow {
			cols = sh.lastRowCols
		}
		for i, col := range cols {
			seats = append(seats, Seat{ID: seatID(row, i), Row: row, Col: col, State: Available})
		}
	}
	// The shape tables already add up to the class total; the cut keeps the
	// result bounded should a table ever be edited out of step.
	if len(seats) > sh.total {
		seats = seats[:sh.total]
	}
	return seats
}

func seatID(row, position int) string {
	return strconv.Itoa(row) + string(rune('A'+position))
}

// IDs lists the seat identifiers of a class in topology order.
func IDs(class CapacityClass) []string {
	seats := Generate(class)
	ids := make([]string, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	return ids
}

// Contains reports whether id names a seat of the class.
func Contains(class CapacityClass, id string) bool {
	_, ok := Find(Generate(class), id)
	return ok
}

// Find looks a seat up by identifier.
func Find(seats []Seat, id string) (Seat, bool) {
	for _, s := range seats {
		if s.ID == id {
			return s, true
		}
	}
	return Seat{}, false
}
