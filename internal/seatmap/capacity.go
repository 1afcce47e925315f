// Package seatmap holds the seat topology and layout model for the bus fleet.
// It generates the seat grid of a bus from its capacity class, overlays the
// reservation snapshot of a bus+date onto that grid and decides which seats a
// viewer may select depending on whether they ride, drive or administer.
// Everything in this package is pure and allocation-only; nothing here talks
// to the database or the network.
package seatmap

import (
	"errors"
	"fmt"
	"strings"
)

// CapacityClass is the structural seat layout category of a bus. The string
// value is the wire representation used by the bus API ("28-seat"/"45-seat").
// The zero value behaves as Compact.
type CapacityClass string

const (
	// Compact buses seat 28: eight 2+1 rows and a last row of four.
	Compact CapacityClass = "28-seat"
	// Standard buses seat 45: ten 2+2 rows and a last row of five.
	Standard CapacityClass = "45-seat"
)

// ErrUnknownCapacityClass is returned by ParseCapacityClass for values that
// name neither class.
var ErrUnknownCapacityClass = errors.New("unknown capacity class")

// shape describes how a class is laid out: the columns used by every regular
// row (column 3 is the aisle), the columns of the irregular last row and the
// total seat count.
type shape struct {
	regularCols []int
	lastRowCols []int
	lastRow     int
	total       int
}

var shapes = map[CapacityClass]shape{
	Compact: {
		regularCols: []int{1, 2, 4},
		lastRowCols: []int{1, 2, 3, 4},
		lastRow:     9,
		total:       28,
	},
	Standard: {
		regularCols: []int{1, 2, 4, 5},
		lastRowCols: []int{1, 2, 3, 4, 5},
		lastRow:     11,
		total:       45,
	},
}

// ParseCapacityClass maps user input to a CapacityClass. An empty string
// yields Compact, matching the default of the topology generator.
func ParseCapacityClass(s string) (CapacityClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "28-seat", "28", "compact":
		return Compact, nil
	case "45-seat", "45", "standard":
		return Standard, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCapacityClass, s)
}

// ClassForTotalSeats derives the class from a stored seat count. Buses were
// historically typed by their total_seats column, so 45 means Standard and
// anything else Compact.
func ClassForTotalSeats(n int) CapacityClass {
	if n == shapes[Standard].total {
		return Standard
	}
	return Compact
}

// normalize folds the zero value (and any unknown value) onto Compact so the
// generator stays total.
func (c CapacityClass) normalize() CapacityClass {
	if _, ok := shapes[c]; ok {
		return c
	}
	return Compact
}

func (c CapacityClass) shape() shape { return shapes[c.normalize()] }

// TotalSeats reports how many seats a topology of this class has.
func (c CapacityClass) TotalSeats() int { return c.shape().total }

// LastRow is the row number of the irregular, aisle-less last row.
func (c CapacityClass) LastRow() int { return c.shape().lastRow }

// String returns the wire form, with the zero value reported as Compact.
func (c CapacityClass) String() string { return string(c.normalize()) }
