package seatmap

import (
	"cmp"
	"slices"
)

// Toggle is the notification a Presenter emits when a click is allowed. The
// owner of the selection applies it; the presenter itself keeps no state.
type Toggle struct {
	SeatID string `json:"seat_id"`
}

// Display is the visual state of a rendered seat. Unlike SeatState it has a
// Highlighted value, used to mark the viewer's own seat in read-only
// renderings of past reservations.
type Display string

const (
	DisplayAvailable   Display = "available"
	DisplayOccupied    Display = "occupied"
	DisplaySelected    Display = "selected"
	DisplayHighlighted Display = "highlighted"
)

// Presenter turns a seat list into grid rows for one viewer and decides what
// a click on a seat does. Highlight lists seats drawn as highlighted
// regardless of any other state.
type Presenter struct {
	Class     CapacityClass
	View      View
	Highlight []string
}

// Click applies the click policy of the presenter's view to seat. It returns
// a Toggle and true when the click should flip the seat's selection, and
// false when the click is ignored: always for drivers, for occupied seats
// when the viewer is a rider.
func (p Presenter) Click(seat Seat) (Toggle, bool) {
	v := p.View
	if v == nil {
		v = RiderView
	}
	if !v.allows(seat) {
		return Toggle{}, false
	}
	return Toggle{SeatID: seat.ID}, true
}

// RenderedSeat is a seat with the display state it is drawn with.
type RenderedSeat struct {
	Seat
	Display    Display `json:"display"`
	Selectable bool    `json:"selectable"`
}

// Row is one grid row. The designated last row of the class has no aisle and
// carries its seats in Seats with Irregular set; every other row is split
// into Left (columns 1 and 2) and Right (columns past the aisle).
type Row struct {
	Number    int            `json:"row"`
	Irregular bool           `json:"irregular"`
	Left      []RenderedSeat `json:"left,omitempty"`
	Right     []RenderedSeat `json:"right,omitempty"`
	Seats     []RenderedSeat `json:"seats,omitempty"`
}

// Layout is the rendered grid.
type Layout struct {
	Class      CapacityClass `json:"bus_type"`
	View       string        `json:"view"`
	Rows       []Row         `json:"rows"`
	Selected   []string      `json:"selected"`
	Consistent bool          `json:"consistent"`
}

// Render groups seats into rows in ascending row order and assigns each seat
// its display state. Precedence is highlighted, then occupied, then
// selected, then available.
//
// Render never fails. Seats that do not match the class shape are still
// drawn: rows are built from whatever seats are present, rows with no seats
// are skipped and Consistent is false so callers can tell.
func (p Presenter) Render(seats []Seat, selected *SelectionSet) Layout {
	view := p.View
	if view == nil {
		view = RiderView
	}
	class := p.Class.normalize()
	lastRow := class.LastRow()
	highlight := make(map[string]struct{}, len(p.Highlight))
	for _, id := range p.Highlight {
		highlight[id] = struct{}{}
	}
	if selected == nil {
		selected = &SelectionSet{}
	}

	byRow := make(map[int][]Seat)
	rowNums := make([]int, 0)
	for _, s := range seats {
		if _, seen := byRow[s.Row]; !seen {
			rowNums = append(rowNums, s.Row)
		}
		byRow[s.Row] = append(byRow[s.Row], s)
	}
	slices.Sort(rowNums)

	layout := Layout{
		Class:      class,
		View:       view.Name(),
		Rows:       make([]Row, 0, len(rowNums)),
		Selected:   selected.IDs(),
		Consistent: Validate(seats, class) == nil,
	}
	for _, n := range rowNums {
		rowSeats := byRow[n]
		slices.SortStableFunc(rowSeats, func(a, b Seat) int { return cmp.Compare(a.Col, b.Col) })
		row := Row{Number: n, Irregular: n == lastRow}
		for _, s := range rowSeats {
			rs := RenderedSeat{
				Seat:       s,
				Display:    displayOf(s, selected, highlight),
				Selectable: view.allows(s),
			}
			switch {
			case row.Irregular:
				row.Seats = append(row.Seats, rs)
			case s.Col <= 2:
				row.Left = append(row.Left, rs)
			default:
				row.Right = append(row.Right, rs)
			}
		}
		layout.Rows = append(layout.Rows, row)
	}
	return layout
}

func displayOf(s Seat, selected *SelectionSet, highlight map[string]struct{}) Display {
	if _, ok := highlight[s.ID]; ok {
		return DisplayHighlighted
	}
	if s.Occupied() {
		return DisplayOccupied
	}
	if s.State == Selected || selected.Has(s.ID) {
		return DisplaySelected
	}
	return DisplayAvailable
}
