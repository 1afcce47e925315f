// Package session keeps the per-viewer seat selection between requests.
//
// A viewer (one browser tab of one account) looks at one bus on one travel
// date at a time. Switching to another bus or date resets the selection and
// the occupancy snapshot before anything else happens. Every occupancy fetch
// is numbered; a response is only applied if it belongs to the newest fetch
// for the current context, so a slow response for a bus the viewer has
// already left can never paint the wrong seats.
package session

import (
	"slices"

	"github.com/iliyamo/bus-seat-reservation/internal/seatmap"
)

// Context is the bus and travel date a selection is scoped to.
type Context struct {
	BusID uint64 `json:"bus_id"`
	Date  string `json:"reservation_date"`
}

// IsZero reports whether no bus has been opened yet.
func (c Context) IsZero() bool { return c.BusID == 0 && c.Date == "" }

// Ticket identifies one occupancy fetch. It is handed out by Begin and must
// be passed back to Apply together with the fetched snapshot.
type Ticket struct {
	Seq     uint64  `json:"seq"`
	Context Context `json:"context"`
}

// Session is the selection state of one viewer.
type Session struct {
	Context    Context               `json:"context"`
	Class      seatmap.CapacityClass `json:"bus_type"`
	Seq        uint64                `json:"seq"`
	AppliedSeq uint64                `json:"applied_seq"`
	Reserved   []string              `json:"reserved"`
	Selected   seatmap.SelectionSet  `json:"selected"`
}

// Begin starts an occupancy fetch for ctx. When ctx or class differ from the
// session's current scope the selection and the last snapshot are dropped
// first. The returned ticket supersedes every ticket issued before it.
func (s *Session) Begin(ctx Context, class seatmap.CapacityClass) Ticket {
	if ctx != s.Context || class.String() != s.Class.String() {
		s.Context = ctx
		s.Class = class
		s.Reserved = nil
		s.AppliedSeq = 0
		s.Selected.Clear()
	}
	s.Seq++
	return Ticket{Seq: s.Seq, Context: s.Context}
}

// Apply stores reserved as the current occupancy snapshot if t is the latest
// ticket for the current context. It returns false, leaving the session
// untouched, for stale tickets.
func (s *Session) Apply(t Ticket, reserved []string) bool {
	if t.Context != s.Context || t.Seq != s.Seq || t.Seq <= s.AppliedSeq {
		return false
	}
	s.Reserved = slices.Clone(reserved)
	s.AppliedSeq = t.Seq
	return true
}

// Seats is the topology of the session's bus overlaid with the last applied
// snapshot.
func (s *Session) Seats() []seatmap.Seat {
	return seatmap.Overlay(seatmap.Generate(s.Class), s.Reserved)
}

// Toggle runs a click on seatID through the click policy of view. Unknown
// seats, a session with no bus open and clicks the policy refuses are
// ignored; the return value reports whether the selection changed. A seat
// that is already selected can always be deselected, even when a newer
// snapshot shows it occupied and the policy would refuse selecting it.
func (s *Session) Toggle(view seatmap.View, seatID string) bool {
	if s.Context.IsZero() {
		return false
	}
	seat, ok := seatmap.Find(s.Seats(), seatID)
	if !ok {
		return false
	}
	if s.Selected.Has(seat.ID) {
		s.Selected.Remove(seat.ID)
		return true
	}
	t, ok := seatmap.Presenter{Class: s.Class, View: view}.Click(seat)
	if !ok {
		return false
	}
	s.Selected.Apply(t)
	return true
}

// Render draws the session's bus for view.
func (s *Session) Render(view seatmap.View) seatmap.Layout {
	p := seatmap.Presenter{Class: s.Class, View: view}
	return p.Render(s.Seats(), &s.Selected)
}

// ClearSelection empties the selection and keeps the rest of the session.
func (s *Session) ClearSelection() { s.Selected.Clear() }
