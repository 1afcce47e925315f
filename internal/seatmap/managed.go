package seatmap

// ManagedPresenter pairs a Presenter with a SelectionSet it owns. It suits
// callers that render once and have nowhere else to keep the selection, such
// as a read-only history view or a one-shot admin booking request. Callers
// that keep selections across requests own a SelectionSet themselves and
// use Presenter directly.
type ManagedPresenter struct {
	Presenter
	selection SelectionSet
}

// NewManagedPresenter starts with an empty selection.
func NewManagedPresenter(p Presenter) *ManagedPresenter {
	return &ManagedPresenter{Presenter: p}
}

// Click runs the click policy and applies the resulting toggle to the owned
// selection. It reports whether the selection changed.
func (m *ManagedPresenter) Click(seat Seat) bool {
	t, ok := m.Presenter.Click(seat)
	if ok {
		m.selection.Apply(t)
	}
	return ok
}

// Selection returns the seats currently selected.
func (m *ManagedPresenter) Selection() []string { return m.selection.IDs() }

// Render draws seats with the owned selection.
func (m *ManagedPresenter) Render(seats []Seat) Layout {
	return m.Presenter.Render(seats, &m.selection)
}
