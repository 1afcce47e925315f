package seatmap

// View is the role of whoever looks at a layout. It is a closed set: the
// only values are RiderView, DriverView and AdminView, and the unexported
// method keeps other packages from adding more.
type View interface {
	// Name is the role name the view corresponds to ("user", "driver", "admin").
	Name() string
	// allows reports whether clicking a seat in the given state may toggle it.
	allows(s Seat) bool
}

type riderView struct{}
type driverView struct{}
type adminView struct{}

var (
	// RiderView may select available seats only.
	RiderView View = riderView{}
	// DriverView is read-only.
	DriverView View = driverView{}
	// AdminView may select any seat, occupied ones included, to book or
	// cancel on behalf of others.
	AdminView View = adminView{}
)

func (riderView) Name() string { return "user" }
func (riderView) allows(s Seat) bool { return !s.Occupied() }
func (driverView) Name() string { return "driver" }
func (driverView) allows(Seat) bool { return false }
func (adminView) Name() string { return "admin" }
func (adminView) allows(Seat) bool { return true }

// ViewForRole maps an account role to its view. Unknown or empty roles get
// the most restrictive interactive view, RiderView.
func ViewForRole(role string) View {
	switch role {
	case "admin":
		return AdminView
	case "driver":
		return DriverView
	default:
		return RiderView
	}
}
