package model

import "time"

// Reservation statuses stored in reservations.status.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Reservation is one reserved seat on one bus for one travel date. A rider
// booking several seats gets one row per seat, all sharing bus and date.
//
// Fields:
//
//	SeatNumber      – seat identifier from the bus topology, e.g. "9D".
//	ReservationDate – travel date, "YYYY-MM-DD".
//	Status          – confirmed, cancelled or completed.
//	CancelledBy     – account that cancelled it, nil while not cancelled.
type Reservation struct {
	ID              uint64    `json:"id"`
	UserID          uint64    `json:"user_id"`
	BusID           uint64    `json:"bus_id"`
	SeatNumber      string    `json:"seat_number"`
	ReservationDate string    `json:"reservation_date"`
	Status          string    `json:"status"`
	CancelledBy     *uint64   `json:"cancelled_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ReservationDetail is a reservation joined with the bus, route and
// passenger columns that the history, manifest and admin listings show.
type ReservationDetail struct {
	Reservation
	BusNumber      string `json:"bus_number"`
	BusType        string `json:"bus_type"`
	TotalSeats     int    `json:"total_seats"`
	RouteName      string `json:"route_name"`
	Destination    string `json:"destination"`
	DepartureTime  string `json:"departure_time"`
	PassengerName  string `json:"passenger_name"`
	PassengerPhone string `json:"passenger_phone,omitempty"`
}
