package model

import "github.com/iliyamo/bus-seat-reservation/internal/seatmap"

// Route is a row of the `bus_routes` table: a named connection between a
// departure location and a destination.
type Route struct {
	ID                uint64 `json:"id"`                 // bus_routes.id
	Name              string `json:"name"`               // bus_routes.name
	DepartureLocation string `json:"departure_location"` // bus_routes.departure_location
	Destination       string `json:"destination"`        // bus_routes.destination
	IsActive          bool   `json:"is_active"`          // bus_routes.is_active
}

// Bus mirrors the `buses` table joined with its route. BusType is the
// capacity class and decides the seat topology; TotalSeats is kept in the
// table for reporting and always equals BusType.TotalSeats().
//
// Fields:
//
//	DriverID      – assigned driver, nil when unassigned.
//	DepartureTime – local time of day, "HH:MM:SS".
//	ArrivalTime   – local time of day, "HH:MM:SS".
type Bus struct {
	ID                uint64                `json:"id"`
	BusNumber         string                `json:"bus_number"`
	RouteID           uint64                `json:"route_id"`
	DriverID          *uint64               `json:"driver_id,omitempty"`
	BusType           seatmap.CapacityClass `json:"bus_type"`
	TotalSeats        int                   `json:"total_seats"`
	DepartureTime     string                `json:"departure_time"`
	ArrivalTime       string                `json:"arrival_time"`
	IsActive          bool                  `json:"is_active"`
	RouteName         string                `json:"route_name,omitempty"`
	DepartureLocation string                `json:"departure_location,omitempty"`
	Destination       string                `json:"destination,omitempty"`
}

// Class returns the capacity class of the bus, falling back to the seat
// count for rows written before bus_type existed.
func (b Bus) Class() seatmap.CapacityClass {
	if b.BusType != "" {
		if c, err := seatmap.ParseCapacityClass(string(b.BusType)); err == nil {
			return c
		}
	}
	return seatmap.ClassForTotalSeats(b.TotalSeats)
}
