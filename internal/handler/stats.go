package handler

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

type busOccupancy struct {
	BusID          uint64  `json:"bus_id"`
	BusNumber      string  `json:"bus_number"`
	Route          string  `json:"route"`
	TotalSeats     int     `json:"total_seats"`
	ReservedSeats  int     `json:"reserved_seats"`
	AvailableSeats int     `json:"available_seats"`
	OccupancyRate  float64 `json:"occupancy_rate"`
}

// Occupancy handles GET /v1/admin/occupancy?reservation_date=: per-bus load
// of every active bus, as a percentage rounded to two decimals.
func (h *BusHandler) Occupancy(c echo.Context) error {
	date, err := parseDate(c.QueryParam("reservation_date"), h.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	buses, err := h.Buses.ListActive(ctx, "")
	if err != nil {
		return internalError(c, "database error")
	}
	out := make([]busOccupancy, 0, len(buses))
	for _, b := range buses {
		reserved, err := h.Reservations.ReservedSeatNumbers(ctx, b.ID, date)
		if err != nil {
			return internalError(c, "database error")
		}
		total := b.Class().TotalSeats()
		route := b.RouteName
		if route == "" {
			route = "Unknown"
		}
		o := busOccupancy{
			BusID:          b.ID,
			BusNumber:      b.BusNumber,
			Route:          route,
			TotalSeats:     total,
			ReservedSeats:  len(reserved),
			AvailableSeats: max(total-len(reserved), 0),
		}
		if total > 0 {
			o.OccupancyRate = math.Round(float64(len(reserved))*10000/float64(total)) / 100
		}
		out = append(out, o)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_date": date, "buses": out})
}

// Dashboard handles GET /v1/admin/dashboard.
func (h *BusHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	users, err := h.Users.ListAll(ctx)
	if err != nil {
		return internalError(c, "database error")
	}
	buses, err := h.Buses.ListActive(ctx, "")
	if err != nil {
		return internalError(c, "database error")
	}
	routes, err := h.Buses.ListRoutes(ctx)
	if err != nil {
		return internalError(c, "database error")
	}
	today := h.Now().Format(dateLayout)
	todays, err := h.Reservations.ListAll(ctx, today)
	if err != nil {
		return internalError(c, "database error")
	}
	confirmed := 0
	for _, r := range todays {
		if r.Status == model.StatusConfirmed {
			confirmed++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total_users":        len(users),
		"total_buses":        len(buses),
		"total_routes":       len(routes),
		"today_reservations": confirmed,
	})
}
