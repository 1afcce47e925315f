package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/seatmap"
)

// DriverHandler serves drivers their assigned buses and passenger
// manifests. Drivers never select seats; the layout they get is read-only.
type DriverHandler struct {
	Buses        BusStore
	Reservations ReservationStore
	Now          func() time.Time
}

func NewDriverHandler(b BusStore, r ReservationStore) *DriverHandler {
	return &DriverHandler{Buses: b, Reservations: r, Now: time.Now}
}

// MyBuses handles GET /v1/driver/buses.
func (h *DriverHandler) MyBuses(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	buses, err := h.Buses.ListByDriver(c.Request().Context(), uid)
	if err != nil {
		return internalError(c, "database error")
	}
	if buses == nil {
		buses = []model.Bus{}
	}
	return c.JSON(http.StatusOK, buses)
}

type passenger struct {
	ReservationID uint64 `json:"reservation_id"`
	SeatNumber    string `json:"seat_number"`
	Name          string `json:"passenger_name"`
	Phone         string `json:"passenger_phone,omitempty"`
}

// Manifest handles GET /v1/driver/buses/:id/manifest?reservation_date=. Only
// the assigned driver, or an admin, may read it.
func (h *DriverHandler) Manifest(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := loadBus(c, h.Buses)
	if b == nil {
		return err
	}
	if middleware.Role(c) != model.RoleAdmin && (b.DriverID == nil || *b.DriverID != uid) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "bus is not assigned to you"})
	}
	date, err := parseDate(c.QueryParam("reservation_date"), h.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	list, err := h.Reservations.ListByBusAndDate(c.Request().Context(), b.ID, date)
	if err != nil {
		return internalError(c, "database error")
	}
	reserved := make([]string, 0, len(list))
	passengers := make([]passenger, 0, len(list))
	for _, r := range list {
		reserved = append(reserved, r.SeatNumber)
		passengers = append(passengers, passenger{
			ReservationID: r.ID,
			SeatNumber:    r.SeatNumber,
			Name:          r.PassengerName,
			Phone:         r.PassengerPhone,
		})
	}
	class := b.Class()
	p := seatmap.Presenter{Class: class, View: seatmap.DriverView}
	return c.JSON(http.StatusOK, echo.Map{
		"bus":              b,
		"reservation_date": date,
		"occupied_seats":   len(reserved),
		"layout":           p.Render(seatmap.Overlay(seatmap.Generate(class), reserved), nil),
		"passengers":       passengers,
	})
}
