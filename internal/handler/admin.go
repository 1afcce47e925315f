package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/session"
)

// AdminReservations handles GET /v1/admin/reservations?reservation_date=.
// Without a date every reservation is listed.
func (h *ReservationHandler) AdminReservations(c echo.Context) error {
	date := c.QueryParam("reservation_date")
	if date != "" {
		var err error
		if date, err = parseDate(date, h.Now()); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}
	list, err := h.Reservations.ListAll(c.Request().Context(), date)
	if err != nil {
		return internalError(c, "database error")
	}
	if list == nil {
		list = []model.ReservationDetail{}
	}
	return c.JSON(http.StatusOK, list)
}

type directBookingReq struct {
	UserID uint64 `json:"user_id" validate:"required,gt=0"`
	reserveReq
}

// DirectBooking handles POST /v1/admin/reservations/direct: an admin books
// their selection, or an explicit seat list, on behalf of another account.
func (h *ReservationHandler) DirectBooking(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req directBookingReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if _, err := h.Users.GetByID(c.Request().Context(), req.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return internalError(c, "database error")
	}
	return h.book(c, adminID, req.UserID, req.reserveReq)
}

type cancelSeatsReq struct {
	ReservationDate string   `json:"reservation_date" validate:"required,datetime=2006-01-02"`
	SeatNumbers     []string `json:"seat_numbers" validate:"omitempty,max=45,dive,max=4"`
}

// CancelSeats handles POST /v1/admin/buses/:id/cancel-seats. It cancels the
// confirmed reservations holding the admin's selected seats (or the listed
// ones) and reports how many were cancelled.
func (h *ReservationHandler) CancelSeats(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	busID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	var req cancelSeatsReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	bk, err := h.prepare(c, busID, req.ReservationDate, req.SeatNumbers, false)
	if bk == nil {
		return err
	}
	ctx := c.Request().Context()
	released, err := h.Reservations.CancelSeats(ctx, bk.bus.ID, bk.date, bk.seats, adminID)
	if err != nil {
		h.Log.WithUserID(adminID).LogError(ctx, "cancel seats failed", err, "bus_id", bk.bus.ID)
		return internalError(c, "cancel failed")
	}
	h.clearSelection(ctx, c, session.Context{BusID: bk.bus.ID, Date: bk.date})
	if len(released) > 0 {
		// one event per passenger, carrying only that passenger's seats
		var owners []uint64
		byOwner := make(map[uint64][]string)
		for _, r := range released {
			if _, ok := byOwner[r.UserID]; !ok {
				owners = append(owners, r.UserID)
			}
			byOwner[r.UserID] = append(byOwner[r.UserID], r.SeatNumber)
		}
		for _, uid := range owners {
			h.publish(ctx, queue.EventCancelled, bk.bus, uid, adminID, middleware.Role(c), bk.date, byOwner[uid])
		}
		h.purge(ctx)
		seats := make([]string, 0, len(released))
		for _, r := range released {
			seats = append(seats, r.SeatNumber)
		}
		h.Log.LogReservationCancelled(ctx, bk.bus.ID, adminID, bk.date, seats)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bus_id":           bk.bus.ID,
		"reservation_date": bk.date,
		"seat_numbers":     bk.seats,
		"cancelled":        len(released),
	})
}

// AdminCancel handles POST /v1/admin/reservations/:id/cancel.
func (h *ReservationHandler) AdminCancel(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	r, err := h.loadReservation(c)
	if r == nil {
		return err
	}
	return h.cancel(c, r, adminID)
}
