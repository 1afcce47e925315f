package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/logger"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/seatmap"
	"github.com/iliyamo/bus-seat-reservation/internal/session"
)

// ReservationHandler books and cancels seats for riders and admins. Seats
// come either from the caller's seat-map selection or from an explicit list
// in the request body.
type ReservationHandler struct {
	Buses        BusStore
	Reservations ReservationStore
	Users        UserStore
	Sessions     session.Store
	Events       EventPublisher
	// Purge drops cached public responses after seat availability changed.
	Purge func(ctx context.Context) error
	Log   *logger.Logger
	Now   func() time.Time
}

func NewReservationHandler(b BusStore, r ReservationStore, u UserStore, s session.Store, ev EventPublisher, purge func(context.Context) error, l *logger.Logger) *ReservationHandler {
	if l == nil {
		l = logger.Default()
	}
	return &ReservationHandler{
		Buses: b, Reservations: r, Users: u, Sessions: s,
		Events: ev, Purge: purge, Log: l, Now: time.Now,
	}
}

type reserveReq struct {
	BusID           uint64   `json:"bus_id" validate:"required,gt=0"`
	ReservationDate string   `json:"reservation_date" validate:"required,datetime=2006-01-02"`
	SeatNumbers     []string `json:"seat_numbers" validate:"omitempty,max=45,dive,max=4"`
}

// booking is a validated reserve request.
type booking struct {
	bus   *model.Bus
	date  string
	seats []string
}

// Reserve handles POST /v1/reservations for riders.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	return h.book(c, uid, uid, req)
}

// book runs the shared path of rider and admin bookings. actorID is the
// account making the request, userID the one the seats are booked for.
func (h *ReservationHandler) book(c echo.Context, actorID, userID uint64, req reserveReq) error {
	bk, err := h.prepare(c, req.BusID, req.ReservationDate, req.SeatNumbers, true)
	if bk == nil {
		return err
	}
	ctx := c.Request().Context()
	created, err := h.Reservations.CreateSeats(ctx, userID, bk.bus.ID, bk.date, bk.seats)
	if err != nil {
		var taken *repository.SeatsTakenError
		if errors.As(err, &taken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "seats already reserved", "seats": taken.Seats})
		}
		h.Log.WithUserID(actorID).LogError(ctx, "create reservation failed", err, "bus_id", bk.bus.ID)
		return internalError(c, "reservation failed")
	}

	h.clearSelection(ctx, c, session.Context{BusID: bk.bus.ID, Date: bk.date})
	h.afterChange(ctx, queue.EventConfirmed, bk.bus, userID, actorID, middleware.Role(c), bk.date, bk.seats)
	h.Log.LogReservationCreated(ctx, bk.bus.ID, userID, actorID, bk.date, bk.seats)

	return c.JSON(http.StatusCreated, echo.Map{
		"bus_id":           bk.bus.ID,
		"reservation_date": bk.date,
		"seat_numbers":     bk.seats,
		"reservations":     created,
	})
}

// prepare loads the bus, checks the date and resolves the seat list. It
// writes the error response itself and returns nil when the request cannot
// proceed. Past dates are refused when forBooking is set.
func (h *ReservationHandler) prepare(c echo.Context, busID uint64, rawDate string, explicit []string, forBooking bool) (*booking, error) {
	b, err := fetchBus(c, h.Buses, busID)
	if b == nil {
		return nil, err
	}
	if forBooking && !b.IsActive {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "bus is not in service"})
	}
	date, err := parseDate(rawDate, h.Now())
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if forBooking && inPast(date, h.Now()) {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_date is in the past"})
	}

	raw := explicit
	if len(raw) == 0 {
		raw, err = h.selectedSeats(c, session.Context{BusID: b.ID, Date: date})
		if err != nil {
			return nil, internalError(c, "session error")
		}
	}
	seats, invalid := normalizeSeats(raw, b.Class())
	if len(invalid) > 0 {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown seats for this bus", "seats": invalid})
	}
	if len(seats) == 0 {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "no seats selected"})
	}
	return &booking{bus: b, date: date, seats: seats}, nil
}

// selectedSeats returns the caller's seat-map selection if it is scoped to
// scope, and nothing otherwise.
func (h *ReservationHandler) selectedSeats(c echo.Context, scope session.Context) ([]string, error) {
	key, ok := sessionKey(c)
	if !ok || middleware.ViewerID(c) == "" {
		return nil, nil
	}
	s, err := h.Sessions.Load(c.Request().Context(), key)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.Context != scope {
		return nil, nil
	}
	return s.Selected.IDs(), nil
}

func (h *ReservationHandler) clearSelection(ctx context.Context, c echo.Context, scope session.Context) {
	key, ok := sessionKey(c)
	if !ok || middleware.ViewerID(c) == "" {
		return
	}
	_, err := h.Sessions.Update(ctx, key, func(s *session.Session) error {
		if s.Context == scope {
			s.ClearSelection()
		}
		return nil
	})
	if err != nil {
		requestLog(h.Log, c).LogError(ctx, "clear selection failed", err)
	}
}

// afterChange publishes the reservation event and drops cached listings.
// Neither failure undoes the committed change.
func (h *ReservationHandler) afterChange(ctx context.Context, typ string, b *model.Bus, userID, actorID uint64, actorRole, date string, seats []string) {
	h.publish(ctx, typ, b, userID, actorID, actorRole, date, seats)
	h.purge(ctx)
}

func (h *ReservationHandler) publish(ctx context.Context, typ string, b *model.Bus, userID, actorID uint64, actorRole, date string, seats []string) {
	if h.Events == nil {
		return
	}
	ev := queue.NewReservationEvent(typ, b.ID, userID, actorID, actorRole, date, seats)
	ev.BusNumber = b.BusNumber
	if err := h.Events.PublishReservation(ctx, ev); err != nil {
		h.Log.WithUserID(actorID).LogError(ctx, "publish reservation event failed", err, "type", typ)
	}
}

func (h *ReservationHandler) purge(ctx context.Context) {
	if h.Purge == nil {
		return
	}
	if err := h.Purge(ctx); err != nil {
		h.Log.LogError(ctx, "purge response cache failed", err)
	}
}

// reservationItem is a reservation with a read-only seat map that
// highlights its seat.
type reservationItem struct {
	model.ReservationDetail
	Layout seatmap.Layout `json:"layout"`
}

// MyReservations handles GET /v1/my-reservations.
func (h *ReservationHandler) MyReservations(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	list, err := h.Reservations.ListByUser(ctx, uid)
	if err != nil {
		return internalError(c, "database error")
	}
	type departure struct {
		bus  uint64
		date string
	}
	occupancy := make(map[departure][]seatmap.Seat)
	out := make([]reservationItem, 0, len(list))
	for _, r := range list {
		class := classOf(r)
		k := departure{r.BusID, r.ReservationDate}
		seats, ok := occupancy[k]
		if !ok {
			reserved, err := h.Reservations.ReservedSeatNumbers(ctx, r.BusID, r.ReservationDate)
			if err != nil {
				return internalError(c, "database error")
			}
			seats = seatmap.Overlay(seatmap.Generate(class), reserved)
			occupancy[k] = seats
		}
		p := seatmap.Presenter{Class: class, View: seatmap.DriverView, Highlight: []string{r.SeatNumber}}
		out = append(out, reservationItem{ReservationDetail: r, Layout: p.Render(seats, nil)})
	}
	return c.JSON(http.StatusOK, out)
}

func classOf(r model.ReservationDetail) seatmap.CapacityClass {
	if c, err := seatmap.ParseCapacityClass(r.BusType); err == nil && r.BusType != "" {
		return c
	}
	return seatmap.ClassForTotalSeats(r.TotalSeats)
}

// CancelMine handles DELETE /v1/reservations/:id for the reservation owner.
func (h *ReservationHandler) CancelMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	r, err := h.loadReservation(c)
	if r == nil {
		return err
	}
	if r.UserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your reservation"})
	}
	return h.cancel(c, r, uid)
}

func (h *ReservationHandler) loadReservation(c echo.Context) (*model.ReservationDetail, error) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.Reservations.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return nil, internalError(c, "database error")
	}
	return r, nil
}

func (h *ReservationHandler) cancel(c echo.Context, r *model.ReservationDetail, by uint64) error {
	ctx := c.Request().Context()
	if err := h.Reservations.Cancel(ctx, r.ID, by); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not confirmed"})
		}
		h.Log.WithUserID(by).LogError(ctx, "cancel reservation failed", err, "reservation_id", r.ID)
		return internalError(c, "cancel failed")
	}
	seats := []string{r.SeatNumber}
	bus := &model.Bus{ID: r.BusID, BusNumber: r.BusNumber}
	h.afterChange(ctx, queue.EventCancelled, bus, r.UserID, by, middleware.Role(c), r.ReservationDate, seats)
	h.Log.LogReservationCancelled(ctx, r.BusID, by, r.ReservationDate, seats)
	return c.JSON(http.StatusOK, echo.Map{"id": r.ID, "status": model.StatusCancelled})
}
