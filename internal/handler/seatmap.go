package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/logger"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/seatmap"
	"github.com/iliyamo/bus-seat-reservation/internal/session"
)

var errContextMismatch = errors.New("seat map for this bus and date is not open")

// SeatMapHandler drives the interactive seat map of one viewer: opening a
// bus for a date, clicking seats and clearing the selection. The viewer's
// state lives in a session.Store keyed by account and viewer id.
type SeatMapHandler struct {
	Buses        BusStore
	Reservations ReservationStore
	Sessions     session.Store
	Log          *logger.Logger
	Now          func() time.Time
}

func NewSeatMapHandler(b BusStore, r ReservationStore, s session.Store, l *logger.Logger) *SeatMapHandler {
	if l == nil {
		l = logger.Default()
	}
	return &SeatMapHandler{Buses: b, Reservations: r, Sessions: s, Log: l, Now: time.Now}
}

type seatMapResp struct {
	ViewerID string          `json:"viewer_id"`
	Seq      uint64          `json:"seq"`
	Context  session.Context `json:"context"`
	Layout   seatmap.Layout  `json:"layout"`
}

// sessionKey returns the store key of the calling viewer.
func sessionKey(c echo.Context) (string, bool) {
	uid, err := getUserID(c)
	if err != nil {
		return "", false
	}
	return session.Key(uid, middleware.ViewerID(c)), true
}

// SeatMap handles GET /v1/buses/:id/seatmap?reservation_date=. Opening a
// different bus or date than before resets the viewer's selection. The
// occupancy snapshot is applied only if no newer request for this viewer
// began while it was being fetched; a superseded request answers 409 and
// leaves the session as the newer request will set it.
func (h *SeatMapHandler) SeatMap(c echo.Context) error {
	key, ok := sessionKey(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := loadBus(c, h.Buses)
	if b == nil {
		return err
	}
	date, err := parseDate(c.QueryParam("reservation_date"), h.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	scope := session.Context{BusID: b.ID, Date: date}

	var ticket session.Ticket
	if _, err := h.Sessions.Update(ctx, key, func(s *session.Session) error {
		ticket = s.Begin(scope, b.Class())
		return nil
	}); err != nil {
		requestLog(h.Log, c).LogError(ctx, "begin seat map failed", err)
		return internalError(c, "session error")
	}

	reserved, err := h.Reservations.ReservedSeatNumbers(ctx, b.ID, date)
	if err != nil {
		requestLog(h.Log, c).LogError(ctx, "load occupancy failed", err, "bus_id", b.ID)
		return internalError(c, "database error")
	}

	applied := false
	sess, err := h.Sessions.Update(ctx, key, func(s *session.Session) error {
		applied = s.Apply(ticket, reserved)
		return nil
	})
	if err != nil {
		requestLog(h.Log, c).LogError(ctx, "apply occupancy failed", err)
		return internalError(c, "session error")
	}
	if !applied {
		requestLog(h.Log, c).LogSelectionDiscarded(ctx, middleware.ViewerID(c), b.ID, ticket.Seq)
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "superseded by a newer seat map request",
			"seq":   ticket.Seq,
		})
	}
	return c.JSON(http.StatusOK, seatMapResp{
		ViewerID: middleware.ViewerID(c),
		Seq:      ticket.Seq,
		Context:  sess.Context,
		Layout:   sess.Render(viewOf(c)),
	})
}

type toggleReq struct {
	SeatID          string `json:"seat_id" validate:"required,max=4"`
	ReservationDate string `json:"reservation_date" validate:"required,datetime=2006-01-02"`
}

// Toggle handles POST /v1/buses/:id/seatmap/toggle. The seat map must have
// been opened for the same bus and date first. Clicks the caller's view
// does not allow, and unknown seat ids, leave the selection unchanged and
// report changed=false.
func (h *SeatMapHandler) Toggle(c echo.Context) error {
	key, ok := sessionKey(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	busID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	var req toggleReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	scope := session.Context{BusID: busID, Date: req.ReservationDate}
	view := viewOf(c)
	seatID := strings.ToUpper(strings.TrimSpace(req.SeatID))

	changed := false
	ctx := c.Request().Context()
	sess, err := h.Sessions.Update(ctx, key, func(s *session.Session) error {
		if s.Context != scope {
			return errContextMismatch
		}
		changed = s.Toggle(view, seatID)
		return nil
	})
	if err != nil {
		if errors.Is(err, errContextMismatch) {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		requestLog(h.Log, c).LogError(ctx, "toggle seat failed", err)
		return internalError(c, "session error")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"changed": changed,
		"seat_id": seatID,
		"layout":  sess.Render(view),
	})
}

// ClearSelection handles DELETE /v1/buses/:id/seatmap/selection?reservation_date=.
// The date defaults to today. It is a no-op unless the viewer has exactly
// that bus and date open.
func (h *SeatMapHandler) ClearSelection(c echo.Context) error {
	key, ok := sessionKey(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	busID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	date, err := parseDate(c.QueryParam("reservation_date"), h.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	scope := session.Context{BusID: busID, Date: date}
	ctx := c.Request().Context()
	if _, err := h.Sessions.Update(ctx, key, func(s *session.Session) error {
		if s.Context == scope {
			s.ClearSelection()
		}
		return nil
	}); err != nil {
		requestLog(h.Log, c).LogError(ctx, "clear selection failed", err)
		return internalError(c, "session error")
	}
	return c.NoContent(http.StatusNoContent)
}
