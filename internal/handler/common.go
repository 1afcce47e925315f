package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/logger"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/seatmap"
)

// dateLayout is the wire format of travel dates.
const dateLayout = "2006-01-02"

// BusStore is the bus data the handlers need.
type BusStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Bus, error)
	ListActive(ctx context.Context, destination string) ([]model.Bus, error)
	ListByDriver(ctx context.Context, driverID uint64) ([]model.Bus, error)
	Create(ctx context.Context, b *model.Bus) error
	Update(ctx context.Context, b *model.Bus, fromDate string) error
	Delete(ctx context.Context, id uint64) error
	CreateRoute(ctx context.Context, rt *model.Route) error
	GetRoute(ctx context.Context, id uint64) (*model.Route, error)
	UpdateRoute(ctx context.Context, rt *model.Route) error
	DeleteRoute(ctx context.Context, id uint64) error
	ListRoutes(ctx context.Context) ([]model.Route, error)
}

// ReservationStore is the reservation data the handlers need.
type ReservationStore interface {
	ReservedSeatNumbers(ctx context.Context, busID uint64, date string) ([]string, error)
	CreateSeats(ctx context.Context, userID, busID uint64, date string, seats []string) ([]model.Reservation, error)
	GetByID(ctx context.Context, id uint64) (*model.ReservationDetail, error)
	Cancel(ctx context.Context, id, cancelledBy uint64) error
	CancelSeats(ctx context.Context, busID uint64, date string, seats []string, cancelledBy uint64) ([]model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error)
	ListByBusAndDate(ctx context.Context, busID uint64, date string) ([]model.ReservationDetail, error)
	ListAll(ctx context.Context, date string) ([]model.ReservationDetail, error)
}

// UserStore is the account data the handlers need.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
}

// EventPublisher sends reservation events to the broker.
type EventPublisher interface {
	PublishReservation(ctx context.Context, ev queue.ReservationEvent) error
}

// getUserID returns the authenticated account id.
func getUserID(c echo.Context) (uint64, error) {
	return middleware.UserID(c)
}

// requestLog tags l with the caller's account id when there is one.
func requestLog(l *logger.Logger, c echo.Context) *logger.Logger {
	if uid, err := getUserID(c); err == nil {
		return l.WithUserID(uid)
	}
	return l
}

// viewOf maps the caller's role claim to a seat-map view.
func viewOf(c echo.Context) seatmap.View {
	return seatmap.ViewForRole(middleware.Role(c))
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

var errBadDate = errors.New("reservation_date must be YYYY-MM-DD")

// parseDate validates a travel date, defaulting to today when empty.
func parseDate(raw string, now time.Time) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Format(dateLayout), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", errBadDate
	}
	return t.Format(dateLayout), nil
}

// inPast reports whether date lies before the calendar day of now.
func inPast(date string, now time.Time) bool {
	return date < now.Format(dateLayout)
}

// normalizeSeats upper-cases, trims and deduplicates seat ids, keeping the
// first occurrence order, and splits them into ids the bus class has and ids
// it does not.
func normalizeSeats(raw []string, class seatmap.CapacityClass) (valid, invalid []string) {
	set := seatmap.NewSelectionSet()
	for _, s := range raw {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			set.Add(s)
		}
	}
	for _, s := range set.IDs() {
		if seatmap.Contains(class, s) {
			valid = append(valid, s)
		} else {
			invalid = append(invalid, s)
		}
	}
	return valid, invalid
}

func internalError(c echo.Context, msg string) error {
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}
