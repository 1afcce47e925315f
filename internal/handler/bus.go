package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/logger"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/seatmap"
)

// BusHandler serves the public bus catalogue and the admin bus and route
// management endpoints.
type BusHandler struct {
	Buses        BusStore
	Reservations ReservationStore
	Users        UserStore
	// Purge drops cached public responses after the fleet changed.
	Purge func(ctx context.Context) error
	Log   *logger.Logger
	Now   func() time.Time
}

func NewBusHandler(b BusStore, r ReservationStore, u UserStore, l *logger.Logger) *BusHandler {
	if l == nil {
		l = logger.Default()
	}
	return &BusHandler{Buses: b, Reservations: r, Users: u, Log: l, Now: time.Now}
}

// busAvailability is a bus with its seat counts for one travel date.
type busAvailability struct {
	model.Bus
	ReservationDate string `json:"reservation_date"`
	ReservedSeats   int    `json:"reserved_seats"`
	AvailableSeats  int    `json:"available_seats"`
}

// ListBuses handles GET /v1/buses?destination=&reservation_date=.
func (h *BusHandler) ListBuses(c echo.Context) error {
	date, err := parseDate(c.QueryParam("reservation_date"), h.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	buses, err := h.Buses.ListActive(ctx, c.QueryParam("destination"))
	if err != nil {
		h.Log.LogError(ctx, "list buses failed", err)
		return internalError(c, "database error")
	}
	out := make([]busAvailability, 0, len(buses))
	for _, b := range buses {
		reserved, err := h.Reservations.ReservedSeatNumbers(ctx, b.ID, date)
		if err != nil {
			h.Log.LogError(ctx, "count reserved seats failed", err, "bus_id", b.ID)
			return internalError(c, "database error")
		}
		total := b.Class().TotalSeats()
		out = append(out, busAvailability{
			Bus:             b,
			ReservationDate: date,
			ReservedSeats:   len(reserved),
			AvailableSeats:  max(total-len(reserved), 0),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// loadBus writes 400/404/500 itself and returns nil in that case.
func loadBus(c echo.Context, store BusStore) (*model.Bus, error) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	return fetchBus(c, store, id)
}

func fetchBus(c echo.Context, store BusStore, id uint64) (*model.Bus, error) {
	b, err := store.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		return nil, internalError(c, "database error")
	}
	return b, nil
}

// GetBus handles GET /v1/buses/:id.
func (h *BusHandler) GetBus(c echo.Context) error {
	b, err := loadBus(c, h.Buses)
	if b == nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// BusSeats handles GET /v1/buses/:id/seats: the occupancy snapshot of one
// departure without any per-viewer state.
func (h *BusHandler) BusSeats(c echo.Context) error {
	b, err := loadBus(c, h.Buses)
	if b == nil {
		return err
	}
	date, err := parseDate(c.QueryParam("reservation_date"), h.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	reserved, err := h.Reservations.ReservedSeatNumbers(c.Request().Context(), b.ID, date)
	if err != nil {
		return internalError(c, "database error")
	}
	total := b.Class().TotalSeats()
	return c.JSON(http.StatusOK, echo.Map{
		"bus_id":                b.ID,
		"bus_type":              b.Class(),
		"reservation_date":      date,
		"total_seats":           total,
		"reserved_seats":        len(reserved),
		"available_seats":       max(total-len(reserved), 0),
		"reserved_seat_numbers": reserved,
	})
}

// ListRoutes handles GET /v1/routes.
func (h *BusHandler) ListRoutes(c echo.Context) error {
	routes, err := h.Buses.ListRoutes(c.Request().Context())
	if err != nil {
		return internalError(c, "database error")
	}
	if routes == nil {
		routes = []model.Route{}
	}
	return c.JSON(http.StatusOK, routes)
}

type createRouteReq struct {
	Name              string `json:"name" validate:"required,max=100"`
	DepartureLocation string `json:"departure_location" validate:"required,max=100"`
	Destination       string `json:"destination" validate:"required,max=100"`
}

// CreateRoute handles POST /v1/admin/routes.
func (h *BusHandler) CreateRoute(c echo.Context) error {
	var req createRouteReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	rt := &model.Route{
		Name:              strings.TrimSpace(req.Name),
		DepartureLocation: strings.TrimSpace(req.DepartureLocation),
		Destination:       strings.TrimSpace(req.Destination),
	}
	if err := h.Buses.CreateRoute(c.Request().Context(), rt); err != nil {
		h.Log.LogError(c.Request().Context(), "create route failed", err)
		return internalError(c, "create route failed")
	}
	h.purge(c.Request().Context())
	return c.JSON(http.StatusCreated, rt)
}

type createBusReq struct {
	BusNumber     string  `json:"bus_number" validate:"required,max=20"`
	RouteID       uint64  `json:"route_id" validate:"required,gt=0"`
	DriverID      *uint64 `json:"driver_id" validate:"omitempty,gt=0"`
	BusType       string  `json:"bus_type"`
	DepartureTime string  `json:"departure_time" validate:"required"`
	ArrivalTime   string  `json:"arrival_time" validate:"required"`
}

// parseClock accepts "HH:MM" or "HH:MM:SS" and returns "HH:MM:SS".
func parseClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	return "", false
}

// CreateBus handles POST /v1/admin/buses. The seat topology follows from
// bus_type; an empty bus_type means the 28-seat class.
func (h *BusHandler) CreateBus(c echo.Context) error {
	var req createBusReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	class, err := seatmap.ParseCapacityClass(req.BusType)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus_type must be 28-seat or 45-seat"})
	}
	dep, ok1 := parseClock(req.DepartureTime)
	arr, ok2 := parseClock(req.ArrivalTime)
	if !ok1 || !ok2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_time and arrival_time must be HH:MM[:SS]"})
	}
	ctx := c.Request().Context()
	if req.DriverID != nil {
		if ok, err := h.checkDriver(ctx, c, *req.DriverID); !ok {
			return err
		}
	}
	b := &model.Bus{
		BusNumber:     strings.TrimSpace(req.BusNumber),
		RouteID:       req.RouteID,
		DriverID:      req.DriverID,
		BusType:       class,
		DepartureTime: dep,
		ArrivalTime:   arr,
	}
	if err := h.Buses.Create(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "route not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "bus number already exists"})
		}
		h.Log.LogError(ctx, "create bus failed", err)
		return internalError(c, "create bus failed")
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, b)
}

func (h *BusHandler) checkDriver(ctx context.Context, c echo.Context, id uint64) (bool, error) {
	if h.Users == nil {
		return true, nil
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "driver not found"})
		}
		return false, internalError(c, "database error")
	}
	if u.Role != model.RoleDriver {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "driver_id does not belong to a driver"})
	}
	return true, nil
}

func (h *BusHandler) purge(ctx context.Context) {
	if h.Purge == nil {
		return
	}
	if err := h.Purge(ctx); err != nil {
		h.Log.LogError(ctx, "purge response cache failed", err)
	}
}

// updateRouteReq carries only the fields to change.
type updateRouteReq struct {
	Name              *string `json:"name" validate:"omitempty,max=100"`
	DepartureLocation *string `json:"departure_location" validate:"omitempty,max=100"`
	Destination       *string `json:"destination" validate:"omitempty,max=100"`
	IsActive          *bool   `json:"is_active"`
}

// setText trims *src into *dst. It reports false for a blank value.
func setText(dst *string, src *string) bool {
	if src == nil {
		return true
	}
	v := strings.TrimSpace(*src)
	if v == "" {
		return false
	}
	*dst = v
	return true
}

// UpdateRoute handles PUT /v1/admin/routes/:id.
func (h *BusHandler) UpdateRoute(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}
	var req updateRouteReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx := c.Request().Context()
	rt, err := h.Buses.GetRoute(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return internalError(c, "database error")
	}
	if !setText(&rt.Name, req.Name) || !setText(&rt.DepartureLocation, req.DepartureLocation) || !setText(&rt.Destination, req.Destination) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "route fields must not be blank"})
	}
	if req.IsActive != nil {
		rt.IsActive = *req.IsActive
	}
	if err := h.Buses.UpdateRoute(ctx, rt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		h.Log.LogError(ctx, "update route failed", err, "route_id", id)
		return internalError(c, "update route failed")
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, rt)
}

// DeleteRoute handles DELETE /v1/admin/routes/:id. Routes are deactivated,
// and only once no active bus runs on them.
func (h *BusHandler) DeleteRoute(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}
	ctx := c.Request().Context()
	if err := h.Buses.DeleteRoute(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "route is used by active buses"})
		}
		h.Log.LogError(ctx, "delete route failed", err, "route_id", id)
		return internalError(c, "delete route failed")
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

// updateBusReq carries only the fields to change. driver_id 0 unassigns the
// driver.
type updateBusReq struct {
	BusNumber     *string `json:"bus_number" validate:"omitempty,max=20"`
	RouteID       *uint64 `json:"route_id" validate:"omitempty,gt=0"`
	DriverID      *uint64 `json:"driver_id"`
	BusType       *string `json:"bus_type"`
	DepartureTime *string `json:"departure_time"`
	ArrivalTime   *string `json:"arrival_time"`
	IsActive      *bool   `json:"is_active"`
}

// UpdateBus handles PUT /v1/admin/buses/:id. A bus_type change is refused
// with 409 while confirmed reservations from today on hold seats the new
// layout does not have; the response lists those seats.
func (h *BusHandler) UpdateBus(c echo.Context) error {
	b, err := loadBus(c, h.Buses)
	if b == nil {
		return err
	}
	var req updateBusReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx := c.Request().Context()

	if !setText(&b.BusNumber, req.BusNumber) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus_number must not be blank"})
	}
	if req.RouteID != nil {
		b.RouteID = *req.RouteID
	}
	if req.DriverID != nil {
		if *req.DriverID == 0 {
			b.DriverID = nil
		} else {
			if ok, err := h.checkDriver(ctx, c, *req.DriverID); !ok {
				return err
			}
			b.DriverID = req.DriverID
		}
	}
	if req.BusType != nil {
		class, err := seatmap.ParseCapacityClass(*req.BusType)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus_type must be 28-seat or 45-seat"})
		}
		b.BusType = class
	}
	for _, f := range []struct {
		dst *string
		src *string
	}{{&b.DepartureTime, req.DepartureTime}, {&b.ArrivalTime, req.ArrivalTime}} {
		if f.src == nil {
			continue
		}
		v, ok := parseClock(*f.src)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_time and arrival_time must be HH:MM[:SS]"})
		}
		*f.dst = v
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}

	if err := h.Buses.Update(ctx, b, h.Now().Format(dateLayout)); err != nil {
		var lc *repository.LayoutConflictError
		switch {
		case errors.As(err, &lc):
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "reserved seats do not exist in the new layout",
				"seats": lc.Seats,
			})
		case errors.Is(err, repository.ErrRouteNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "route not found"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "bus number already exists"})
		}
		h.Log.LogError(ctx, "update bus failed", err, "bus_id", b.ID)
		return internalError(c, "update bus failed")
	}
	h.purge(ctx)
	updated, err := fetchBus(c, h.Buses, b.ID)
	if updated == nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteBus handles DELETE /v1/admin/buses/:id. The bus is taken out of
// service; existing reservations are kept.
func (h *BusHandler) DeleteBus(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx := c.Request().Context()
	if err := h.Buses.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		h.Log.LogError(ctx, "delete bus failed", err, "bus_id", id)
		return internalError(c, "delete bus failed")
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}
