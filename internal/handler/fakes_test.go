package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/seatmap"
	"github.com/iliyamo/bus-seat-reservation/internal/utils"
)

var testNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// fakeBuses knows route 1 implicitly so buses can be created before any
// route is. res, when set, backs the layout check of Update.
type fakeBuses struct {
	buses  map[uint64]*model.Bus
	routes []model.Route
	res    *fakeReservations
}

func newFakeBuses() *fakeBuses {
	d := uint64(20)
	return &fakeBuses{buses: map[uint64]*model.Bus{
		1: {ID: 1, BusNumber: "B-01", RouteID: 1, DriverID: &d, BusType: "45-seat", TotalSeats: 45, IsActive: true, Destination: "Central"},
		2: {ID: 2, BusNumber: "B-02", RouteID: 1, BusType: "28-seat", TotalSeats: 28, IsActive: true, Destination: "Harbour"},
	}}
}

func (f *fakeBuses) GetByID(_ context.Context, id uint64) (*model.Bus, error) {
	b, ok := f.buses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBuses) ListActive(_ context.Context, _ string) ([]model.Bus, error) {
	var out []model.Bus
	for _, id := range []uint64{1, 2} {
		if b, ok := f.buses[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBuses) ListByDriver(_ context.Context, driverID uint64) ([]model.Bus, error) {
	var out []model.Bus
	for _, b := range f.buses {
		if b.DriverID != nil && *b.DriverID == driverID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBuses) Create(_ context.Context, b *model.Bus) error {
	if b.RouteID != 1 {
		return repository.ErrNotFound
	}
	b.ID = uint64(len(f.buses) + 1)
	b.TotalSeats = b.Class().TotalSeats()
	f.buses[b.ID] = b
	return nil
}

func (f *fakeBuses) Update(_ context.Context, b *model.Bus, fromDate string) error {
	cur, ok := f.buses[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if b.RouteID != 1 {
		if _, err := f.GetRoute(context.Background(), b.RouteID); err != nil {
			return repository.ErrRouteNotFound
		}
	}
	for id, other := range f.buses {
		if id != b.ID && other.BusNumber == b.BusNumber {
			return repository.ErrConflict
		}
	}
	if class := b.Class(); class != cur.Class() && f.res != nil {
		var missing []string
		for _, r := range f.res.filter(func(r model.ReservationDetail) bool {
			return r.BusID == b.ID && r.Status == model.StatusConfirmed && r.ReservationDate >= fromDate
		}) {
			if !seatmap.Contains(class, r.SeatNumber) && !slices.Contains(missing, r.SeatNumber) {
				missing = append(missing, r.SeatNumber)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			return &repository.LayoutConflictError{Seats: missing}
		}
	}
	cp := *b
	cp.TotalSeats = cp.Class().TotalSeats()
	f.buses[b.ID] = &cp
	return nil
}

func (f *fakeBuses) Delete(_ context.Context, id uint64) error {
	b, ok := f.buses[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.IsActive = false
	return nil
}

func (f *fakeBuses) CreateRoute(_ context.Context, rt *model.Route) error {
	rt.ID = uint64(len(f.routes) + 1)
	rt.IsActive = true
	f.routes = append(f.routes, *rt)
	return nil
}

func (f *fakeBuses) GetRoute(_ context.Context, id uint64) (*model.Route, error) {
	for _, rt := range f.routes {
		if rt.ID == id {
			cp := rt
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBuses) UpdateRoute(_ context.Context, rt *model.Route) error {
	for i := range f.routes {
		if f.routes[i].ID == rt.ID {
			f.routes[i] = *rt
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeBuses) DeleteRoute(_ context.Context, id uint64) error {
	for i := range f.routes {
		if f.routes[i].ID != id {
			continue
		}
		for _, b := range f.buses {
			if b.RouteID == id && b.IsActive {
				return repository.ErrConflict
			}
		}
		f.routes[i].IsActive = false
		return nil
	}
	return repository.ErrNotFound
}

func (f *fakeBuses) ListRoutes(context.Context) ([]model.Route, error) {
	var out []model.Route
	for _, rt := range f.routes {
		if rt.IsActive {
			out = append(out, rt)
		}
	}
	return out, nil
}

// fakeReservations keeps reservations in a slice. onOccupancy, when set,
// runs inside ReservedSeatNumbers so tests can interleave requests.
type fakeReservations struct {
	mu          sync.Mutex
	rows        []model.ReservationDetail
	onOccupancy func()
}

func (f *fakeReservations) seed(userID, busID uint64, date string, seats ...string) {
	for _, s := range seats {
		f.rows = append(f.rows, model.ReservationDetail{Reservation: model.Reservation{
			ID: uint64(len(f.rows) + 1), UserID: userID, BusID: busID, SeatNumber: s,
			ReservationDate: date, Status: model.StatusConfirmed,
		}, BusType: "45-seat", TotalSeats: 45})
	}
}

func (f *fakeReservations) ReservedSeatNumbers(_ context.Context, busID uint64, date string) ([]string, error) {
	if f.onOccupancy != nil {
		hook := f.onOccupancy
		f.onOccupancy = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for _, r := range f.rows {
		if r.BusID == busID && r.ReservationDate == date && r.Status == model.StatusConfirmed {
			out = append(out, r.SeatNumber)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (f *fakeReservations) CreateSeats(ctx context.Context, userID, busID uint64, date string, seats []string) ([]model.Reservation, error) {
	reserved, _ := f.ReservedSeatNumbers(ctx, busID, date)
	var taken []string
	for _, s := range seats {
		if slices.Contains(reserved, s) {
			taken = append(taken, s)
		}
	}
	if len(taken) > 0 {
		slices.Sort(taken)
		return nil, &repository.SeatsTakenError{Seats: taken}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, s := range seats {
		r := model.Reservation{ID: uint64(len(f.rows) + 1), UserID: userID, BusID: busID,
			SeatNumber: s, ReservationDate: date, Status: model.StatusConfirmed}
		f.rows = append(f.rows, model.ReservationDetail{Reservation: r, BusType: "45-seat", TotalSeats: 45})
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReservations) GetByID(_ context.Context, id uint64) (*model.ReservationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			d := f.rows[i]
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeReservations) Cancel(_ context.Context, id, by uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			if f.rows[i].Status != model.StatusConfirmed {
				return repository.ErrConflict
			}
			f.rows[i].Status = model.StatusCancelled
			f.rows[i].CancelledBy = &by
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeReservations) CancelSeats(_ context.Context, busID uint64, date string, seats []string, by uint64) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for i := range f.rows {
		r := &f.rows[i]
		if r.BusID == busID && r.ReservationDate == date && r.Status == model.StatusConfirmed && slices.Contains(seats, r.SeatNumber) {
			out = append(out, r.Reservation)
			r.Status = model.StatusCancelled
			r.CancelledBy = &by
		}
	}
	slices.SortFunc(out, func(a, b model.Reservation) int { return strings.Compare(a.SeatNumber, b.SeatNumber) })
	return out, nil
}

func (f *fakeReservations) filter(keep func(model.ReservationDetail) bool) []model.ReservationDetail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ReservationDetail{}
	for _, r := range f.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeReservations) ListByUser(_ context.Context, userID uint64) ([]model.ReservationDetail, error) {
	return f.filter(func(r model.ReservationDetail) bool { return r.UserID == userID }), nil
}

func (f *fakeReservations) ListByBusAndDate(_ context.Context, busID uint64, date string) ([]model.ReservationDetail, error) {
	return f.filter(func(r model.ReservationDetail) bool {
		return r.BusID == busID && r.ReservationDate == date && r.Status == model.StatusConfirmed
	}), nil
}

func (f *fakeReservations) ListAll(_ context.Context, date string) ([]model.ReservationDetail, error) {
	return f.filter(func(r model.ReservationDetail) bool { return date == "" || r.ReservationDate == date }), nil
}

type fakeUsers struct {
	users map[uint64]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uint64]*model.User{
		10: {ID: 10, Username: "rider", Role: model.RoleUser, IsActive: true},
		11: {ID: 11, Username: "other", Role: model.RoleUser, IsActive: true},
		20: {ID: 20, Username: "driver", Role: model.RoleDriver, IsActive: true},
		30: {ID: 30, Username: "admin", Role: model.RoleAdmin, IsActive: true},
	}}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User, password string, cost int) error {
	for _, x := range f.users {
		if x.Username == u.Username || x.Email == u.Email {
			return repository.ErrUsernameExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.ID = uint64(100 + len(f.users))
	u.PasswordHash = hash
	u.IsActive = true
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) ListAll(context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

type fakeTokens struct {
	owner   map[string]uint64
	revoked map[string]bool
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{owner: map[string]uint64{}, revoked: map[string]bool{}}
}

func (f *fakeTokens) Store(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.owner[hash] = userID
	return nil
}

func (f *fakeTokens) Rotate(_ context.Context, oldHash, newHash string, _ time.Time) (uint64, error) {
	uid, ok := f.owner[oldHash]
	if !ok || f.revoked[oldHash] {
		return 0, repository.ErrTokenInvalid
	}
	f.revoked[oldHash] = true
	f.owner[newHash] = uid
	return uid, nil
}

func (f *fakeTokens) Revoke(_ context.Context, hash string) error {
	if _, ok := f.owner[hash]; !ok || f.revoked[hash] {
		return repository.ErrTokenInvalid
	}
	f.revoked[hash] = true
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	for h, uid := range f.owner {
		if uid == userID {
			f.revoked[h] = true
		}
	}
	return nil
}

type fakePublisher struct {
	events []queue.ReservationEvent
}

func (f *fakePublisher) PublishReservation(_ context.Context, ev queue.ReservationEvent) error {
	f.events = append(f.events, ev)
	return nil
}

// caller is the identity a test request runs as.
type caller struct {
	userID uint64
	role   string
	viewer string
}

var (
	asRider  = caller{userID: 10, role: model.RoleUser, viewer: "tab-rider"}
	asOther  = caller{userID: 11, role: model.RoleUser, viewer: "tab-other"}
	asDriver = caller{userID: 20, role: model.RoleDriver, viewer: "tab-driver"}
	asAdmin  = caller{userID: 30, role: model.RoleAdmin, viewer: "tab-admin"}
	anon     = caller{}
)

// do runs h for one request and returns the recorder. params are path
// parameter name/value pairs.
func do(t *testing.T, h echo.HandlerFunc, who caller, method, target string, body any, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if who.userID != 0 {
		c.Set("user_id", who.userID)
		c.Set("role", who.role)
	}
	if who.viewer != "" {
		c.Set(middleware.ViewerIDKey, who.viewer)
	}
	if err := h(c); err != nil {
		t.Fatalf("%s %s: handler returned %v", method, target, err)
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, want, rec.Body.String())
	}
}
