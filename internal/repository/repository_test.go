package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-reservation/internal/database"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/seatmap"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set - skipping integration test")
	}
	db, err := database.OpenDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

// fixture creates a rider, a route and a bus of the given class with names
// unique to this run so tests can share a database.
func fixture(t *testing.T, db *sql.DB, class seatmap.CapacityClass) (*model.User, *model.Bus) {
	t.Helper()
	ctx := context.Background()
	tag := uuid.NewString()[:8]

	u := &model.User{Username: "rider-" + tag, Email: tag + "@example.test", FullName: "Rider " + tag, Role: model.RoleUser}
	if err := NewUserRepo(db).Create(ctx, u, "secret123", 4); err != nil {
		t.Fatalf("create user: %v", err)
	}
	buses := NewBusRepo(db)
	rt := &model.Route{Name: "Route " + tag, DepartureLocation: "Depot", Destination: "Campus " + tag}
	if err := buses.CreateRoute(ctx, rt); err != nil {
		t.Fatalf("create route: %v", err)
	}
	b := &model.Bus{BusNumber: "B-" + tag, RouteID: rt.ID, BusType: class, DepartureTime: "07:30:00", ArrivalTime: "08:15:00"}
	if err := buses.Create(ctx, b); err != nil {
		t.Fatalf("create bus: %v", err)
	}
	return u, b
}

func TestBusRepo(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	_, b := fixture(t, db, seatmap.Standard)
	repo := NewBusRepo(db)

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.BusType != seatmap.Standard || got.TotalSeats != 45 || got.DepartureTime != "07:30:00" {
		t.Fatalf("loaded bus %+v", got)
	}
	if _, err := repo.GetByID(ctx, 1<<62); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID missing: %v", err)
	}

	list, err := repo.ListActive(ctx, got.Destination)
	if err != nil || len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("ListActive(%q) = %v, %v", got.Destination, list, err)
	}

	dup := &model.Bus{BusNumber: b.BusNumber, RouteID: b.RouteID, DepartureTime: "09:00:00", ArrivalTime: "10:00:00"}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate bus number: %v", err)
	}
}

func TestReservationLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u, b := fixture(t, db, seatmap.Compact)
	repo := NewReservationRepo(db)
	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	created, err := repo.CreateSeats(ctx, u.ID, b.ID, date, []string{"9B", "3C"})
	if err != nil || len(created) != 2 {
		t.Fatalf("CreateSeats = %v, %v", created, err)
	}

	reserved, err := repo.ReservedSeatNumbers(ctx, b.ID, date)
	if err != nil || !reflect.DeepEqual(reserved, []string{"3C", "9B"}) {
		t.Fatalf("ReservedSeatNumbers = %v, %v", reserved, err)
	}

	_, err = repo.CreateSeats(ctx, u.ID, b.ID, date, []string{"1A", "3C"})
	var taken *SeatsTakenError
	if !errors.As(err, &taken) || !reflect.DeepEqual(taken.Seats, []string{"3C"}) || !errors.Is(err, ErrConflict) {
		t.Fatalf("overlapping booking err = %v", err)
	}
	if reserved, _ := repo.ReservedSeatNumbers(ctx, b.ID, date); len(reserved) != 2 {
		t.Fatalf("failed booking wrote rows: %v", reserved)
	}

	if err := repo.Cancel(ctx, created[0].ID, u.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := repo.Cancel(ctx, created[0].ID, u.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Cancel: %v", err)
	}
	if err := repo.Cancel(ctx, 1<<62, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Cancel missing: %v", err)
	}

	released, err := repo.CancelSeats(ctx, b.ID, date, []string{"3C", "5A"}, u.ID)
	if err != nil || len(released) != 1 || released[0].SeatNumber != "3C" || released[0].UserID != u.ID {
		t.Fatalf("CancelSeats = %+v, %v", released, err)
	}
	if reserved, _ := repo.ReservedSeatNumbers(ctx, b.ID, date); len(reserved) != 0 {
		t.Fatalf("still reserved: %v", reserved)
	}

	history, err := repo.ListByUser(ctx, u.ID)
	if err != nil || len(history) != 2 || history[0].Status != model.StatusCancelled {
		t.Fatalf("ListByUser = %+v, %v", history, err)
	}
}

func TestConcurrentBookingsOfOneSeat(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u, b := fixture(t, db, seatmap.Compact)
	repo := NewReservationRepo(db)
	date := time.Now().AddDate(0, 0, 3).Format("2006-01-02")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateSeats(ctx, u.ID, b.ID, date, []string{"4A"})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("%d bookings of seat 4A succeeded, want 1", wins)
	}
	manifest, err := repo.ListByBusAndDate(ctx, b.ID, date)
	if err != nil || len(manifest) != 1 {
		t.Fatalf("manifest = %v, %v", manifest, err)
	}
	if manifest[0].PassengerName != u.FullName {
		t.Fatalf("passenger = %q", manifest[0].PassengerName)
	}
}

func TestPlaceholders(t *testing.T) {
	for n, want := range map[int]string{0: "", 1: "?", 3: "?,?,?"} {
		if got := placeholders(n); got != want {
			t.Errorf("placeholders(%d) = %q, want %q", n, got, want)
		}
	}
	err := fmt.Errorf("wrapped: %w", &SeatsTakenError{Seats: []string{"1A"}})
	if !errors.Is(err, ErrConflict) {
		t.Error("SeatsTakenError does not match ErrConflict")
	}
}

func TestBusRepoFleetChanges(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u, b := fixture(t, db, seatmap.Standard)
	buses := NewBusRepo(db)
	today := time.Now().Format("2006-01-02")

	rt, err := buses.GetRoute(ctx, b.RouteID)
	if err != nil {
		t.Fatalf("GetRoute: %v", err)
	}
	rt.Destination = "Renamed " + rt.Destination
	if err := buses.UpdateRoute(ctx, rt); err != nil {
		t.Fatalf("UpdateRoute: %v", err)
	}
	if err := buses.UpdateRoute(ctx, rt); err != nil {
		t.Fatalf("UpdateRoute without changes: %v", err)
	}
	if err := buses.DeleteRoute(ctx, rt.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("DeleteRoute in use: %v", err)
	}

	// 11E only exists on the 45-seat layout.
	if _, err := NewReservationRepo(db).CreateSeats(ctx, u.ID, b.ID, time.Now().AddDate(0, 0, 2).Format("2006-01-02"), []string{"11E", "2A"}); err != nil {
		t.Fatalf("CreateSeats: %v", err)
	}
	b.BusType = seatmap.Compact
	var lc *LayoutConflictError
	if err := buses.Update(ctx, b, today); !errors.As(err, &lc) || !reflect.DeepEqual(lc.Seats, []string{"11E"}) {
		t.Fatalf("Update to 28-seat = %v", err)
	}
	if got, _ := buses.GetByID(ctx, b.ID); got.BusType != seatmap.Standard {
		t.Fatalf("refused update changed bus_type to %s", got.BusType)
	}

	b.BusType = seatmap.Standard
	b.DepartureTime = "06:45:00"
	if err := buses.Update(ctx, b, today); err != nil {
		t.Fatalf("Update: %v", err)
	}
	b.RouteID = 1 << 62
	if err := buses.Update(ctx, b, today); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("Update with unknown route: %v", err)
	}

	if err := buses.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := buses.GetByID(ctx, b.ID); got.IsActive || got.DepartureTime != "06:45:00" {
		t.Fatalf("after delete: %+v", got)
	}
	if err := buses.Delete(ctx, 1<<62); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete missing: %v", err)
	}
	if err := buses.DeleteRoute(ctx, rt.ID); err != nil {
		t.Fatalf("DeleteRoute after bus retired: %v", err)
	}
	if err := buses.DeleteRoute(ctx, 1<<62); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteRoute missing: %v", err)
	}
}
