package repository

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/seatmap"
)

// BusRepo reads and writes buses and the routes they run on.
type BusRepo struct {
	db *sql.DB
}

// NewBusRepo returns a BusRepo bound to db.
func NewBusRepo(db *sql.DB) *BusRepo { return &BusRepo{db: db} }

const busSelect = `SELECT b.id, b.bus_number, b.route_id, b.driver_id, b.bus_type, b.total_seats,
       TIME_FORMAT(b.departure_time, '%H:%i:%s'), TIME_FORMAT(b.arrival_time, '%H:%i:%s'), b.is_active,
       r.name, r.departure_location, r.destination
  FROM buses b
  JOIN bus_routes r ON r.id = b.route_id`

// CreateRoute inserts a route and sets its ID.
func (r *BusRepo) CreateRoute(ctx context.Context, rt *model.Route) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bus_routes (name, departure_location, destination, is_active) VALUES (?, ?, ?, TRUE)`,
		rt.Name, rt.DepartureLocation, rt.Destination)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	rt.IsActive = true
	return nil
}

// GetRoute loads one route, active or not. ErrNotFound if missing.
func (r *BusRepo) GetRoute(ctx context.Context, id uint64) (*model.Route, error) {
	var rt model.Route
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, departure_location, destination, is_active FROM bus_routes WHERE id = ?`, id).
		Scan(&rt.ID, &rt.Name, &rt.DepartureLocation, &rt.Destination, &rt.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// UpdateRoute overwrites the editable columns of rt. ErrNotFound if the
// route does not exist.
func (r *BusRepo) UpdateRoute(ctx context.Context, rt *model.Route) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bus_routes SET name = ?, departure_location = ?, destination = ?, is_active = ? WHERE id = ?`,
		rt.Name, rt.DepartureLocation, rt.Destination, rt.IsActive, rt.ID)
	if err != nil {
		return err
	}
	return r.affectedOrMissing(ctx, res, `SELECT EXISTS(SELECT 1 FROM bus_routes WHERE id = ?)`, rt.ID)
}

// DeleteRoute deactivates a route. A route still served by an active bus
// yields ErrConflict; an unknown one ErrNotFound.
func (r *BusRepo) DeleteRoute(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var active bool
	err = tx.QueryRowContext(ctx, `SELECT is_active FROM bus_routes WHERE id = ? FOR UPDATE`, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var inUse bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM buses WHERE route_id = ? AND is_active = TRUE)`, id).Scan(&inUse); err != nil {
		return err
	}
	if inUse {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `UPDATE bus_routes SET is_active = FALSE WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListRoutes returns the active routes ordered by name.
func (r *BusRepo) ListRoutes(ctx context.Context) ([]model.Route, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, departure_location, destination, is_active FROM bus_routes WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Route
	for rows.Next() {
		var rt model.Route
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.DepartureLocation, &rt.Destination, &rt.IsActive); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// Create inserts a bus. TotalSeats is derived from the capacity class so the
// two columns can never disagree. A duplicate bus number yields ErrConflict
// and an unknown route ErrRouteNotFound.
func (r *BusRepo) Create(ctx context.Context, b *model.Bus) error {
	class := b.Class()
	b.BusType = class
	b.TotalSeats = class.TotalSeats()
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bus_routes WHERE id = ?)`, b.RouteID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrRouteNotFound
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO buses (bus_number, route_id, driver_id, bus_type, total_seats, departure_time, arrival_time, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, TRUE)`,
		b.BusNumber, b.RouteID, nullableID(b.DriverID), string(class), b.TotalSeats, b.DepartureTime, b.ArrivalTime)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.IsActive = true
	return nil
}

// Update writes every editable column of b. When the capacity class
// changes, the confirmed reservations on or after fromDate are locked and
// the change is refused with a *LayoutConflictError if any of their seats
// does not exist in the new class. ErrNotFound for an unknown bus,
// ErrRouteNotFound for an unknown route and ErrConflict for a duplicate bus
// number.
func (r *BusRepo) Update(ctx context.Context, b *model.Bus, fromDate string) error {
	class := b.Class()
	b.BusType = class
	b.TotalSeats = class.TotalSeats()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var (
		curType  string
		curTotal int
	)
	err = tx.QueryRowContext(ctx, `SELECT bus_type, total_seats FROM buses WHERE id = ? FOR UPDATE`, b.ID).Scan(&curType, &curTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var routeExists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bus_routes WHERE id = ?)`, b.RouteID).Scan(&routeExists); err != nil {
		return err
	}
	if !routeExists {
		return ErrRouteNotFound
	}

	current := model.Bus{BusType: seatmap.CapacityClass(curType), TotalSeats: curTotal}.Class()
	if current != class {
		seats, err := lockedSeatsFrom(ctx, tx, b.ID, fromDate)
		if err != nil {
			return err
		}
		var missing []string
		for _, s := range seats {
			if !seatmap.Contains(class, s) {
				missing = append(missing, s)
			}
		}
		if len(missing) > 0 {
			return &LayoutConflictError{Seats: missing}
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE buses SET bus_number = ?, route_id = ?, driver_id = ?, bus_type = ?, total_seats = ?,
		        departure_time = ?, arrival_time = ?, is_active = ?
		  WHERE id = ?`,
		b.BusNumber, b.RouteID, nullableID(b.DriverID), string(class), b.TotalSeats,
		b.DepartureTime, b.ArrivalTime, b.IsActive, b.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// lockedSeatsFrom returns the distinct seats with a confirmed reservation on
// busID from fromDate on, locking the rows and the index range so no
// booking can slip in before the transaction ends.
func lockedSeatsFrom(ctx context.Context, tx *sql.Tx, busID uint64, fromDate string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_number FROM reservations
		  WHERE bus_id = ? AND reservation_date >= ? AND status = ?
		  FOR UPDATE`,
		busID, fromDate, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Sort(seats)
	return slices.Compact(seats), nil
}

// Delete takes a bus out of service. Its reservations stay untouched.
// ErrNotFound if missing.
func (r *BusRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE buses SET is_active = FALSE WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return r.affectedOrMissing(ctx, res, `SELECT EXISTS(SELECT 1 FROM buses WHERE id = ?)`, id)
}

// affectedOrMissing turns a zero-row update into ErrNotFound unless the row
// exists. MySQL reports unchanged rows as unaffected.
func (r *BusRepo) affectedOrMissing(ctx context.Context, res sql.Result, existsQuery string, id uint64) error {
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// GetByID loads a bus with its route columns. ErrNotFound if missing.
func (r *BusRepo) GetByID(ctx context.Context, id uint64) (*model.Bus, error) {
	b, err := scanBus(r.db.QueryRowContext(ctx, busSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListActive returns the active buses on active routes, optionally filtered
// by a case-insensitive substring of the destination, ordered by departure.
func (r *BusRepo) ListActive(ctx context.Context, destination string) ([]model.Bus, error) {
	q := busSelect + ` WHERE b.is_active = TRUE AND r.is_active = TRUE`
	var args []any
	if d := strings.TrimSpace(destination); d != "" {
		q += ` AND LOWER(r.destination) LIKE ?`
		args = append(args, "%"+strings.ToLower(d)+"%")
	}
	q += ` ORDER BY b.departure_time, b.id`
	return r.list(ctx, q, args...)
}

// ListByDriver returns the buses assigned to a driver.
func (r *BusRepo) ListByDriver(ctx context.Context, driverID uint64) ([]model.Bus, error) {
	return r.list(ctx, busSelect+` WHERE b.driver_id = ? ORDER BY b.departure_time, b.id`, driverID)
}

func (r *BusRepo) list(ctx context.Context, q string, args ...any) ([]model.Bus, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Bus
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBus(s rowScanner) (*model.Bus, error) {
	var (
		b        model.Bus
		driverID sql.NullInt64
		busType  string
	)
	err := s.Scan(&b.ID, &b.BusNumber, &b.RouteID, &driverID, &busType, &b.TotalSeats,
		&b.DepartureTime, &b.ArrivalTime, &b.IsActive,
		&b.RouteName, &b.DepartureLocation, &b.Destination)
	if err != nil {
		return nil, err
	}
	if driverID.Valid {
		id := uint64(driverID.Int64)
		b.DriverID = &id
	}
	b.BusType = model.Bus{BusType: seatmap.CapacityClass(busType), TotalSeats: b.TotalSeats}.Class()
	return &b, nil
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}
