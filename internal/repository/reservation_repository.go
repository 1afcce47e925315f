package repository

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// ReservationRepo stores seat reservations. One row holds one seat; a
// booking of several seats is several rows written in one transaction.
// Only confirmed rows count as occupying a seat.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `res.id, res.user_id, res.bus_id, res.seat_number,
       DATE_FORMAT(res.reservation_date, '%Y-%m-%d'), res.status, res.cancelled_by, res.created_at, res.updated_at`

const detailSelect = `SELECT ` + reservationColumns + `,
       b.bus_number, b.bus_type, b.total_seats, TIME_FORMAT(b.departure_time, '%H:%i:%s'),
       rt.name, rt.destination, u.full_name, COALESCE(u.phone, '')
  FROM reservations res
  JOIN buses b ON b.id = res.bus_id
  JOIN bus_routes rt ON rt.id = b.route_id
  JOIN users u ON u.id = res.user_id`

// ReservedSeatNumbers returns the seats holding a confirmed reservation on
// busID for date ("YYYY-MM-DD"), sorted by seat number. This is the
// occupancy snapshot the seat map is overlaid with.
func (r *ReservationRepo) ReservedSeatNumbers(ctx context.Context, busID uint64, date string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_number FROM reservations
		  WHERE bus_id = ? AND reservation_date = ? AND status = ?
		  ORDER BY seat_number`,
		busID, date, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// CreateSeats books seats on busID for date on behalf of userID. It runs in
// a single transaction: the confirmed rows for the requested seats are
// locked first and, if any exist, nothing is written and a
// *SeatsTakenError listing them is returned. Otherwise one confirmed row
// per seat is inserted and the created reservations are returned.
//
// Two bookings racing for free seats can deadlock on InnoDB gap locks; the
// loser is retried a few times before the error is returned.
func (r *ReservationRepo) CreateSeats(ctx context.Context, userID, busID uint64, date string, seats []string) ([]model.Reservation, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	var (
		out []model.Reservation
		err error
	)
	for attempt := 0; attempt < 3; attempt++ {
		out, err = r.createSeats(ctx, userID, busID, date, seats)
		if !isDeadlock(err) {
			break
		}
	}
	return out, err
}

func (r *ReservationRepo) createSeats(ctx context.Context, userID, busID uint64, date string, seats []string) ([]model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	args := make([]any, 0, len(seats)+3)
	args = append(args, busID, date, model.StatusConfirmed)
	for _, s := range seats {
		args = append(args, s)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_number FROM reservations
		  WHERE bus_id = ? AND reservation_date = ? AND status = ? AND seat_number IN (`+placeholders(len(seats))+`)
		  FOR UPDATE`, args...)
	if err != nil {
		return nil, err
	}
	var taken []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			return nil, err
		}
		taken = append(taken, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		slices.Sort(taken)
		return nil, &SeatsTakenError{Seats: taken}
	}

	out := make([]model.Reservation, 0, len(seats))
	for _, s := range seats {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO reservations (user_id, bus_id, seat_number, reservation_date, status) VALUES (?, ?, ?, ?, ?)`,
			userID, busID, s, date, model.StatusConfirmed)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		out = append(out, model.Reservation{
			ID: uint64(id), UserID: userID, BusID: busID,
			SeatNumber: s, ReservationDate: date, Status: model.StatusConfirmed,
		})
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// GetByID loads a single reservation. ErrNotFound if missing.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.ReservationDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, detailSelect+` WHERE res.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// Cancel marks a confirmed reservation cancelled by the given account. It
// returns ErrNotFound for unknown ids and ErrConflict when the reservation
// is no longer confirmed.
func (r *ReservationRepo) Cancel(ctx context.Context, id, cancelledBy uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ?, cancelled_by = ? WHERE id = ? AND status = ?`,
		model.StatusCancelled, cancelledBy, id, model.StatusConfirmed)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reservations WHERE id = ?)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// CancelSeats cancels the confirmed reservations holding seats on busID for
// date and returns them as they were before cancelling, so callers can
// tell whose seats were released. Seats without a confirmed reservation are
// skipped.
func (r *ReservationRepo) CancelSeats(ctx context.Context, busID uint64, date string, seats []string, cancelledBy uint64) ([]model.Reservation, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	args := make([]any, 0, len(seats)+3)
	args = append(args, busID, date, model.StatusConfirmed)
	for _, s := range seats {
		args = append(args, s)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id, user_id, seat_number FROM reservations
		  WHERE bus_id = ? AND reservation_date = ? AND status = ? AND seat_number IN (`+placeholders(len(seats))+`)
		  ORDER BY seat_number
		  FOR UPDATE`, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Reservation
	for rows.Next() {
		res := model.Reservation{BusID: busID, ReservationDate: date, Status: model.StatusConfirmed}
		if err := rows.Scan(&res.ID, &res.UserID, &res.SeatNumber); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, res)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(out)+2)
	ids = append(ids, model.StatusCancelled, cancelledBy)
	for _, res := range out {
		ids = append(ids, res.ID)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ?, cancelled_by = ? WHERE id IN (`+placeholders(len(out))+`)`,
		ids...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// ListByUser returns an account's reservations, newest travel date first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error) {
	return r.listDetails(ctx, detailSelect+` WHERE res.user_id = ? ORDER BY res.reservation_date DESC, res.id DESC`, userID)
}

// ListByBusAndDate returns the confirmed passengers of one departure in seat
// order. It backs the driver manifest.
func (r *ReservationRepo) ListByBusAndDate(ctx context.Context, busID uint64, date string) ([]model.ReservationDetail, error) {
	return r.listDetails(ctx,
		detailSelect+` WHERE res.bus_id = ? AND res.reservation_date = ? AND res.status = ? ORDER BY res.seat_number`,
		busID, date, model.StatusConfirmed)
}

// ListAll returns every reservation, optionally restricted to one travel
// date, for the admin overview.
func (r *ReservationRepo) ListAll(ctx context.Context, date string) ([]model.ReservationDetail, error) {
	if date == "" {
		return r.listDetails(ctx, detailSelect+` ORDER BY res.reservation_date DESC, res.bus_id, res.seat_number`)
	}
	return r.listDetails(ctx, detailSelect+` WHERE res.reservation_date = ? ORDER BY res.bus_id, res.seat_number`, date)
}

func (r *ReservationRepo) listDetails(ctx context.Context, q string, args ...any) ([]model.ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReservationDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDetail(s rowScanner) (*model.ReservationDetail, error) {
	var (
		d           model.ReservationDetail
		cancelledBy sql.NullInt64
	)
	err := s.Scan(&d.ID, &d.UserID, &d.BusID, &d.SeatNumber, &d.ReservationDate, &d.Status,
		&cancelledBy, &d.CreatedAt, &d.UpdatedAt,
		&d.BusNumber, &d.BusType, &d.TotalSeats, &d.DepartureTime,
		&d.RouteName, &d.Destination, &d.PassengerName, &d.PassengerPhone)
	if err != nil {
		return nil, err
	}
	if cancelledBy.Valid {
		id := uint64(cancelledBy.Int64)
		d.CancelledBy = &id
	}
	return &d, nil
}
