// Package repository holds the MySQL data access for accounts, routes,
// buses and seat reservations. The sentinel errors below let handlers tell
// failure kinds apart without looking at SQL errors: ErrNotFound maps to
// 404 and ErrConflict (and SeatsTakenError, which matches it) to 409.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update collides with existing
// state, such as a duplicate bus number or cancelling a reservation twice.
var ErrConflict = errors.New("conflict")

// ErrRouteNotFound is returned when a bus refers to a route that does not
// exist. errors.Is(err, ErrNotFound) is true for it.
var ErrRouteNotFound = fmt.Errorf("route %w", ErrNotFound)

// SeatsTakenError reports the seats of a booking request that already hold a
// confirmed reservation for the same bus and date. errors.Is(err,
// ErrConflict) is true for it.
type SeatsTakenError struct {
	Seats []string
}

func (e *SeatsTakenError) Error() string {
	return fmt.Sprintf("seats already reserved: %s", strings.Join(e.Seats, ", "))
}

func (e *SeatsTakenError) Is(target error) bool { return target == ErrConflict }

// LayoutConflictError is returned when a bus would change to a capacity
// class that lacks seats still held by confirmed reservations. It matches
// ErrConflict.
type LayoutConflictError struct {
	Seats []string
}

func (e *LayoutConflictError) Error() string {
	return fmt.Sprintf("reserved seats missing from new layout: %s", strings.Join(e.Seats, ", "))
}

func (e *LayoutConflictError) Is(target error) bool { return target == ErrConflict }

// isDuplicateKey reports whether err is MySQL error 1062 (ER_DUP_ENTRY).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// isDeadlock reports whether err is MySQL error 1213 (ER_LOCK_DEADLOCK).
func isDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1213
}

// placeholders returns "?,?,?" with n marks for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
