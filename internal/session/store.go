package session

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// DefaultTTL is how long an untouched session is kept.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned by Load for keys with no live session.
var ErrNotFound = errors.New("session not found")

// Store persists sessions by viewer key.
type Store interface {
	// Load returns the session stored under key.
	Load(ctx context.Context, key string) (*Session, error)
	// Update runs fn on the session stored under key, or on a new empty
	// session if there is none, and saves the result unless fn fails. The
	// read-modify-write is atomic with respect to other Update calls on the
	// same key.
	Update(ctx context.Context, key string, fn func(*Session) error) (*Session, error)
	// Delete drops the session. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key builds the store key of one viewer: the account and the client-chosen
// viewer id, so two tabs of the same account keep separate selections.
func Key(userID uint64, viewerID string) string {
	return strconv.FormatUint(userID, 10) + ":" + viewerID
}
