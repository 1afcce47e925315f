// Package logger wraps log/slog with the handler selection and the domain
// log lines used across the service.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with seat-map specific helpers.
type Logger struct {
	*slog.Logger
}

// New builds a logger writing to stdout. Outside of "dev" the output is JSON;
// in dev it is slog's text format. LOG_LEVEL picks the minimum level.
func New(env string) *Logger {
	return NewWithWriter(os.Stdout, env, os.Getenv("LOG_LEVEL"))
}

// NewWithWriter is New with an explicit sink and level, used by tests.
func NewWithWriter(w io.Writer, env, level string) *Logger {
	lvl := getLogLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	var h slog.Handler
	if strings.EqualFold(env, "dev") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(h)}
}

func getLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithUserID returns a logger that tags every line with the account id.
func (l *Logger) WithUserID(userID uint64) *Logger {
	return &Logger{Logger: l.Logger.With(slog.Uint64("user_id", userID))}
}

// LogReservationCreated records seats booked on a bus for a date. bookedBy
// differs from userID when an admin books on someone's behalf.
func (l *Logger) LogReservationCreated(ctx context.Context, busID, userID, bookedBy uint64, date string, seats []string) {
	l.InfoContext(ctx, "reservation created",
		slog.Uint64("bus_id", busID),
		slog.Uint64("user_id", userID),
		slog.Uint64("booked_by", bookedBy),
		slog.String("reservation_date", date),
		slog.Any("seats", seats),
	)
}

// LogReservationCancelled records a cancellation.
func (l *Logger) LogReservationCancelled(ctx context.Context, busID, cancelledBy uint64, date string, seats []string) {
	l.InfoContext(ctx, "reservation cancelled",
		slog.Uint64("bus_id", busID),
		slog.Uint64("cancelled_by", cancelledBy),
		slog.String("reservation_date", date),
		slog.Any("seats", seats),
	)
}

// LogSelectionDiscarded records an occupancy snapshot that arrived after the
// viewer had already moved on.
func (l *Logger) LogSelectionDiscarded(ctx context.Context, viewer string, busID uint64, seq uint64) {
	l.DebugContext(ctx, "stale occupancy snapshot discarded",
		slog.String("viewer", viewer),
		slog.Uint64("bus_id", busID),
		slog.Uint64("seq", seq),
	)
}

// LogAuthFailure records a failed login.
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.WarnContext(ctx, "authentication failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogError records an unexpected error with a short description of what was
// being attempted.
func (l *Logger) LogError(ctx context.Context, msg string, err error, attrs ...any) {
	args := append([]any{slog.String("error", err.Error())}, attrs...)
	l.ErrorContext(ctx, msg, args...)
}

var defaultLogger = New(os.Getenv("APP_ENV"))

// Default returns the process-wide logger.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the process-wide logger and makes it slog's default
// too, so libraries logging through slog end up in the same sink.
func SetDefault(l *Logger) {
	defaultLogger = l
	slog.SetDefault(l.Logger)
}
