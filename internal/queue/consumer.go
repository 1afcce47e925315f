package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/bus-seat-reservation/internal/logger"
)

// Consumer reads reservation events and appends one line per event to a
// log file.
type Consumer struct {
	URL     string
	LogPath string
	Log     *logger.Logger
}

// NewConsumer writes to logs/reservation.log.
func NewConsumer(url string, l *logger.Logger) *Consumer {
	return &Consumer{URL: url, LogPath: filepath.Join("logs", "reservation.log"), Log: l}
}

// Run connects to the broker, declares the durable queue and consumes until
// ctx is cancelled. Lost connections are re-dialled with exponential
// backoff capped at 30s. Messages that cannot be handled are rejected
// without requeue so a poison message cannot spin the loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("reservation consumer: dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		backoff = time.Second
		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("reservation consumer: loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("reservation consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(ReservationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, ReservationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for d := range msgs {
		if err := c.handle(d.Body); err != nil {
			c.Log.Error("reservation consumer: handle message failed", "error", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handle(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return writeLine(f, ev)
}

// writeLine formats ev as a single human-readable line.
func writeLine(w io.Writer, ev ReservationEvent) error {
	verb := "confirmed"
	if ev.Type == EventCancelled {
		verb = "cancelled"
	}
	_, err := fmt.Fprintf(w, "[%s] Reservation %s | bus_id=%d | bus=%q | date=%s | user_id=%d | by=%d (%s) | seats=[%s]\n",
		ev.OccurredAt, verb, ev.BusID, ev.BusNumber, ev.ReservationDate, ev.UserID, ev.ActorID, ev.ActorRole,
		strings.Join(ev.Seats, ","))
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
