// Package queue defines the reservation events exchanged over RabbitMQ and
// the consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// ReservationQueue is the durable queue reservation events are routed to.
const ReservationQueue = "reservation.events"

// Event types.
const (
	EventConfirmed = "reservation.confirmed"
	EventCancelled = "reservation.cancelled"
)

// ReservationEvent is published whenever seats are booked or released. It
// carries enough for a consumer to log or notify without reading the
// database.
type ReservationEvent struct {
	EventID         string   `json:"event_id"`
	Type            string   `json:"type"`
	BusID           uint64   `json:"bus_id"`
	BusNumber       string   `json:"bus_number,omitempty"`
	UserID          uint64   `json:"user_id"`
	ActorID         uint64   `json:"actor_id"`
	ActorRole       string   `json:"actor_role"`
	ReservationDate string   `json:"reservation_date"`
	Seats           []string `json:"seats"`
	OccurredAt      string   `json:"occurred_at"`
}

// NewReservationEvent fills in the id and timestamp.
func NewReservationEvent(typ string, busID, userID, actorID uint64, actorRole, date string, seats []string) ReservationEvent {
	return ReservationEvent{
		EventID:         uuid.NewString(),
		Type:            typ,
		BusID:           busID,
		UserID:          userID,
		ActorID:         actorID,
		ActorRole:       actorRole,
		ReservationDate: date,
		Seats:           seats,
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	}
}
