// Package queue defines the reservation event payload and the RabbitMQ
// publisher and consumer that carry it.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/table-reservation/internal/model"
)

// QueueName is the durable queue reservation events are routed to.
const QueueName = "reservation.events"

// ReservationEvent is published after a reservation mutation commits.  It
// carries enough to log or notify without reading the database.
type ReservationEvent struct {
	ID            string              `json:"id"`
	Action        model.HistoryAction `json:"action"`
	ReservationID uint64              `json:"reservation_id"`
	UserID        uint64              `json:"user_id"`
	ActorID       uint64              `json:"actor_id"`
	RestaurantID  uint64              `json:"restaurant_id"`
	Date          string              `json:"date"`
	Time          string              `json:"time"`
	NumOfGuests   int                 `json:"num_of_guests"`
	Status        string              `json:"status"`
	OccurredAt    string              `json:"occurred_at"`
}

// NewReservationEvent builds the event for r after action by actorID.
func NewReservationEvent(action model.HistoryAction, r *model.Reservation, actorID uint64, at time.Time) ReservationEvent {
	return ReservationEvent{
		ID:            uuid.NewString(),
		Action:        action,
		ReservationID: r.ID,
		UserID:        r.UserID,
		ActorID:       actorID,
		RestaurantID:  r.RestaurantID,
		Date:          r.Date.Format(model.DateLayout),
		Time:          r.Time,
		NumOfGuests:   r.NumOfGuests,
		Status:        string(r.Status),
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}
