// Package queue defines the reservation events carried over RabbitMQ and
// the consumer that records them in a log file.
package queue

import (
	"fmt"
	"time"
)

// EventType names what happened to a reservation.
type EventType string

const (
	EventCreated   EventType = "reservation.created"
	EventCancelled EventType = "reservation.cancelled"
)

// ReservationEvent is published after a reservation is created or
// cancelled.  It carries enough to log or notify without querying the
// database.
type ReservationEvent struct {
	Type           EventType `json:"type"`
	ReservationID  uint64    `json:"reservation_id"`
	RestaurantID   uint64    `json:"restaurant_id"`
	RestaurantName string    `json:"restaurant_name,omitempty"`
	UserID         string    `json:"user_id"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	PartySize      int       `json:"party_size"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Line renders the event as one log line.
func (ev ReservationEvent) Line() string {
	verb := "Reservation event"
	switch ev.Type {
	case EventCreated:
		verb = "Reservation created"
	case EventCancelled:
		verb = "Reservation cancelled"
	}
	return fmt.Sprintf("[%s] %s | reservation_id=%d | user_id=%s | restaurant_id=%d | restaurant=%q | date=%s | time=%s | party_size=%d | status=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), verb, ev.ReservationID, ev.UserID, ev.RestaurantID,
		ev.RestaurantName, ev.Date, ev.Time, ev.PartySize, ev.Status)
}
