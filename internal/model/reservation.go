package model

import (
	"errors"
	"strings"
	"time"
)

// ReservationStatus is the lifecycle state of a reservation.  The only
// transition the application performs is pending/confirmed -> cancelled.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// DateLayout and TimeLayout are the wire formats of Reservation.Date and
// Reservation.Time.  Times coming back from the database may carry
// seconds, so TimeLayoutSeconds is accepted on input as well.
const (
	DateLayout        = "2006-01-02"
	TimeLayout        = "15:04"
	TimeLayoutSeconds = "15:04:05"
)

// Reservation records a user's booking of a table at a restaurant.  It is
// never hard-deleted; cancelling only flips Status.
//
// Fields:
//  ID              – primary key identifier.
//  RestaurantID    – restaurant being booked.
//  UserID          – auth identity that owns the booking.
//  Date            – calendar date, YYYY-MM-DD.
//  Time            – time of day, HH:MM.
//  PartySize       – number of guests (positive).
//  Status          – pending, confirmed or cancelled.
//  SpecialRequests – optional free text.
//  CreatedAt       – creation timestamp.
//  Restaurant      – joined restaurant summary, set by list queries only.
type Reservation struct {
	ID              uint64             `json:"id"`               // reservations.id
	RestaurantID    uint64             `json:"restaurant_id"`    // reservations.restaurant_id
	UserID          string             `json:"user_id"`          // reservations.user_id
	Date            string             `json:"date"`             // reservations.date
	Time            string             `json:"time"`             // reservations.time
	PartySize       int                `json:"party_size"`       // reservations.party_size
	Status          ReservationStatus  `json:"status"`           // reservations.status
	SpecialRequests *string            `json:"special_requests"` // reservations.special_requests (nullable)
	CreatedAt       time.Time          `json:"created_at"`       // reservations.created_at
	Restaurant      *RestaurantSummary `json:"restaurants,omitempty"`
}

// ReservationDraft is the caller-supplied part of a new reservation.  A
// Status set here is ignored; new reservations always start pending.
type ReservationDraft struct {
	RestaurantID    uint64            `json:"restaurant_id"`
	UserID          string            `json:"user_id"`
	Date            string            `json:"date"`
	Time            string            `json:"time"`
	PartySize       int               `json:"party_size"`
	SpecialRequests *string           `json:"special_requests"`
	Status          ReservationStatus `json:"status,omitempty"`
}

// Validation errors returned by ReservationDraft.Validate.
var (
	ErrInvalidRestaurant = errors.New("restaurant_id is required")
	ErrInvalidUser       = errors.New("user_id is required")
	ErrInvalidDate       = errors.New("date must be YYYY-MM-DD")
	ErrInvalidTime       = errors.New("time must be HH:MM")
	ErrInvalidPartySize  = errors.New("party_size must be positive")
)

// Validate checks the draft's shape.  It does not look at availability;
// two drafts for the same restaurant, date and time are both valid.
func (d ReservationDraft) Validate() error {
	if d.RestaurantID == 0 {
		return ErrInvalidRestaurant
	}
	if strings.TrimSpace(d.UserID) == "" {
		return ErrInvalidUser
	}
	if _, err := time.Parse(DateLayout, d.Date); err != nil {
		return ErrInvalidDate
	}
	if _, ok := ParseTimeOfDay(d.Time); !ok {
		return ErrInvalidTime
	}
	if d.PartySize <= 0 {
		return ErrInvalidPartySize
	}
	return nil
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS and returns the offset from
// midnight.
func ParseTimeOfDay(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimeLayout, TimeLayoutSeconds} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, true
		}
	}
	return 0, false
}

// Instant combines Date and Time as a wall-clock reading in loc.  ok is
// false when either part cannot be parsed.
func (r Reservation) Instant(loc *time.Location) (time.Time, bool) {
	day, err := time.Parse(DateLayout, strings.TrimSpace(r.Date))
	if err != nil {
		return time.Time{}, false
	}
	offset, ok := ParseTimeOfDay(r.Time)
	if !ok {
		return time.Time{}, false
	}
	h := int(offset / time.Hour)
	m := int(offset % time.Hour / time.Minute)
	sec := int(offset % time.Minute / time.Second)
	y, mon, d := day.Date()
	return time.Date(y, mon, d, h, m, sec, 0, loc), true
}
