package store

import (
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Category is the display partition a reservation falls into.
type Category string

const (
	CategoryUpcoming  Category = "upcoming"
	CategoryPast      Category = "past"
	CategoryCancelled Category = "cancelled"
)

// Classify places r in exactly one category relative to now.  The
// reservation instant is its date and time in now's location.  An
// instant that cannot be parsed is never before now.
func Classify(r model.Reservation, now time.Time) Category {
	if r.Status == model.StatusCancelled {
		return CategoryCancelled
	}
	at, ok := r.Instant(now.Location())
	if ok && at.Before(now) {
		return CategoryPast
	}
	return CategoryUpcoming
}

// Partitioned is a reservation list split by Category.
type Partitioned struct {
	Upcoming  []model.Reservation
	Past      []model.Reservation
	Cancelled []model.Reservation
}

// Of returns the slice for c.
func (p Partitioned) Of(c Category) []model.Reservation {
	switch c {
	case CategoryUpcoming:
		return p.Upcoming
	case CategoryPast:
		return p.Past
	case CategoryCancelled:
		return p.Cancelled
	}
	return nil
}

// Partition splits list by Classify, keeping the input order within each
// category.
func Partition(list []model.Reservation, now time.Time) Partitioned {
	var p Partitioned
	for _, r := range list {
		switch Classify(r, now) {
		case CategoryCancelled:
			p.Cancelled = append(p.Cancelled, r)
		case CategoryPast:
			p.Past = append(p.Past, r)
		default:
			p.Upcoming = append(p.Upcoming, r)
		}
	}
	return p
}

// Badge is the status label shown next to a reservation.
func Badge(r model.Reservation, now time.Time) string {
	switch Classify(r, now) {
	case CategoryCancelled:
		return "Cancelled"
	case CategoryPast:
		return "Completed"
	}
	if r.Status == model.StatusConfirmed {
		return "Confirmed"
	}
	return "Pending"
}
