package store

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/model"
)

// ReservationBackend is what the reservation store needs from the
// backend.
type ReservationBackend interface {
	InsertReservation(ctx context.Context, d model.ReservationDraft) (model.Reservation, error)
	ListReservations(ctx context.Context, userID string) ([]model.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus) error
}

// ReservationState is a snapshot of the reservation store.
type ReservationState struct {
	Mine      []model.Reservation
	IsLoading bool
	Error     string
}

// Partition splits Mine relative to now.
func (st ReservationState) Partition(now time.Time) Partitioned {
	return Partition(st.Mine, now)
}

type reservationData struct {
	mine []model.Reservation
}

// ReservationStore holds the signed-in user's reservations.
type ReservationStore struct {
	c   *core[reservationData]
	api ReservationBackend
	log *zap.Logger
}

// NewReservationStore returns an empty store.
func NewReservationStore(api ReservationBackend, log *zap.Logger) *ReservationStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReservationStore{c: newCore(reservationData{}), api: api, log: log}
}

// Snapshot returns a copy of the current state.
func (s *ReservationStore) Snapshot() ReservationState {
	var st ReservationState
	s.c.read(func(d *reservationData, loading bool, err string) {
		st.Mine = append([]model.Reservation(nil), d.mine...)
		st.IsLoading = loading
		st.Error = err
	})
	return st
}

// Subscribe calls fn with a fresh snapshot after every change.
func (s *ReservationStore) Subscribe(fn func(ReservationState)) (unsubscribe func()) {
	return s.c.subscribe(func() { fn(s.Snapshot()) })
}

// Create books a table.  The reservation always starts pending whatever
// the draft says.  On success the user's list is refetched.  No
// availability check is made.
func (s *ReservationStore) Create(ctx context.Context, draft model.ReservationDraft) error {
	draft.Status = model.StatusPending
	t := s.c.begin("")
	defer s.c.finish(t)

	_, err := s.api.InsertReservation(ctx, draft)
	if err := s.c.commit(ctx, t, err, nil); err != nil {
		s.log.Debug("create reservation failed", zap.Error(err))
		return err
	}
	if draft.UserID == "" {
		return nil
	}
	return s.FetchForUser(ctx, draft.UserID)
}

// FetchForUser replaces Mine with the user's reservations, ordered by
// date.
func (s *ReservationStore) FetchForUser(ctx context.Context, userID string) error {
	t := s.c.begin("fetchForUser")
	defer s.c.finish(t)

	list, err := s.api.ListReservations(ctx, userID)
	err = s.c.commit(ctx, t, err, func(d *reservationData) { d.mine = list })
	if err != nil {
		s.log.Debug("fetch reservations failed", zap.String("user_id", userID), zap.Error(err))
	}
	return err
}

// Cancel marks a reservation cancelled on the backend and then applies
// the same change to the held list without refetching.
func (s *ReservationStore) Cancel(ctx context.Context, id uint64) error {
	t := s.c.begin("cancel:" + strconv.FormatUint(id, 10))
	defer s.c.finish(t)

	err := s.api.UpdateReservationStatus(ctx, id, model.StatusCancelled)
	err = s.c.commit(ctx, t, err, func(d *reservationData) {
		next := make([]model.Reservation, len(d.mine))
		for i, r := range d.mine {
			if r.ID == id {
				r.Status = model.StatusCancelled
			}
			next[i] = r
		}
		d.mine = next
	})
	if err != nil {
		s.log.Debug("cancel reservation failed", zap.Uint64("id", id), zap.Error(err))
	}
	return err
}
