package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// ReservationRepo provides the reservation operations the API exposes:
// insert, list by user joined with a restaurant summary, and a status
// update restricted to the reservation's owner.  Rows are never deleted.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `r.id, r.restaurant_id, r.user_id, r.date, r.time, r.party_size,
	r.status, r.special_requests, r.created_at`

// scanReservation reads reservationColumns, optionally followed by the
// restaurant summary columns.
func scanReservation(s rowScanner, withRestaurant bool) (model.Reservation, error) {
	var (
		res  model.Reservation
		date time.Time
		tod  string
		sr   sql.NullString
	)
	dest := []any{&res.ID, &res.RestaurantID, &res.UserID, &date, &tod, &res.PartySize,
		&res.Status, &sr, &res.CreatedAt}
	var sum model.RestaurantSummary
	if withRestaurant {
		dest = append(dest, &sum.ID, &sum.Name, &sum.Address, &sum.ImageURL)
	}
	if err := s.Scan(dest...); err != nil {
		return model.Reservation{}, err
	}
	res.Date = date.Format(model.DateLayout)
	res.Time = trimSeconds(tod)
	if sr.Valid {
		v := sr.String
		res.SpecialRequests = &v
	}
	if withRestaurant {
		res.Restaurant = &sum
	}
	return res, nil
}

// trimSeconds turns a MySQL TIME value such as "18:30:00" into "18:30".
func trimSeconds(s string) string {
	if d, ok := model.ParseTimeOfDay(s); ok && d%time.Minute == 0 {
		if i := strings.LastIndex(s, ":"); i > 2 {
			return s[:i]
		}
	}
	return s
}

// Create inserts a reservation from d.  The status is always pending and
// no availability check is made.
func (r *ReservationRepo) Create(ctx context.Context, d model.ReservationDraft) (model.Reservation, error) {
	if err := d.Validate(); err != nil {
		return model.Reservation{}, err
	}
	var sr any
	if d.SpecialRequests != nil && strings.TrimSpace(*d.SpecialRequests) != "" {
		sr = strings.TrimSpace(*d.SpecialRequests)
	}
	const q = `INSERT INTO reservations (restaurant_id, user_id, date, time, party_size, status, special_requests)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		d.RestaurantID, d.UserID, d.Date, d.Time, d.PartySize, model.StatusPending, sr)
	if err != nil {
		return model.Reservation{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Reservation{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns a reservation without the restaurant join, or
// ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations r WHERE r.id = ? LIMIT 1", id), false)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// ListByUser returns a user's reservations joined with a summary of the
// restaurant, ordered by date ascending.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `,
		s.id, s.name, s.address, s.image_url
		FROM reservations r
		JOIN restaurants s ON s.id = r.restaurant_id
		WHERE r.user_id = ?
		ORDER BY r.date ASC, r.time ASC, r.id ASC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status of a reservation owned by userID.  It
// returns ErrNotFound when the row does not exist and ErrForbidden when it
// belongs to someone else.  Setting the current status again succeeds.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, userID string, status model.ReservationStatus) (model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var owner string
	err = tx.QueryRowContext(ctx, "SELECT user_id FROM reservations WHERE id = ? FOR UPDATE", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	if owner != userID {
		return model.Reservation{}, ErrForbidden
	}
	if _, err := tx.ExecContext(ctx, "UPDATE reservations SET status = ? WHERE id = ?", status, id); err != nil {
		return model.Reservation{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}
	return r.GetByID(ctx, id)
}

// checkOwner loads the owner of restaurantID.  Admins pass for any
// restaurant; owners only for their own.
func checkOwner(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, restaurantID uint64, ownerID string, admin bool) error {
	var owner sql.NullString
	err := q.QueryRowContext(ctx, "SELECT owner_id FROM restaurants WHERE id = ? LIMIT 1", restaurantID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !admin && (!owner.Valid || owner.String != ownerID) {
		return ErrForbidden
	}
	return nil
}

// ListByRestaurantForOwner returns every reservation of a restaurant,
// ordered by date ascending, if ownerID owns it or admin is set.  It
// returns ErrNotFound for an unknown restaurant and ErrForbidden for
// someone else's.
func (r *ReservationRepo) ListByRestaurantForOwner(ctx context.Context, restaurantID uint64, ownerID string, admin bool) ([]model.Reservation, error) {
	if err := checkOwner(ctx, r.db, restaurantID, ownerID, admin); err != nil {
		return nil, err
	}
	const q = `SELECT ` + reservationColumns + `
		FROM reservations r
		WHERE r.restaurant_id = ?
		ORDER BY r.date ASC, r.time ASC, r.id ASC`
	rows, err := r.db.QueryContext(ctx, q, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ConfirmForOwner moves a pending reservation to confirmed on behalf of
// the restaurant's owner.  Confirming an already confirmed reservation
// succeeds; a cancelled one is ErrConflict.
func (r *ReservationRepo) ConfirmForOwner(ctx context.Context, id uint64, ownerID string, admin bool) (model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		restaurantID uint64
		status       model.ReservationStatus
	)
	err = tx.QueryRowContext(ctx,
		"SELECT restaurant_id, status FROM reservations WHERE id = ? FOR UPDATE", id).Scan(&restaurantID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	if err := checkOwner(ctx, tx, restaurantID, ownerID, admin); err != nil {
		return model.Reservation{}, err
	}
	switch status {
	case model.StatusCancelled:
		return model.Reservation{}, ErrConflict
	case model.StatusPending:
		if _, err := tx.ExecContext(ctx, "UPDATE reservations SET status = ? WHERE id = ?", model.StatusConfirmed, id); err != nil {
			return model.Reservation{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}
	return r.GetByID(ctx, id)
}
