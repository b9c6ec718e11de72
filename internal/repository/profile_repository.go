package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/table-reservation/internal/model"
)

// ProfileRepo reads and writes user_profiles rows.  A profile's id is the
// id of the auth identity it belongs to.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

const profileColumns = "id, full_name, phone, email, role, created_at, updated_at"

// Get returns the profile for id or ErrNotFound.
func (r *ProfileRepo) Get(ctx context.Context, id string) (model.UserProfile, error) {
	var p model.UserProfile
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM user_profiles WHERE id=? LIMIT 1", id).
		Scan(&p.ID, &p.FullName, &p.Phone, &p.Email, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserProfile{}, ErrNotFound
	}
	return p, err
}

// Insert creates the profile row.  An empty role becomes customer.  A
// second profile for the same id is ErrConflict.
func (r *ProfileRepo) Insert(ctx context.Context, p model.UserProfile) (model.UserProfile, error) {
	if p.Role == "" {
		p.Role = model.RoleCustomer
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_profiles (id, full_name, phone, email, role) VALUES (?,?,?,?,?)",
		p.ID, strings.TrimSpace(p.FullName), strings.TrimSpace(p.Phone), normalizeEmail(p.Email), p.Role)
	if err != nil {
		if isDuplicate(err) {
			return model.UserProfile{}, ErrConflict
		}
		return model.UserProfile{}, err
	}
	return r.Get(ctx, p.ID)
}

// Update applies the non-nil fields of upd and stamps updated_at.
func (r *ProfileRepo) Update(ctx context.Context, id string, upd model.ProfileUpdate) (model.UserProfile, error) {
	sets := []string{"updated_at=UTC_TIMESTAMP()"}
	args := []any{}
	if upd.FullName != nil {
		sets = append(sets, "full_name=?")
		args = append(args, strings.TrimSpace(*upd.FullName))
	}
	if upd.Phone != nil {
		sets = append(sets, "phone=?")
		args = append(args, strings.TrimSpace(*upd.Phone))
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_profiles SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return model.UserProfile{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.UserProfile{}, ErrNotFound
	}
	return r.Get(ctx, id)
}
