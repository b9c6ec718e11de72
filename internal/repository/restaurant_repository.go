package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/table-reservation/internal/model"
)

// RestaurantRepo reads the restaurants table.
type RestaurantRepo struct{ db *sql.DB }

func NewRestaurantRepo(db *sql.DB) *RestaurantRepo { return &RestaurantRepo{db: db} }

const restaurantColumns = `id, name, description, cuisine, address, phone, image_url,
	opening_hour, closing_hour, owner_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(s rowScanner) (model.Restaurant, error) {
	var (
		r     model.Restaurant
		owner sql.NullString
	)
	err := s.Scan(&r.ID, &r.Name, &r.Description, &r.Cuisine, &r.Address, &r.Phone, &r.ImageURL,
		&r.OpeningHour, &r.ClosingHour, &owner, &r.CreatedAt)
	if err != nil {
		return model.Restaurant{}, err
	}
	if owner.Valid {
		o := owner.String
		r.OwnerID = &o
	}
	return r, nil
}

// List returns every restaurant ordered by name ascending.
func (r *RestaurantRepo) List(ctx context.Context) ([]model.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+restaurantColumns+" FROM restaurants ORDER BY name ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Restaurant, 0)
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rest)
	}
	return out, rows.Err()
}

// GetByID returns one restaurant or ErrNotFound.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (model.Restaurant, error) {
	rest, err := scanRestaurant(r.db.QueryRowContext(ctx,
		"SELECT "+restaurantColumns+" FROM restaurants WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Restaurant{}, ErrNotFound
	}
	return rest, err
}
