package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRestaurantRepo_List(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "name", "description", "cuisine", "address", "phone", "image_url",
		"opening_hour", "closing_hour", "owner_id", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM restaurants ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "Bella Cucina", "Pasta", "Italian", "1 Main St", "555", "b.jpg", 11, 22, nil, created).
			AddRow(2, "Sakura Sushi", "Rolls", "Japanese", "2 Side St", "556", "s.jpg", 12, 23, "owner-1", created))

	list, err := NewRestaurantRepo(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bella Cucina", list[0].Name)
	assert.Nil(t, list[0].OwnerID)
	require.NotNil(t, list[1].OwnerID)
	assert.Equal(t, "owner-1", *list[1].OwnerID)
}

func TestRestaurantRepo_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM restaurants WHERE id=?")).
		WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := NewRestaurantRepo(db).GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

var reservationCols = []string{"id", "restaurant_id", "user_id", "date", "time", "party_size",
	"status", "special_requests", "created_at"}

func TestReservationRepo_CreateForcesPending(t *testing.T) {
	db, mock := newMock(t)
	note := "  window seat "
	d := model.ReservationDraft{RestaurantID: 1, UserID: "u1", Date: "2030-05-01", Time: "19:30",
		PartySize: 4, SpecialRequests: &note, Status: model.StatusConfirmed}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WithArgs(uint64(1), "u1", "2030-05-01", "19:30", 4, model.StatusPending, "window seat").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations r WHERE r.id = ?")).
		WithArgs(uint64(12)).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(12, 1, "u1", time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC), "19:30:00", 4, "pending", "window seat", created))

	res, err := NewReservationRepo(db).Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), res.ID)
	assert.Equal(t, "2030-05-01", res.Date)
	assert.Equal(t, "19:30", res.Time)
	assert.Equal(t, model.StatusPending, res.Status)
	require.NotNil(t, res.SpecialRequests)
	assert.Equal(t, "window seat", *res.SpecialRequests)
}

func TestReservationRepo_CreateRejectsInvalidDraft(t *testing.T) {
	db, _ := newMock(t)
	_, err := NewReservationRepo(db).Create(context.Background(), model.ReservationDraft{UserID: "u1"})
	assert.ErrorIs(t, err, model.ErrInvalidRestaurant)
}

func TestReservationRepo_ListByUser(t *testing.T) {
	db, mock := newMock(t)
	cols := append(append([]string{}, reservationCols...), "rid", "name", "address", "image_url")
	mock.ExpectQuery(regexp.QuoteMeta("JOIN restaurants s ON s.id = r.restaurant_id")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 3, "u1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "18:00:00", 2, "cancelled", nil, created, 3, "Le Petit", "3 Rue", "p.jpg").
			AddRow(2, 1, "u1", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), "12:15:00", 5, "confirmed", nil, created, 1, "Bella Cucina", "1 Main St", "b.jpg"))

	list, err := NewReservationRepo(db).ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.StatusCancelled, list[0].Status)
	assert.Nil(t, list[0].SpecialRequests)
	assert.Equal(t, "Le Petit", list[0].Restaurant.Name)
	assert.Equal(t, "12:15", list[1].Time)
	assert.Equal(t, uint64(1), list[1].Restaurant.ID)
}

func TestReservationRepo_UpdateStatus(t *testing.T) {
	t.Run("owner", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM reservations WHERE id = ? FOR UPDATE")).
			WithArgs(uint64(5)).WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = ?")).
			WithArgs(model.StatusCancelled, uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(regexp.QuoteMeta("FROM reservations r WHERE r.id = ?")).
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows(reservationCols).
				AddRow(5, 1, "u1", time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC), "19:30:00", 2, "cancelled", nil, created))

		res, err := NewReservationRepo(db).UpdateStatus(context.Background(), 5, "u1", model.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, res.Status)
	})
	t.Run("someone else", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs(uint64(5)).WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u2"))
		mock.ExpectRollback()

		_, err := NewReservationRepo(db).UpdateStatus(context.Background(), 5, "u1", model.StatusCancelled)
		assert.ErrorIs(t, err, ErrForbidden)
	})
	t.Run("missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs(uint64(5)).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := NewReservationRepo(db).UpdateStatus(context.Background(), 5, "u1", model.StatusCancelled)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestProfileRepo_InsertDefaultsRole(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_profiles")).
		WithArgs("u1", "Ana", "555", "ana@example.com", model.RoleCustomer).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_profiles WHERE id=?")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "phone", "email", "role", "created_at", "updated_at"}).
			AddRow("u1", "Ana", "555", "ana@example.com", "customer", created, created))

	p, err := NewProfileRepo(db).Insert(context.Background(),
		model.UserProfile{ID: "u1", FullName: " Ana ", Phone: "555", Email: "Ana@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, p.Role)
}

func TestProfileRepo_InsertDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_profiles")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := NewProfileRepo(db).Insert(context.Background(), model.UserProfile{ID: "u1", Role: model.RoleOwner})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestProfileRepo_UpdatePartial(t *testing.T) {
	db, mock := newMock(t)
	phone := "999"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_profiles SET updated_at=UTC_TIMESTAMP(), phone=? WHERE id=?")).
		WithArgs("999", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := NewProfileRepo(db).Update(context.Background(), "u1", model.ProfileUpdate{Phone: &phone})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(sqlmock.AnyArg(), "ana@example.com", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ana@example.com'"})

	_, err := NewUserRepo(db).Create(context.Background(), " ANA@example.com", "secret1", 4)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := NewUserRepo(db).GetByEmail(context.Background(), "Nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"user_id", "expires_at", "revoked_at"}
	tests := []struct {
		name    string
		row     []driver.Value
		wantErr error
	}{
		{"valid", []driver.Value{"u1", now.Add(time.Hour), nil}, nil},
		{"expired", []driver.Value{"u1", now, nil}, ErrNotFound},
		{"revoked", []driver.Value{"u1", now.Add(time.Hour), now.Add(-time.Minute)}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).
				WithArgs("h").
				WillReturnRows(sqlmock.NewRows(cols).AddRow(tt.row...))

			uid, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h", now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", uid)
		})
	}
}

func TestTokenRepo_RevokeByHashAlreadyRevoked(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=?")).
		WithArgs("h").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewTokenRepo(db).RevokeByHash(context.Background(), "h"), ErrNotFound)
}

func TestReservationRepo_ListByRestaurantForOwner(t *testing.T) {
	t.Run("owner sees bookings", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM restaurants WHERE id = ?")).
			WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("o1"))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE r.restaurant_id = ?")).
			WithArgs(uint64(3)).
			WillReturnRows(sqlmock.NewRows(reservationCols).
				AddRow(7, 3, "u9", time.Date(2030, 2, 2, 0, 0, 0, 0, time.UTC), "20:00:00", 6, "pending", nil, created))

		list, err := NewReservationRepo(db).ListByRestaurantForOwner(context.Background(), 3, "o1", false)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "u9", list[0].UserID)
		assert.Nil(t, list[0].Restaurant)
	})
	t.Run("other owner", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM restaurants")).
			WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("o2"))

		_, err := NewReservationRepo(db).ListByRestaurantForOwner(context.Background(), 3, "o1", false)
		assert.ErrorIs(t, err, ErrForbidden)
	})
	t.Run("unowned restaurant", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM restaurants")).
			WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(nil))

		_, err := NewReservationRepo(db).ListByRestaurantForOwner(context.Background(), 3, "o1", false)
		assert.ErrorIs(t, err, ErrForbidden)
	})
	t.Run("unknown restaurant", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM restaurants")).
			WithArgs(uint64(3)).WillReturnError(sql.ErrNoRows)

		_, err := NewReservationRepo(db).ListByRestaurantForOwner(context.Background(), 3, "o1", true)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReservationRepo_ConfirmForOwner(t *testing.T) {
	t.Run("pending becomes confirmed", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT restaurant_id, status FROM reservations WHERE id = ? FOR UPDATE")).
			WithArgs(uint64(7)).WillReturnRows(sqlmock.NewRows([]string{"restaurant_id", "status"}).AddRow(3, "pending"))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM restaurants")).
			WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("o1"))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = ?")).
			WithArgs(model.StatusConfirmed, uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(regexp.QuoteMeta("FROM reservations r WHERE r.id = ?")).
			WithArgs(uint64(7)).
			WillReturnRows(sqlmock.NewRows(reservationCols).
				AddRow(7, 3, "u9", time.Date(2030, 2, 2, 0, 0, 0, 0, time.UTC), "20:00:00", 6, "confirmed", nil, created))

		res, err := NewReservationRepo(db).ConfirmForOwner(context.Background(), 7, "o1", false)
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, res.Status)
	})
	t.Run("cancelled is a conflict", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs(uint64(7)).WillReturnRows(sqlmock.NewRows([]string{"restaurant_id", "status"}).AddRow(3, "cancelled"))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM restaurants")).
			WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(nil))
		mock.ExpectRollback()

		_, err := NewReservationRepo(db).ConfirmForOwner(context.Background(), 7, "admin-1", true)
		assert.ErrorIs(t, err, ErrConflict)
	})
}
