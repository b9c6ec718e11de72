package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/backend"
	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/store"
)

type fakeAPI struct {
	mu           sync.Mutex
	reservations []model.Reservation
}

func (f *fakeAPI) start(t *testing.T) string {
	e := echo.New()
	e.POST("/v1/auth/token", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"access_token":  "tok",
			"refresh_token": "ref",
			"expires_at":    time.Now().Add(time.Hour),
			"user_id":       "u1",
		})
	})
	e.POST("/v1/auth/logout", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/v1/profiles/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, model.UserProfile{ID: c.Param("id"), FullName: "Ana", Role: model.RoleCustomer})
	})
	e.GET("/v1/reservations", func(c echo.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		return c.JSON(http.StatusOK, f.reservations)
	})
	e.POST("/v1/reservations", func(c echo.Context) error {
		var d model.ReservationDraft
		if err := c.Bind(&d); err != nil {
			return err
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		r := model.Reservation{ID: uint64(len(f.reservations) + 1), RestaurantID: d.RestaurantID, UserID: d.UserID,
			Date: d.Date, Time: d.Time, PartySize: d.PartySize, Status: model.StatusPending}
		f.reservations = append(f.reservations, r)
		return c.JSON(http.StatusCreated, r)
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL
}

func newApp(t *testing.T, url string) *App {
	cfg := config.ClientConfig{
		BackendURL:     url,
		SessionFile:    filepath.Join(t.TempDir(), "session.json"),
		RequestTimeout: 5 * time.Second,
	}
	a := New(cfg, nil)
	t.Cleanup(a.Close)
	return a
}

func TestAppSignInLoadsProfile(t *testing.T) {
	a := newApp(t, (&fakeAPI{}).start(t))
	a.Start(context.Background())
	assert.Nil(t, a.Identity.Snapshot().Session)

	require.NoError(t, a.Identity.SignIn(context.Background(), "ana@example.com", "secret1"))
	assert.Eventually(t, func() bool {
		p := a.Identity.Snapshot().Profile
		return p != nil && p.FullName == "Ana"
	}, 2*time.Second, 10*time.Millisecond)

	id, err := a.UserID()
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
}

func TestAppSessionSurvivesRestart(t *testing.T) {
	url := (&fakeAPI{}).start(t)
	file := filepath.Join(t.TempDir(), "session.json")
	cfg := config.ClientConfig{BackendURL: url, SessionFile: file}

	first := New(cfg, nil)
	first.Start(context.Background())
	require.NoError(t, first.Identity.SignIn(context.Background(), "ana@example.com", "secret1"))
	first.Close()

	second := New(cfg, nil)
	second.Start(context.Background())
	defer second.Close()
	s := second.Identity.Snapshot().Session
	require.NotNil(t, s)
	assert.Equal(t, "u1", s.UserID())
}

func TestAppBookAndPartition(t *testing.T) {
	api := &fakeAPI{reservations: []model.Reservation{
		{ID: 100, UserID: "u1", Date: "2020-01-01", Time: "18:00", Status: model.StatusConfirmed},
		{ID: 101, UserID: "u1", Date: "2020-02-01", Time: "18:00", Status: model.StatusCancelled},
	}}
	a := newApp(t, api.start(t))
	a.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	a.Start(context.Background())

	err := a.Book(context.Background(), model.ReservationDraft{RestaurantID: 1, Date: "2030-05-01", Time: "19:30", PartySize: 2})
	assert.ErrorIs(t, err, ErrSignedOut)
	_, err = a.MyReservations(context.Background())
	assert.ErrorIs(t, err, ErrSignedOut)

	require.NoError(t, a.Identity.SignIn(context.Background(), "ana@example.com", "secret1"))
	require.NoError(t, a.Book(context.Background(), model.ReservationDraft{RestaurantID: 1, Date: "2030-05-01", Time: "19:30", PartySize: 2}))

	// Create refetched the list.
	assert.Len(t, a.Reservations.Snapshot().Mine, 3)

	p, err := a.MyReservations(context.Background())
	require.NoError(t, err)
	assert.Len(t, p.Of(store.CategoryUpcoming), 1)
	assert.Len(t, p.Of(store.CategoryPast), 1)
	assert.Len(t, p.Of(store.CategoryCancelled), 1)
	assert.Equal(t, "u1", p.Upcoming[0].UserID)
}

func TestAppSignOutClearsSession(t *testing.T) {
	a := newApp(t, (&fakeAPI{}).start(t))
	a.Start(context.Background())
	require.NoError(t, a.Identity.SignIn(context.Background(), "ana@example.com", "secret1"))
	require.NoError(t, a.Identity.SignOut(context.Background()))

	_, err := a.UserID()
	assert.ErrorIs(t, err, ErrSignedOut)
	s, err := a.Backend.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestAppCloseIsIdempotent(t *testing.T) {
	a := New(config.ClientConfig{BackendURL: "http://127.0.0.1:1", AutoRefresh: true, RefreshMargin: time.Minute}, nil,
		backend.WithSessionStorage(&backend.MemoryStorage{}))
	a.Start(context.Background())
	a.Start(context.Background())
	a.Close()
	a.Close()
}
