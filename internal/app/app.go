// Package app is the application root of the client.  It owns exactly
// one instance of each store, wires them to the backend client and runs
// the session manager for the lifetime of the process.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/backend"
	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/store"
)

// ErrSignedOut is returned by operations that need a signed-in user.
var ErrSignedOut = errors.New("not signed in")

const refreshRetry = 30 * time.Second

// App holds the client's long-lived components.
type App struct {
	Config       config.ClientConfig
	Log          *zap.Logger
	Backend      *backend.Client
	Identity     *store.IdentityStore
	Catalog      *store.CatalogStore
	Reservations *store.ReservationStore
	Sessions     *store.SessionManager

	now func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New builds the client.  The session is persisted to cfg.SessionFile
// unless opts supply other storage.
func New(cfg config.ClientConfig, log *zap.Logger, opts ...backend.Option) *App {
	if log == nil {
		log = zap.NewNop()
	}
	base := []backend.Option{
		backend.WithLogger(log.Named("backend")),
		backend.WithSessionStorage(backend.FileStorage{Path: cfg.SessionFile}),
	}
	if cfg.RequestTimeout > 0 {
		base = append(base, backend.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	}
	client := backend.NewClient(cfg.BackendURL, append(base, opts...)...)

	identity := store.NewIdentityStore(client, log.Named("identity"))
	return &App{
		Config:       cfg,
		Log:          log,
		Backend:      client,
		Identity:     identity,
		Catalog:      store.NewCatalogStore(client, log.Named("catalog")),
		Reservations: store.NewReservationStore(client, log.Named("reservations")),
		Sessions:     store.NewSessionManager(client, identity, log.Named("session")),
		now:          time.Now,
	}
}

// Start runs the session manager and, if configured, the background
// session refresh.  It returns once the initial session has been
// observed.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.mu.Unlock()

	a.Sessions.Start(ctx)
	if a.Config.AutoRefresh {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Backend.AutoRefresh(bg, a.Config.RefreshMargin, refreshRetry)
		}()
	}
}

// Close stops the session manager and background work.
func (a *App) Close() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	a.Sessions.Stop()
	if cancel != nil {
		cancel()
	}
	a.wg.Wait()
}

// UserID returns the signed-in user's id or ErrSignedOut.
func (a *App) UserID() (string, error) {
	s := a.Identity.Snapshot().Session
	if s == nil {
		return "", ErrSignedOut
	}
	return s.UserID(), nil
}

// Book creates a reservation for the signed-in user.
func (a *App) Book(ctx context.Context, draft model.ReservationDraft) error {
	id, err := a.UserID()
	if err != nil {
		return err
	}
	draft.UserID = id
	return a.Reservations.Create(ctx, draft)
}

// MyReservations refetches the signed-in user's reservations and returns
// them split into upcoming, past and cancelled.
func (a *App) MyReservations(ctx context.Context) (store.Partitioned, error) {
	id, err := a.UserID()
	if err != nil {
		return store.Partitioned{}, err
	}
	if err := a.Reservations.FetchForUser(ctx, id); err != nil {
		return store.Partitioned{}, err
	}
	return a.Reservations.Snapshot().Partition(a.now()), nil
}
