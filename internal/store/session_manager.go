package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/backend"
)

// AuthNotifier is the part of the auth subsystem the session manager
// watches.
type AuthNotifier interface {
	GetSession(ctx context.Context) (*backend.Session, error)
	OnAuthStateChange(fn func(backend.AuthEvent, *backend.Session)) *backend.Subscription
}

// SessionManager keeps the identity store in step with the auth
// subsystem: one fetch of the existing session at start, then every
// change notification until Stop.
type SessionManager struct {
	auth     AuthNotifier
	identity *IdentityStore
	log      *zap.Logger

	mu     sync.Mutex
	sub    *backend.Subscription
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSessionManager returns a manager that writes into identity.
func NewSessionManager(auth AuthNotifier, identity *IdentityStore, log *zap.Logger) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{auth: auth, identity: identity, log: log}
}

// Start installs the change listener and observes the current session.
// A failed initial fetch means signed out and is not retried.  Calling
// Start twice has no effect.
func (m *SessionManager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.sub != nil {
		m.mu.Unlock()
		return
	}
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	lctx := m.ctx
	m.sub = m.auth.OnAuthStateChange(func(ev backend.AuthEvent, s *backend.Session) {
		m.log.Debug("auth state changed", zap.String("event", string(ev)), zap.String("user_id", s.UserID()))
		m.observe(lctx, s)
	})
	m.mu.Unlock()

	s, err := m.auth.GetSession(ctx)
	if err != nil {
		m.log.Debug("no existing session", zap.Error(err))
		s = nil
	}
	m.observe(lctx, s)
}

// Stop removes the listener and abandons profile fetches it started.
func (m *SessionManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub == nil {
		return
	}
	m.sub.Unsubscribe()
	m.cancel()
	m.sub = nil
}

func (m *SessionManager) observe(ctx context.Context, s *backend.Session) {
	if ctx.Err() != nil {
		return
	}
	m.identity.setSession(s)
	if s == nil {
		return
	}
	if err := m.identity.FetchProfile(ctx); err != nil {
		m.log.Debug("profile fetch after session change failed", zap.Error(err))
	}
}
