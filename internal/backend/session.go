package backend

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Session is the proof of authentication issued by the backend.  Callers
// treat it as opaque; the only thing they may read is the bound user id.
type Session struct {
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	userID       string
}

// NewSession builds a session from its parts.  It is used when decoding
// backend responses and by tests that need a session without a server.
func NewSession(userID, accessToken, refreshToken string, expiresAt time.Time) *Session {
	return &Session{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    expiresAt,
		userID:       userID,
	}
}

// UserID returns the id of the user the session is bound to.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.userID
}

func (s *Session) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

// sessionWire is the JSON shape of a session, shared by API responses and
// the on-disk session file.
type sessionWire struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
}

func (w sessionWire) session() *Session {
	if w.AccessToken == "" || w.UserID == "" {
		return nil
	}
	return NewSession(w.UserID, w.AccessToken, w.RefreshToken, w.ExpiresAt)
}

func (s *Session) wire() sessionWire {
	return sessionWire{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		ExpiresAt:    s.expiresAt,
		UserID:       s.userID,
	}
}

// SessionStorage persists the current session between runs so it can be
// rehydrated at startup.
type SessionStorage interface {
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}

// MemoryStorage keeps the session in memory only.
type MemoryStorage struct {
	mu sync.Mutex
	s  *Session
}

func (m *MemoryStorage) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStorage) Save(s *Session) error {
	m.mu.Lock()
	m.s = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Clear() error { return m.Save(nil) }

// FileStorage stores the session as JSON in a file readable only by the
// current user.
type FileStorage struct {
	Path string
}

// Load returns nil without error when the file does not exist.
func (f FileStorage) Load() (*Session, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var w sessionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return w.session(), nil
}

func (f FileStorage) Save(s *Session) error {
	if s == nil {
		return f.Clear()
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(s.wire())
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, b, 0o600)
}

func (f FileStorage) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
