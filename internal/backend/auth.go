package backend

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// AuthEvent names a session change.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "signed_in"
	EventSignedOut      AuthEvent = "signed_out"
	EventTokenRefreshed AuthEvent = "token_refreshed"
	EventUserUpdated    AuthEvent = "user_updated"
)

// Subscription is returned by OnAuthStateChange.  Unsubscribe may be
// called more than once.
type Subscription struct {
	c  *Client
	id uint64
}

func (s *Subscription) Unsubscribe() {
	if s == nil || s.c == nil {
		return
	}
	s.c.mu.Lock()
	delete(s.c.listeners, s.id)
	s.c.mu.Unlock()
}

// SignUpResult is the outcome of creating an auth identity.
type SignUpResult struct {
	UserID  string
	Email   string
	Session *Session
}

// UserAttributes are the fields of the current user that can be changed.
type UserAttributes struct {
	Password string `json:"password,omitempty"`
}

var errMissingSession = errors.New("backend response carried no session")

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpResp struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Session sessionWire `json:"session"`
}

// OnAuthStateChange registers fn to be called on every session change.
// fn runs on the goroutine that caused the change and must not block.
func (c *Client) OnAuthStateChange(fn func(AuthEvent, *Session)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.listeners[c.nextID] = fn
	return &Subscription{c: c, id: c.nextID}
}

func (c *Client) emit(ev AuthEvent, s *Session) {
	c.mu.RLock()
	fns := make([]func(AuthEvent, *Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()
	for _, fn := range fns {
		fn(ev, s)
	}
}

// setSession replaces the held session, persists it and notifies
// listeners.
func (c *Client) setSession(ev AuthEvent, s *Session) {
	c.mu.Lock()
	c.session = s
	c.loaded = true
	c.mu.Unlock()
	if err := c.storage.Save(s); err != nil {
		c.log.Warn("session persist failed", zap.Error(err))
	}
	c.emit(ev, s)
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var w sessionWire
	if err := c.do(ctx, http.MethodPost, "/v1/auth/token", credentials{email, password}, &w); err != nil {
		return nil, err
	}
	s := w.session()
	if s == nil {
		return nil, errMissingSession
	}
	c.setSession(EventSignedIn, s)
	return s, nil
}

// SignUp creates an auth identity.  The backend signs the new user in
// immediately, so the result carries a session.
func (c *Client) SignUp(ctx context.Context, email, password string) (SignUpResult, error) {
	var r signUpResp
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signup", credentials{email, password}, &r); err != nil {
		return SignUpResult{}, err
	}
	s := r.Session.session()
	if s != nil {
		c.setSession(EventSignedIn, s)
	}
	return SignUpResult{UserID: r.User.ID, Email: r.User.Email, Session: s}, nil
}

// SignOut revokes the refresh token on the backend.  The local session is
// dropped even when the backend call fails; that error is returned.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	var err error
	if s != nil {
		body := map[string]string{"refresh_token": s.refreshToken}
		err = c.do(ctx, http.MethodPost, "/v1/auth/logout", body, nil)
	}
	c.setSession(EventSignedOut, nil)
	return err
}

// GetSession returns the current session, loading it from storage on the
// first call.  An expired session is refreshed; if that fails the user is
// signed out and nil is returned.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	if !c.loaded {
		s, err := c.storage.Load()
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.session, c.loaded = s, true
	}
	s := c.session
	c.mu.Unlock()

	if s == nil || !s.expired(c.now()) {
		return s, nil
	}
	refreshed, err := c.RefreshSession(ctx)
	if err != nil {
		c.log.Debug("stored session could not be refreshed", zap.Error(err))
		c.setSession(EventSignedOut, nil)
		return nil, nil
	}
	return refreshed, nil
}

// RefreshSession rotates the refresh token and replaces the session.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil || s.refreshToken == "" {
		return nil, ErrNoSession
	}
	var w sessionWire
	body := map[string]string{"refresh_token": s.refreshToken}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/refresh", body, &w); err != nil {
		return nil, err
	}
	ns := w.session()
	if ns == nil {
		return nil, errMissingSession
	}
	c.setSession(EventTokenRefreshed, ns)
	return ns, nil
}

// UpdateUser changes attributes of the signed-in user, such as the
// password.
func (c *Client) UpdateUser(ctx context.Context, attrs UserAttributes) error {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return ErrNoSession
	}
	if err := c.do(ctx, http.MethodPut, "/v1/auth/user", attrs, nil); err != nil {
		return err
	}
	c.emit(EventUserUpdated, s)
	return nil
}

// AutoRefresh renews the session margin before it expires until ctx is
// done.  A failed refresh is retried after retry; an unauthorized refresh
// signs the user out.
func (c *Client) AutoRefresh(ctx context.Context, margin, retry time.Duration) {
	for {
		wait := retry
		c.mu.RLock()
		s := c.session
		c.mu.RUnlock()
		if s != nil && !s.expiresAt.IsZero() {
			wait = s.expiresAt.Add(-margin).Sub(c.now())
		}
		if wait < time.Second {
			wait = time.Second
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		if s == nil {
			continue
		}
		if _, err := c.RefreshSession(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrUnauthorized) {
				c.log.Info("session refresh rejected, signing out")
				c.setSession(EventSignedOut, nil)
				continue
			}
			c.log.Warn("session refresh failed", zap.Error(err))
			sleep := time.NewTimer(retry)
			select {
			case <-ctx.Done():
				sleep.Stop()
				return
			case <-sleep.C:
			}
		}
	}
}
