// Package backend is the client side of the restaurant backend API.  It
// covers the record collections (restaurants, reservations,
// user_profiles) and the auth subsystem, including session persistence
// and session-change notifications.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Client talks to the backend over HTTP.  It holds the current session
// and attaches its access token to every request.  A Client is safe for
// concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
	storage SessionStorage
	now     func() time.Time

	mu        sync.RWMutex
	session   *Session
	loaded    bool
	listeners map[uint64]func(AuthEvent, *Session)
	nextID    uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithLogger sets the logger used for background work.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithSessionStorage sets where the session is persisted.
func WithSessionStorage(s SessionStorage) Option { return func(c *Client) { c.storage = s } }

// NewClient returns a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		log:       zap.NewNop(),
		storage:   &MemoryStorage{},
		now:       time.Now,
		listeners: make(map[uint64]func(AuthEvent, *Session)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.accessToken
}

// do sends a JSON request and decodes a JSON response into out.  Non-2xx
// responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.accessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// ListRestaurants returns every restaurant ordered by name ascending.
func (c *Client) ListRestaurants(ctx context.Context) ([]model.Restaurant, error) {
	var out []model.Restaurant
	if err := c.do(ctx, http.MethodGet, "/v1/restaurants", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRestaurant returns a single restaurant or an error wrapping
// ErrNotFound.
func (c *Client) GetRestaurant(ctx context.Context, id uint64) (model.Restaurant, error) {
	var out model.Restaurant
	err := c.do(ctx, http.MethodGet, "/v1/restaurants/"+strconv.FormatUint(id, 10), nil, &out)
	return out, err
}

// GetProfile returns the profile row for a user id.
func (c *Client) GetProfile(ctx context.Context, id string) (model.UserProfile, error) {
	var out model.UserProfile
	err := c.do(ctx, http.MethodGet, "/v1/profiles/"+url.PathEscape(id), nil, &out)
	return out, err
}

// InsertProfile creates a profile row and returns it as stored.
func (c *Client) InsertProfile(ctx context.Context, p model.UserProfile) (model.UserProfile, error) {
	var out model.UserProfile
	err := c.do(ctx, http.MethodPost, "/v1/profiles", p, &out)
	return out, err
}

// UpdateProfile applies a partial update and returns the updated row.
func (c *Client) UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (model.UserProfile, error) {
	var out model.UserProfile
	err := c.do(ctx, http.MethodPatch, "/v1/profiles/"+url.PathEscape(id), upd, &out)
	return out, err
}

// InsertReservation creates a reservation.  The draft is sent with status
// pending, which the backend also enforces.
func (c *Client) InsertReservation(ctx context.Context, d model.ReservationDraft) (model.Reservation, error) {
	d.Status = model.StatusPending
	var out model.Reservation
	err := c.do(ctx, http.MethodPost, "/v1/reservations", d, &out)
	return out, err
}

// ListReservations returns a user's reservations joined with a restaurant
// summary, ordered by date ascending.
func (c *Client) ListReservations(ctx context.Context, userID string) ([]model.Reservation, error) {
	var out []model.Reservation
	q := url.Values{"user_id": {userID}}
	if err := c.do(ctx, http.MethodGet, "/v1/reservations?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReservationStatus sets the status of one reservation.
func (c *Client) UpdateReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	body := map[string]model.ReservationStatus{"status": status}
	return c.do(ctx, http.MethodPatch, "/v1/reservations/"+strconv.FormatUint(id, 10), body, nil)
}
