package backend

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when a single-row fetch matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned for bad credentials or an expired session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict is returned when a write collides with existing data,
	// e.g. registering an email twice.
	ErrConflict = errors.New("conflict")
	// ErrNoSession is returned by calls that need a signed-in user.
	ErrNoSession = errors.New("not signed in")
)

// APIError is a non-2xx response from the backend.  Message is the
// human-readable text the backend sent and is what Error returns.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// Unwrap maps the status onto the package sentinels so callers can use
// errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}
