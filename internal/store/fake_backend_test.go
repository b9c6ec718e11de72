package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/table-reservation/internal/backend"
	"github.com/iliyamo/table-reservation/internal/model"
)

// fakeBackend is an in-memory stand-in for the backend client.
type fakeBackend struct {
	mu sync.Mutex

	passwords    map[string]string // email -> password
	userIDs      map[string]string // email -> user id
	profiles     map[string]model.UserProfile
	restaurants  []model.Restaurant
	reservations []model.Reservation
	nextResID    uint64

	current   *backend.Session
	listeners map[int]func(backend.AuthEvent, *backend.Session)
	nextSub   int

	insertProfileErr error
	signOutErr       error
	signUpNoUser     bool
	listErr          error
	getSessionErr    error
	listCalls        int
	lastDraft        model.ReservationDraft

	// listHook, when set, runs inside ListRestaurants before it returns.
	listHook func(call int)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		passwords: map[string]string{},
		userIDs:   map[string]string{},
		profiles:  map[string]model.UserProfile{},
		listeners: map[int]func(backend.AuthEvent, *backend.Session){},
	}
}

func (f *fakeBackend) addUser(id, email, password string, p *model.UserProfile) {
	f.passwords[email] = password
	f.userIDs[email] = id
	if p != nil {
		f.profiles[id] = *p
	}
}

func (f *fakeBackend) emit(ev backend.AuthEvent, s *backend.Session) {
	f.mu.Lock()
	f.current = s
	fns := make([]func(backend.AuthEvent, *backend.Session), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev, s)
	}
}

func (f *fakeBackend) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	f.mu.Lock()
	pw, ok := f.passwords[email]
	id := f.userIDs[email]
	f.mu.Unlock()
	if !ok || pw != password {
		return nil, &backend.APIError{Status: 401, Message: "invalid credentials"}
	}
	s := backend.NewSession(id, "access-"+id, "refresh-"+id, time.Now().Add(time.Hour))
	f.emit(backend.EventSignedIn, s)
	return s, nil
}

func (f *fakeBackend) SignUp(ctx context.Context, email, password string) (backend.SignUpResult, error) {
	f.mu.Lock()
	if _, ok := f.passwords[email]; ok {
		f.mu.Unlock()
		return backend.SignUpResult{}, &backend.APIError{Status: 409, Message: "email already exists"}
	}
	if f.signUpNoUser {
		f.mu.Unlock()
		return backend.SignUpResult{Email: email}, nil
	}
	id := "user-" + email
	f.passwords[email] = password
	f.userIDs[email] = id
	f.mu.Unlock()
	s := backend.NewSession(id, "access-"+id, "refresh-"+id, time.Now().Add(time.Hour))
	return backend.SignUpResult{UserID: id, Email: email, Session: s}, nil
}

func (f *fakeBackend) SignOut(ctx context.Context) error {
	f.emit(backend.EventSignedOut, nil)
	return f.signOutErr
}

func (f *fakeBackend) UpdateUser(ctx context.Context, attrs backend.UserAttributes) error {
	if len(attrs.Password) < 6 {
		return &backend.APIError{Status: 400, Message: "password must be at least 6 characters"}
	}
	return nil
}

func (f *fakeBackend) GetProfile(ctx context.Context, id string) (model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return model.UserProfile{}, &backend.APIError{Status: 404, Message: "profile not found"}
	}
	return p, nil
}

func (f *fakeBackend) InsertProfile(ctx context.Context, p model.UserProfile) (model.UserProfile, error) {
	if f.insertProfileErr != nil {
		return model.UserProfile{}, f.insertProfileErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.profiles[p.ID] = p
	return p, nil
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return model.UserProfile{}, &backend.APIError{Status: 404, Message: "profile not found"}
	}
	if upd.FullName != nil {
		p.FullName = *upd.FullName
	}
	if upd.Phone != nil {
		p.Phone = *upd.Phone
	}
	p.UpdatedAt = time.Now()
	f.profiles[id] = p
	return p, nil
}

func (f *fakeBackend) ListRestaurants(ctx context.Context) ([]model.Restaurant, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	out := append([]model.Restaurant(nil), f.restaurants...)
	err := f.listErr
	hook := f.listHook
	f.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeBackend) GetRestaurant(ctx context.Context, id uint64) (model.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.restaurants {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Restaurant{}, &backend.APIError{Status: 404, Message: "restaurant not found"}
}

func (f *fakeBackend) InsertReservation(ctx context.Context, d model.ReservationDraft) (model.Reservation, error) {
	if err := d.Validate(); err != nil {
		return model.Reservation{}, &backend.APIError{Status: 400, Message: err.Error()}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastDraft = d
	f.nextResID++
	r := model.Reservation{
		ID:              f.nextResID,
		RestaurantID:    d.RestaurantID,
		UserID:          d.UserID,
		Date:            d.Date,
		Time:            d.Time,
		PartySize:       d.PartySize,
		Status:          d.Status,
		SpecialRequests: d.SpecialRequests,
		CreatedAt:       time.Now(),
	}
	f.reservations = append(f.reservations, r)
	return r, nil
}

func (f *fakeBackend) ListReservations(ctx context.Context, userID string) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, r := range f.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (f *fakeBackend) UpdateReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.reservations {
		if f.reservations[i].ID == id {
			f.reservations[i].Status = status
			return nil
		}
	}
	return &backend.APIError{Status: 404, Message: "reservation not found"}
}

func (f *fakeBackend) GetSession(ctx context.Context) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getSessionErr != nil {
		return nil, f.getSessionErr
	}
	return f.current, nil
}

func (f *fakeBackend) OnAuthStateChange(fn func(backend.AuthEvent, *backend.Session)) *backend.Subscription {
	f.mu.Lock()
	f.nextSub++
	f.listeners[f.nextSub] = fn
	f.mu.Unlock()
	return &backend.Subscription{}
}

func (f *fakeBackend) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

var errTransport = errors.New("dial tcp: connection refused")
