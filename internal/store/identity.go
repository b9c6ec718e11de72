package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/backend"
	"github.com/iliyamo/table-reservation/internal/model"
)

// IdentityBackend is what the identity store needs from the backend.
type IdentityBackend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
	SignUp(ctx context.Context, email, password string) (backend.SignUpResult, error)
	SignOut(ctx context.Context) error
	UpdateUser(ctx context.Context, attrs backend.UserAttributes) error
	GetProfile(ctx context.Context, id string) (model.UserProfile, error)
	InsertProfile(ctx context.Context, p model.UserProfile) (model.UserProfile, error)
	UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (model.UserProfile, error)
}

// IdentityState is a snapshot of the identity store.
type IdentityState struct {
	Profile   *model.UserProfile
	Session   *backend.Session
	IsLoading bool
	Error     string
}

type identityData struct {
	profile *model.UserProfile
	session *backend.Session
}

// IdentityStore holds the signed-in user's profile and session.  Only its
// own operations and the SessionManager change them.
type IdentityStore struct {
	c   *core[identityData]
	api IdentityBackend
	log *zap.Logger
	now func() time.Time
}

// NewIdentityStore returns an empty, signed-out store.
func NewIdentityStore(api IdentityBackend, log *zap.Logger) *IdentityStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityStore{c: newCore(identityData{}), api: api, log: log, now: time.Now}
}

// Snapshot returns a copy of the current state.
func (s *IdentityStore) Snapshot() IdentityState {
	var st IdentityState
	s.c.read(func(d *identityData, loading bool, err string) {
		if d.profile != nil {
			p := *d.profile
			st.Profile = &p
		}
		st.Session = d.session
		st.IsLoading = loading
		st.Error = err
	})
	return st
}

// Subscribe calls fn with a fresh snapshot after every change.
func (s *IdentityStore) Subscribe(fn func(IdentityState)) (unsubscribe func()) {
	return s.c.subscribe(func() { fn(s.Snapshot()) })
}

func (s *IdentityStore) session() *backend.Session {
	var sess *backend.Session
	s.c.read(func(d *identityData, _ bool, _ string) { sess = d.session })
	return sess
}

// setSession is used by the SessionManager for every observed session.
func (s *IdentityStore) setSession(sess *backend.Session) {
	s.c.update(func(d *identityData) {
		d.session = sess
		// A profile never outlives the session of the user it belongs to.
		if d.profile != nil && d.profile.ID != sess.UserID() {
			d.profile = nil
		}
	})
}

// SignIn authenticates with email and password, then loads the profile.
// On failure profile and session are left untouched.
func (s *IdentityStore) SignIn(ctx context.Context, email, password string) error {
	t := s.c.begin("")
	defer s.c.finish(t)

	sess, err := s.api.SignInWithPassword(ctx, email, password)
	if err := s.c.commit(ctx, t, err, func(d *identityData) { d.session = sess }); err != nil {
		s.log.Debug("sign in failed", zap.String("email", email), zap.Error(err))
		return err
	}
	return s.FetchProfile(ctx)
}

// SignUp creates an auth identity and its profile.  Role defaults to
// customer.  If the profile insert fails the identity is not rolled back;
// the error says so.  A result without a user id leaves state untouched.
func (s *IdentityStore) SignUp(ctx context.Context, email, password string, fields model.ProfileFields) error {
	t := s.c.begin("")
	defer s.c.finish(t)

	res, err := s.api.SignUp(ctx, email, password)
	if err := s.c.commit(ctx, t, err, nil); err != nil {
		s.log.Debug("sign up failed", zap.String("email", email), zap.Error(err))
		return err
	}
	if res.UserID == "" {
		s.log.Warn("sign up returned no user; profile not created", zap.String("email", email))
		return nil
	}

	role := fields.Role
	if role == "" {
		role = model.RoleCustomer
	}
	_, err = s.api.InsertProfile(ctx, model.UserProfile{
		ID:       res.UserID,
		FullName: fields.FullName,
		Phone:    fields.Phone,
		Email:    fields.Email,
		Role:     role,
	})
	if err != nil {
		err = fmt.Errorf("account %s was created but its profile could not be saved: %w", email, err)
		s.log.Warn("orphaned auth identity", zap.String("user_id", res.UserID), zap.Error(err))
		return s.c.commit(ctx, t, err, nil)
	}
	if err := s.c.commit(ctx, t, nil, func(d *identityData) { d.session = res.Session }); err != nil {
		return err
	}
	return s.FetchProfile(ctx)
}

// SignOut ends the session with the backend and clears profile and
// session locally.  Local state is cleared even when the backend call
// fails.
func (s *IdentityStore) SignOut(ctx context.Context) error {
	t := s.c.begin("")
	defer s.c.finish(t)

	err := s.api.SignOut(ctx)
	s.c.update(func(d *identityData) {
		d.profile = nil
		d.session = nil
	})
	if err != nil {
		return s.c.commit(ctx, t, err, nil)
	}
	return nil
}

// FetchProfile loads the profile bound to the held session.  It does
// nothing when signed out.
func (s *IdentityStore) FetchProfile(ctx context.Context) error {
	sess := s.session()
	if sess == nil || sess.UserID() == "" {
		return nil
	}
	t := s.c.begin("fetchProfile")
	defer s.c.finish(t)

	p, err := s.api.GetProfile(ctx, sess.UserID())
	return s.c.commit(ctx, t, err, func(d *identityData) { d.profile = &p })
}

// UpdateProfile changes the profile's name and phone and stamps
// updated_at.
func (s *IdentityStore) UpdateProfile(ctx context.Context, fullName, phone string) error {
	var id string
	s.c.read(func(d *identityData, _ bool, _ string) {
		if d.profile != nil {
			id = d.profile.ID
		}
	})
	if id == "" {
		return s.c.fail(backend.ErrNoSession)
	}
	t := s.c.begin("updateProfile")
	defer s.c.finish(t)

	p, err := s.api.UpdateProfile(ctx, id, model.ProfileUpdate{FullName: &fullName, Phone: &phone})
	return s.c.commit(ctx, t, err, func(d *identityData) {
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = s.now()
		}
		d.profile = &p
	})
}

// ChangePassword sets a new password for the signed-in user.
func (s *IdentityStore) ChangePassword(ctx context.Context, newPassword string) error {
	if s.session() == nil {
		return s.c.fail(backend.ErrNoSession)
	}
	t := s.c.begin("")
	defer s.c.finish(t)

	err := s.api.UpdateUser(ctx, backend.UserAttributes{Password: newPassword})
	return s.c.commit(ctx, t, err, nil)
}
