package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/backend"
	"github.com/iliyamo/table-reservation/internal/model"
)

func seededIdentity() (*fakeBackend, *IdentityStore) {
	f := newFakeBackend()
	f.addUser("u1", "ana@example.com", "secret1", &model.UserProfile{
		ID: "u1", FullName: "Ana", Email: "ana@example.com", Role: model.RoleCustomer,
	})
	return f, NewIdentityStore(f, nil)
}

func TestIdentityStore_SignIn(t *testing.T) {
	_, s := seededIdentity()

	require.NoError(t, s.SignIn(context.Background(), "ana@example.com", "secret1"))

	st := s.Snapshot()
	require.NotNil(t, st.Session)
	assert.Equal(t, "u1", st.Session.UserID())
	require.NotNil(t, st.Profile)
	assert.Equal(t, "Ana", st.Profile.FullName)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
}

func TestIdentityStore_SignInWrongPasswordKeepsState(t *testing.T) {
	_, s := seededIdentity()
	ctx := context.Background()
	require.NoError(t, s.SignIn(ctx, "ana@example.com", "secret1"))
	before := s.Snapshot()

	err := s.SignIn(ctx, "ana@example.com", "nope")
	require.Error(t, err)

	st := s.Snapshot()
	assert.Equal(t, "invalid credentials", st.Error)
	assert.False(t, st.IsLoading)
	assert.Same(t, before.Session, st.Session)
	assert.Equal(t, before.Profile, st.Profile)
}

func TestIdentityStore_SignInFromSignedOut(t *testing.T) {
	_, s := seededIdentity()

	require.Error(t, s.SignIn(context.Background(), "nobody@example.com", "x"))

	st := s.Snapshot()
	assert.Nil(t, st.Session)
	assert.Nil(t, st.Profile)
	assert.NotEmpty(t, st.Error)
	assert.False(t, st.IsLoading)
}

func TestIdentityStore_LoadingOnlyDuringCall(t *testing.T) {
	_, s := seededIdentity()
	var seen []bool
	unsub := s.Subscribe(func(st IdentityState) { seen = append(seen, st.IsLoading) })
	defer unsub()

	require.NoError(t, s.SignIn(context.Background(), "ana@example.com", "secret1"))

	require.NotEmpty(t, seen)
	assert.True(t, seen[0])
	assert.False(t, seen[len(seen)-1])
}

func TestIdentityStore_SignUpDefaultsRole(t *testing.T) {
	f := newFakeBackend()
	s := NewIdentityStore(f, nil)

	err := s.SignUp(context.Background(), "bo@example.com", "secret1", model.ProfileFields{
		FullName: "Bo", Phone: "5550100", Email: "bo@example.com",
	})
	require.NoError(t, err)

	st := s.Snapshot()
	require.NotNil(t, st.Profile)
	assert.Equal(t, model.RoleCustomer, st.Profile.Role)
	assert.Equal(t, "user-bo@example.com", st.Profile.ID)
	assert.Equal(t, "user-bo@example.com", st.Session.UserID())
}

func TestIdentityStore_SignUpKeepsRequestedRole(t *testing.T) {
	f := newFakeBackend()
	s := NewIdentityStore(f, nil)

	require.NoError(t, s.SignUp(context.Background(), "own@example.com", "secret1", model.ProfileFields{
		FullName: "Owner", Role: model.RoleOwner,
	}))
	assert.Equal(t, model.RoleOwner, s.Snapshot().Profile.Role)
}

func TestIdentityStore_SignUpProfileFailureSurfacesOrphan(t *testing.T) {
	f := newFakeBackend()
	f.insertProfileErr = errors.New("duplicate key")
	s := NewIdentityStore(f, nil)

	err := s.SignUp(context.Background(), "cy@example.com", "secret1", model.ProfileFields{FullName: "Cy"})
	require.Error(t, err)

	st := s.Snapshot()
	assert.Contains(t, st.Error, "was created but its profile could not be saved")
	assert.Contains(t, st.Error, "duplicate key")
	assert.Nil(t, st.Profile)
	assert.False(t, st.IsLoading)
	// the identity exists even though the profile does not
	_, exists := f.userIDs["cy@example.com"]
	assert.True(t, exists)
}

func TestIdentityStore_SignUpWithoutUserSkipsProfile(t *testing.T) {
	f := newFakeBackend()
	f.signUpNoUser = true
	s := NewIdentityStore(f, nil)

	require.NoError(t, s.SignUp(context.Background(), "dee@example.com", "secret1", model.ProfileFields{FullName: "Dee"}))

	st := s.Snapshot()
	assert.Nil(t, st.Session)
	assert.Nil(t, st.Profile)
	assert.Empty(t, st.Error)
	assert.False(t, st.IsLoading)
	assert.Empty(t, f.profiles)
}

func TestIdentityStore_SignUpDuplicateEmail(t *testing.T) {
	_, s := seededIdentity()

	err := s.SignUp(context.Background(), "ana@example.com", "secret1", model.ProfileFields{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrConflict))
	assert.Equal(t, "email already exists", s.Snapshot().Error)
}

func TestIdentityStore_SignOutClearsEvenOnError(t *testing.T) {
	f, s := seededIdentity()
	ctx := context.Background()
	require.NoError(t, s.SignIn(ctx, "ana@example.com", "secret1"))

	f.signOutErr = errTransport
	require.Error(t, s.SignOut(ctx))

	st := s.Snapshot()
	assert.Nil(t, st.Session)
	assert.Nil(t, st.Profile)
	assert.Equal(t, errTransport.Error(), st.Error)
}

func TestIdentityStore_FetchProfileWithoutSessionIsNoop(t *testing.T) {
	_, s := seededIdentity()
	calls := 0
	unsub := s.Subscribe(func(IdentityState) { calls++ })
	defer unsub()

	require.NoError(t, s.FetchProfile(context.Background()))
	assert.Zero(t, calls)
}

func TestIdentityStore_FetchProfileMissingRow(t *testing.T) {
	f := newFakeBackend()
	f.addUser("u9", "ghost@example.com", "secret1", nil)
	s := NewIdentityStore(f, nil)

	err := s.SignIn(context.Background(), "ghost@example.com", "secret1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrNotFound))

	st := s.Snapshot()
	assert.NotNil(t, st.Session)
	assert.Nil(t, st.Profile)
	assert.Equal(t, "profile not found", st.Error)
}

func TestIdentityStore_UpdateProfile(t *testing.T) {
	_, s := seededIdentity()
	ctx := context.Background()
	require.NoError(t, s.SignIn(ctx, "ana@example.com", "secret1"))

	require.NoError(t, s.UpdateProfile(ctx, "Ana Maria", "5550199"))

	p := s.Snapshot().Profile
	require.NotNil(t, p)
	assert.Equal(t, "Ana Maria", p.FullName)
	assert.Equal(t, "5550199", p.Phone)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestIdentityStore_UpdateProfileSignedOut(t *testing.T) {
	_, s := seededIdentity()

	err := s.UpdateProfile(context.Background(), "X", "1")
	assert.ErrorIs(t, err, backend.ErrNoSession)
	assert.Equal(t, backend.ErrNoSession.Error(), s.Snapshot().Error)
}

func TestIdentityStore_ChangePassword(t *testing.T) {
	_, s := seededIdentity()
	ctx := context.Background()
	require.NoError(t, s.SignIn(ctx, "ana@example.com", "secret1"))

	require.Error(t, s.ChangePassword(ctx, "abc"))
	assert.NotEmpty(t, s.Snapshot().Error)

	require.NoError(t, s.ChangePassword(ctx, "longer-secret"))
	assert.Empty(t, s.Snapshot().Error)
}

func TestIdentityStore_CancelledContextDropsResponse(t *testing.T) {
	_, s := seededIdentity()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SignIn(ctx, "ana@example.com", "secret1")
	assert.ErrorIs(t, err, context.Canceled)

	st := s.Snapshot()
	assert.Nil(t, st.Session)
	assert.Empty(t, st.Error)
	assert.False(t, st.IsLoading)
}
