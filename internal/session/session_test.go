package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/movie-tracker/movietracker-web/internal/backend"
	"github.com/movie-tracker/movietracker-web/internal/credentials"
	"github.com/movie-tracker/movietracker-web/internal/models"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	args := m.Called(ctx, reg)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockBackend) Profile(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func authErr() error {
	return &backend.Error{Kind: backend.ErrAuth, StatusCode: 401, Message: "unauthorized"}
}

func TestLogin_Success(t *testing.T) {
	b := new(MockBackend)
	creds := credentials.NewMemoryStore()
	s := New(b, creds)
	resets := 0
	s.OnReset(func() { resets++ })

	b.On("Login", mock.Anything, "alice", "secret").Return("tok-1", nil)
	b.On("Profile", mock.Anything).Return(&models.User{ID: 1, Username: "alice"}, nil)

	require.NoError(t, s.Login(context.Background(), " alice ", "secret"))

	tok, ok := creds.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", tok)
	assert.True(t, s.IsAuthenticated())
	require.NotNil(t, s.Profile())
	assert.Equal(t, "alice", s.Profile().Username)
	assert.Equal(t, 1, resets)
	b.AssertExpectations(t)
}

func TestLogin_InvalidCredentialsStoresNothing(t *testing.T) {
	b := new(MockBackend)
	creds := credentials.NewMemoryStore()
	s := New(b, creds)

	b.On("Login", mock.Anything, "alice", "wrong").Return("", authErr())

	err := s.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, backend.ErrAuth)

	_, ok := creds.Token()
	assert.False(t, ok)
	assert.False(t, s.IsAuthenticated())
	b.AssertNotCalled(t, "Profile", mock.Anything)
}

func TestLogin_EmptyFieldsNeverReachBackend(t *testing.T) {
	b := new(MockBackend)
	s := New(b, credentials.NewMemoryStore())

	err := s.Login(context.Background(), "  ", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrValidation)
	fields := backend.FieldErrors(err)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
	b.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogout_ClearsTokenAndRunsHooks(t *testing.T) {
	creds := credentials.NewMemoryStore()
	require.NoError(t, creds.Set("tok"))
	s := New(new(MockBackend), creds)
	cleared := false
	s.OnReset(func() { cleared = true })

	require.NoError(t, s.Logout())

	_, ok := creds.Token()
	assert.False(t, ok)
	assert.True(t, cleared)
	assert.False(t, s.IsAuthenticated())
}

func TestProbe_RejectedTokenSelfHeals(t *testing.T) {
	b := new(MockBackend)
	creds := credentials.NewMemoryStore()
	require.NoError(t, creds.Set("stale"))
	s := New(b, creds)
	cleared := false
	s.OnReset(func() { cleared = true })

	b.On("Profile", mock.Anything).Return(nil, authErr())

	_, err := s.Probe(context.Background())
	assert.ErrorIs(t, err, backend.ErrAuth)

	_, ok := creds.Token()
	assert.False(t, ok, "rejected token must be cleared")
	assert.True(t, cleared)
	assert.False(t, s.IsAuthenticated())
}

func TestProbe_NetworkFailureKeepsToken(t *testing.T) {
	b := new(MockBackend)
	creds := credentials.NewMemoryStore()
	require.NoError(t, creds.Set("tok"))
	s := New(b, creds)

	netErr := &backend.Error{Kind: backend.ErrNetwork, Message: "connection refused"}
	b.On("Profile", mock.Anything).Return(nil, netErr).Once()
	b.On("Profile", mock.Anything).Return(&models.User{ID: 2}, nil).Once()

	_, err := s.Probe(context.Background())
	assert.ErrorIs(t, err, backend.ErrNetwork)
	assert.False(t, s.IsAuthenticated())
	_, ok := creds.Token()
	assert.True(t, ok)

	_, err = s.Probe(context.Background())
	require.NoError(t, err)
	assert.True(t, s.IsAuthenticated())
}

func TestNeedsProbe_UntilAProbeSucceeds(t *testing.T) {
	b := new(MockBackend)
	creds := credentials.NewMemoryStore()
	s := New(b, creds)
	assert.False(t, s.NeedsProbe())

	require.NoError(t, creds.Set("tok"))
	assert.True(t, s.NeedsProbe())

	netErr := &backend.Error{Kind: backend.ErrNetwork, Message: "service unavailable"}
	b.On("Profile", mock.Anything).Return(nil, netErr).Once()
	b.On("Profile", mock.Anything).Return(&models.User{ID: 2}, nil).Once()

	_, err := s.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, s.NeedsProbe())

	_, err = s.Probe(context.Background())
	require.NoError(t, err)
	assert.False(t, s.NeedsProbe())
	b.AssertExpectations(t)
}

func TestProbe_ExpiredJWTClearedWithoutNetwork(t *testing.T) {
	b := new(MockBackend)
	creds := credentials.NewMemoryStore()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	require.NoError(t, creds.Set(signed))

	s := New(b, creds)
	s.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	_, err = s.Probe(context.Background())
	assert.True(t, errors.Is(err, ErrTokenExpired))
	_, ok := creds.Token()
	assert.False(t, ok)
	b.AssertNotCalled(t, "Profile", mock.Anything)
}

func TestProbe_NoToken(t *testing.T) {
	s := New(new(MockBackend), credentials.NewMemoryStore())
	_, err := s.Probe(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, s.IsAuthenticated())
}

func TestRegister_ValidatesBeforeRequest(t *testing.T) {
	b := new(MockBackend)
	s := New(b, credentials.NewMemoryStore())

	_, err := s.Register(context.Background(), models.Registration{Username: "bob", Email: "nope"})
	require.Error(t, err)
	fields := backend.FieldErrors(err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	b.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)

	reg := models.Registration{Name: "Bob", Username: "bob", Email: "bob@example.com", Password: "pw"}
	b.On("Register", mock.Anything, reg).Return(&models.User{ID: 9, Username: "bob"}, nil)
	u, err := s.Register(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 9, u.ID)
}
