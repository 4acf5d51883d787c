// Package session derives authentication state from the stored credential
// and a profile probe, and owns login and logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/movie-tracker/movietracker-web/internal/backend"
	"github.com/movie-tracker/movietracker-web/internal/credentials"
	"github.com/movie-tracker/movietracker-web/internal/models"
)

var (
	// ErrInvalidCredentials is returned by Login when the backend rejects
	// the username/password pair. It matches backend.ErrAuth as well.
	ErrInvalidCredentials = fmt.Errorf("invalid username or password: %w", backend.ErrAuth)
	// ErrNotAuthenticated is returned when an operation needs a token and none is stored.
	ErrNotAuthenticated = fmt.Errorf("not authenticated: %w", backend.ErrAuth)
	// ErrTokenExpired is recorded when the stored token's exp claim has passed.
	ErrTokenExpired = fmt.Errorf("session token expired: %w", backend.ErrAuth)
)

// Backend is the part of the backend client the session uses.
type Backend interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	Profile(ctx context.Context) (*models.User, error)
}

// Session is the auth session. It is safe for concurrent use.
type Session struct {
	backend Backend
	creds   credentials.Store
	now     func() time.Time

	mu       sync.Mutex
	profile  *models.User
	probeErr error
	onReset  []func()
}

// New creates a session over the given credential store.
func New(b Backend, creds credentials.Store) *Session {
	return &Session{backend: b, creds: creds, now: time.Now}
}

// OnReset registers fn to run whenever authenticated data must be dropped:
// logout, self-heal, a new login, or a credential change made elsewhere.
func (s *Session) OnReset(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReset = append(s.onReset, fn)
}

// IsAuthenticated is true iff a token is stored and the last profile probe
// did not fail.
func (s *Session) IsAuthenticated() bool {
	if _, ok := s.creds.Token(); !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeErr == nil
}

// NeedsProbe is true when a token is stored but no profile probe has
// succeeded since, either because none ran yet or because the last one failed.
func (s *Session) NeedsProbe() bool {
	if _, ok := s.creds.Token(); !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile == nil || s.probeErr != nil
}

// Profile returns the cached profile, nil until a probe succeeded.
func (s *Session) Profile() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Login validates the input, exchanges it for a token and stores the token.
// Nothing is stored when the backend refuses.
func (s *Session) Login(ctx context.Context, username, password string) error {
	fields := map[string]string{}
	if strings.TrimSpace(username) == "" {
		fields["username"] = "required"
	}
	if password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		return backend.NewValidationError("invalid login form", fields)
	}

	token, err := s.backend.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		if errors.Is(err, backend.ErrAuth) {
			return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return err
	}

	if err := s.creds.Set(token); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	log.Printf("Logged in as %s", username)
	s.reset()

	if _, err := s.Probe(ctx); err != nil {
		return err
	}
	return nil
}

// Register creates an account. It does not log in.
func (s *Session) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	fields := map[string]string{}
	if strings.TrimSpace(reg.Name) == "" {
		fields["name"] = "required"
	}
	if strings.TrimSpace(reg.Username) == "" {
		fields["username"] = "required"
	}
	if !strings.Contains(reg.Email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if reg.Password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		return nil, backend.NewValidationError("invalid registration form", fields)
	}
	return s.backend.Register(ctx, reg)
}

// Logout clears the token and drops every cached authenticated result.
func (s *Session) Logout() error {
	if err := s.creds.Clear(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	log.Println("Logged out")
	s.reset()
	return nil
}

// Probe fetches the profile with the stored token. A token the backend
// rejects, or one whose exp claim has passed, is cleared on the spot.
// Other failures (network, server) mark the session unauthenticated but
// keep the token so the next successful probe restores it.
func (s *Session) Probe(ctx context.Context) (*models.User, error) {
	token, ok := s.creds.Token()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	if s.tokenExpired(token) {
		s.selfHeal(ErrTokenExpired)
		return nil, ErrTokenExpired
	}

	user, err := s.backend.Profile(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrAuth) {
			s.selfHeal(err)
			return nil, err
		}
		s.mu.Lock()
		s.probeErr = err
		s.profile = nil
		s.mu.Unlock()
		log.Printf("Profile probe failed: %v", err)
		return nil, err
	}

	s.mu.Lock()
	s.profile = user
	s.probeErr = nil
	s.mu.Unlock()
	return user, nil
}

// CredentialsChanged is called when another process replaced or removed
// the stored token.
func (s *Session) CredentialsChanged() {
	log.Println("Stored credentials changed, dropping cached session data")
	s.reset()
}

func (s *Session) selfHeal(cause error) {
	log.Printf("Stored token rejected (%v), clearing session", cause)
	if err := s.creds.Clear(); err != nil {
		log.Printf("Failed to clear rejected token: %v", err)
	}
	s.reset()
}

func (s *Session) reset() {
	s.mu.Lock()
	s.profile = nil
	s.probeErr = nil
	hooks := append([]func(){}, s.onReset...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// tokenExpired reads the exp claim without verifying the signature; the
// backend remains the authority. Tokens that are not JWTs never expire here.
func (s *Session) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return s.now().After(time.Unix(int64(exp), 0))
}
