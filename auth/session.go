package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/etnz/moneymanager/clock"
	"github.com/rs/zerolog"
)

// Persisted keys of a Session, shared by every Backend.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyDisplayName  = "username"
)

var (
	// ErrSessionExpired reports that no usable credential is available.
	// The session has been cleared and the user must log in again.
	ErrSessionExpired = errors.New("session expired, please log in again")
	// ErrNoRefreshToken reports a refresh attempt without a refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrSessionChanged reports a refresh whose session was replaced or
	// cleared while it was in flight. The refreshed credential is dropped.
	ErrSessionChanged = errors.New("session changed during refresh")
)

// Session is the authenticated identity of the user.
// An empty Token means logged out: RefreshToken and DisplayName are then
// meaningless.
type Session struct {
	Token        string
	RefreshToken string
	DisplayName  string
}

// LoggedIn reports whether s holds a credential, valid or not.
func (s Session) LoggedIn() bool { return s.Token != "" }

// Option configures the components of this package.
type Option func(*options)

type options struct {
	clock  clock.Clock
	logger zerolog.Logger
}

func newOptions(opts []Option) options {
	o := options{clock: clock.Real(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the clock used for expiry decisions.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

// Store owns the process-wide session and keeps it in sync with a Backend.
// It is safe for concurrent use.
type Store struct {
	opts    options
	backend Backend

	mu      sync.Mutex
	session Session
}

// Open loads the persisted session from backend.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := &Store{opts: newOptions(opts), backend: backend}
	session, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load session: %w", err)
	}
	if !session.LoggedIn() {
		// a refresh token without a credential is not a session.
		session = Session{}
	}
	s.session = session
	return s, nil
}

// Get returns the current session.
func (s *Store) Get() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Set replaces the whole session and persists it.
// The in-memory session is updated even if persisting fails.
func (s *Store) Set(ctx context.Context, session Session) error {
	if !session.LoggedIn() {
		return errors.New("cannot set a session without credential, use Clear")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	if err := s.backend.Save(ctx, session); err != nil {
		return fmt.Errorf("cannot persist session: %w", err)
	}
	s.opts.logger.Debug().Str("user", session.DisplayName).Msg("session stored")
	return nil
}

// Clear drops the token, refresh token and display name together.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
	if err := s.backend.Delete(ctx); err != nil {
		return fmt.Errorf("cannot delete persisted session: %w", err)
	}
	s.opts.logger.Debug().Msg("session cleared")
	return nil
}

// compareAndSet replaces the session with next only while its token is
// still old, and reports whether it did. An empty next clears the session.
func (s *Store) compareAndSet(ctx context.Context, old string, next Session) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Token != old {
		return false, nil
	}
	if !next.LoggedIn() {
		s.session = Session{}
		if err := s.backend.Delete(ctx); err != nil {
			return true, fmt.Errorf("cannot delete persisted session: %w", err)
		}
		return true, nil
	}
	s.session = next
	if err := s.backend.Save(ctx, next); err != nil {
		return true, fmt.Errorf("cannot persist session: %w", err)
	}
	return true, nil
}

// HasUsableCredential reports whether the current token can be attached to
// a request right now.
func (s *Store) HasUsableCredential() bool {
	return Valid(s.Get().Token, s.opts.clock.Now(), 0)
}

// needsRefresh reports whether the token is still usable but about to
// expire, and a refresh token is available.
func (s *Store) needsRefresh() bool {
	cur := s.Get()
	now := s.opts.clock.Now()
	return cur.RefreshToken != "" && Valid(cur.Token, now, 0) && !Valid(cur.Token, now, RefreshBuffer)
}
