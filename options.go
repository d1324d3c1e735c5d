package moneymanager

import (
	"github.com/etnz/moneymanager/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is where the backend listens in development.
const DefaultBaseURL = "http://localhost:5000"

// Option configures a Store or an Account.
type Option func(*settings)

type settings struct {
	baseURL string
	logger  zerolog.Logger
	clock   clock.Clock
	newID   func() string
}

func newSettings(opts []Option) settings {
	s := settings{
		baseURL: DefaultBaseURL,
		logger:  zerolog.Nop(),
		clock:   clock.Real(),
		newID:   func() string { return "local-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithBaseURL sets the backend's base URL.
func WithBaseURL(u string) Option { return func(s *settings) { s.baseURL = u } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(s *settings) { s.logger = l } }

// WithClock sets the clock used to date local records.
func WithClock(c clock.Clock) Option { return func(s *settings) { s.clock = c } }
