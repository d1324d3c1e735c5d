package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/etnz/moneymanager"
	"github.com/etnz/moneymanager/auth"
	"github.com/etnz/moneymanager/clock"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// app is the client stack shared by every command.
type app struct {
	cfg      Config
	logger   zerolog.Logger
	clock    clock.Clock
	sessions *auth.Store
	store    *moneymanager.Store
	account  *moneymanager.Account
	close    func() error
}

// openApp loads the configuration and opens the client stack.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := LoadConfig(*configFile)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}

func newApp(ctx context.Context, cfg Config) (*app, error) {
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	if *Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	a := &app{cfg: cfg, logger: logger, clock: clock.Real(), close: func() error { return nil }}
	var backend auth.Backend
	switch cfg.Session.Backend {
	case BackendRedis:
		rb, err := auth.NewRedisBackend(ctx, cfg.Session.RedisURL)
		if err != nil {
			return nil, err
		}
		backend, a.close = rb, rb.Close
	case BackendMemory:
		backend = &auth.MemoryBackend{}
	default:
		backend = auth.FileBackend{Path: cfg.Session.Path}
	}

	sessions, err := auth.Open(ctx, backend, auth.WithLogger(logger))
	if err != nil {
		a.close()
		return nil, err
	}
	refreshURL := strings.TrimRight(cfg.BaseURL, "/") + cfg.RefreshPath
	tr := auth.NewTransport(http.DefaultTransport, sessions, refreshURL, auth.WithLogger(logger))
	client := tr.Client()
	client.Timeout = cfg.Timeout

	opts := []moneymanager.Option{moneymanager.WithBaseURL(cfg.BaseURL), moneymanager.WithLogger(logger)}
	a.sessions = sessions
	a.store = moneymanager.NewStore(client, auth.NewGuard(sessions, auth.WithLogger(logger)), opts...)
	a.account = moneymanager.NewAccount(&http.Client{Timeout: cfg.Timeout}, sessions, opts...)
	return a, nil
}

// withApp opens the client stack, runs f and closes the stack.
func withApp(ctx context.Context, f func(*app) subcommands.ExitStatus) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := a.close(); err != nil {
			a.logger.Warn().Err(err).Msg("cannot close session backend")
		}
	}()
	return f(a)
}

// failure reports err and returns the failure status.
func failure(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var e *moneymanager.Error
	if errors.Is(err, moneymanager.ErrSessionExpired) || errors.As(err, &e) && e.LoginRequired() {
		fmt.Fprintln(os.Stderr, "Run 'mm login' to open a new session.")
	}
	return subcommands.ExitFailure
}
