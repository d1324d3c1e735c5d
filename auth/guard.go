package auth

import (
	"context"
	"net/http"
)

// RequestConfig carries what an authenticated request needs.
type RequestConfig struct {
	Header http.Header
}

// Apply copies the configuration onto req.
func (c *RequestConfig) Apply(req *http.Request) {
	for k, v := range c.Header {
		req.Header[k] = append([]string(nil), v...)
	}
}

// Guard is the local precondition of every authenticated operation: it
// avoids sending a request that is already known to be doomed.
type Guard struct {
	store *Store
	opts  options
}

// NewGuard returns a Guard over store.
func NewGuard(store *Store, opts ...Option) *Guard {
	return &Guard{store: store, opts: newOptions(opts)}
}

// Store returns the guarded session store.
func (g *Guard) Store() *Store { return g.store }

// Require returns the request configuration for the current session.
// Without a usable credential it clears the session and returns
// ErrSessionExpired, which callers should treat as "go to login".
func (g *Guard) Require(ctx context.Context) (*RequestConfig, error) {
	s := g.store.Get()
	if !Valid(s.Token, g.opts.clock.Now(), 0) {
		if s.LoggedIn() {
			g.opts.logger.Info().Msg("credential expired")
		}
		if err := g.store.Clear(ctx); err != nil {
			g.opts.logger.Error().Err(err).Msg("cannot clear session")
		}
		return nil, ErrSessionExpired
	}
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+s.Token)
	h.Set("Content-Type", "application/json")
	return &RequestConfig{Header: h}, nil
}
