// Package moneytest provides an in-process fake of the money manager backend
// for tests.
//
// The server implements the REST surface used by the client: login,
// registration, token refresh and the transactions collection. Tokens are
// shaped like JWTs but unsigned, and are only valid on the server that
// issued them. Faults and delays can be injected to exercise error paths.
package moneytest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/etnz/moneymanager/clock"
	"github.com/gin-gonic/gin"
)

// DefaultTokenLifetime is the validity of the tokens issued by a Server.
const DefaultTokenLifetime = time.Hour

// Server is a fake backend listening on a local address.
type Server struct {
	*httptest.Server

	clock    clock.Clock
	lifetime time.Duration
	envelope bool

	mu          sync.Mutex
	users       map[string]*user  // by email
	tokens      map[string]string // access token -> email
	refresh     map[string]string // refresh token -> email
	serial      int
	nextID      int
	refreshes   int
	requests    int
	inFlight    int
	maxInFlight int
	faults      []*fault
	hold        chan struct{}
	arrived     chan struct{}
}

type user struct {
	name, email, password string
	txs                   []record // newest first
}

// record is a transaction as the server stores and renders it. The field
// names are the ones of the historical API.
type record struct {
	ID        string      `json:"_id"`
	Title     string      `json:"title"`
	Amount    json.Number `json:"amount"`
	Type      string      `json:"type"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt *time.Time  `json:"updatedAt,omitempty"`
}

type fault struct {
	method, path string
	status, left int
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used to issue and check tokens.
func WithClock(c clock.Clock) Option { return func(s *Server) { s.clock = c } }

// WithTokenLifetime sets the validity of issued access tokens.
func WithTokenLifetime(d time.Duration) Option { return func(s *Server) { s.lifetime = d } }

// WithEnvelope makes the server wrap its payloads as {success, data}.
func WithEnvelope() Option { return func(s *Server) { s.envelope = true } }

// NewServer starts a Server. Callers must Close it.
func NewServer(opts ...Option) *Server {
	s := &Server{
		clock:    clock.Real(),
		lifetime: DefaultTokenLifetime,
		users:    make(map[string]*user),
		tokens:   make(map[string]string),
		refresh:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.instrument)

	r.POST("/api/auth/login", s.login)
	r.POST("/api/auth/register", s.register)
	r.POST("/auth/refresh", s.refreshToken)

	api := r.Group("/api/transactions", s.authenticate)
	api.GET("", s.list)
	api.POST("", s.create)
	api.DELETE("", s.deleteAll)
	api.PUT("/:id", s.update)
	api.DELETE("/:id", s.delete)
	return r
}

// AddUser registers a user directly.
func (s *Server) AddUser(name, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	s.users[email] = &user{name: name, email: email, password: password}
}

// Issue opens a session for a registered user and returns its tokens.
func (s *Server) Issue(email string) (token, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issue(email), s.newRefreshToken(email)
}

// Revoke invalidates an access token before its expiry.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// RevokeRefresh invalidates a refresh token.
func (s *Server) RevokeRefresh(refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, refreshToken)
}

// FailNext makes the next n requests matching method and path answer with
// status. An empty method matches any method.
func (s *Server) FailNext(method, path string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &fault{method: method, path: path, status: status, left: n})
}

// Hold blocks every transactions request until release is called. arrived
// receives a value each time a request starts waiting.
func (s *Server) Hold() (arrived <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = make(chan struct{})
	s.arrived = make(chan struct{}, 64)
	hold := s.hold
	var once sync.Once
	return s.arrived, func() {
		once.Do(func() {
			s.mu.Lock()
			s.hold = nil
			s.mu.Unlock()
			close(hold)
		})
	}
}

// Refreshes returns the number of successful token refreshes.
func (s *Server) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

// Requests returns the number of transactions requests received.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// MaxInFlight returns the highest number of transactions requests served
// at the same time.
func (s *Server) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// Count returns the number of transactions the server holds for email.
func (s *Server) Count(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[email]; u != nil {
		return len(u.txs)
	}
	return 0
}

// instrument counts requests and applies injected faults and holds.
func (s *Server) instrument(c *gin.Context) {
	path := c.Request.URL.Path
	tracked := strings.HasPrefix(path, "/api/transactions")

	s.mu.Lock()
	if tracked {
		s.requests++
		s.inFlight++
		s.maxInFlight = max(s.maxInFlight, s.inFlight)
	}
	var status int
	for _, f := range s.faults {
		if f.left > 0 && f.path == path && (f.method == "" || f.method == c.Request.Method) {
			f.left--
			status = f.status
			break
		}
	}
	hold, arrived := s.hold, s.arrived
	s.mu.Unlock()

	defer func() {
		if tracked {
			s.mu.Lock()
			s.inFlight--
			s.mu.Unlock()
		}
	}()

	if tracked && hold != nil {
		arrived <- struct{}{}
		select {
		case <-hold:
		case <-c.Request.Context().Done():
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
	}
	if status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"message": fmt.Sprintf("injected %d", status)})
		return
	}
	c.Next()
}

// authenticate resolves the bearer token into the "email" context key.
func (s *Server) authenticate(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
		return
	}
	s.mu.Lock()
	email, known := s.tokens[token]
	s.mu.Unlock()
	if !known || !s.alive(token) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
		return
	}
	c.Set("email", email)
	c.Next()
}

// reply renders v, in an envelope if configured.
func (s *Server) reply(c *gin.Context, status int, v any) {
	if s.envelope {
		v = gin.H{"success": true, "data": v}
	}
	c.JSON(status, v)
}

// issue mints an access token. s.mu must be held.
func (s *Server) issue(email string) string {
	s.serial++
	name := ""
	if u := s.users[email]; u != nil {
		name = u.name
	}
	claims, _ := json.Marshal(map[string]any{
		"sub":  email,
		"name": name,
		"exp":  s.clock.Now().Add(s.lifetime).Unix(),
		"jti":  s.serial,
	})
	enc := base64.RawURLEncoding
	token := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString(claims) + "." + enc.EncodeToString([]byte("unsigned"))
	s.tokens[token] = email
	return token
}

// newRefreshToken mints a refresh token. s.mu must be held.
func (s *Server) newRefreshToken(email string) string {
	s.serial++
	rt := "rt-" + strconv.Itoa(s.serial)
	s.refresh[rt] = email
	return rt
}

// alive checks the expiry embedded in token.
func (s *Server) alive(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	data, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if json.Unmarshal(data, &claims) != nil {
		return false
	}
	return time.Unix(claims.Exp, 0).After(s.clock.Now())
}
