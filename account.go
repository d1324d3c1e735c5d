package moneymanager

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/etnz/moneymanager/auth"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Account handles the unauthenticated part of the API: login and
// registration. Both populate the session store on success.
type Account struct {
	client *http.Client
	store  *auth.Store
	cfg    settings
}

// NewAccount returns an Account that stores the sessions it opens in store.
func NewAccount(client *http.Client, store *auth.Store, opts ...Option) *Account {
	if client == nil {
		client = http.DefaultClient
	}
	return &Account{client: client, store: store, cfg: newSettings(opts)}
}

// authResponse is the body of login and registration responses.
type authResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         *struct {
		Name string `json:"name"`
	} `json:"user"`
}

func (r authResponse) name() string {
	if r.User == nil {
		return ""
	}
	return r.User.Name
}

// post sends a credential payload and decodes the answer.
func (a *Account) post(ctx context.Context, op operation, in any, elem ...string) (authResponse, error) {
	var out authResponse
	addr := join(a.cfg.baseURL, elem...)
	resp, err := doJSON(ctx, a.client, http.MethodPost, addr, nil, in)
	if err != nil {
		return out, networkError(op, err)
	}
	a.cfg.logger.Debug().Str("url", addr).Int("status", resp.Status).Msg(string(op))
	if !resp.ok() {
		return out, classify(op, resp.Status, resp.Body)
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, &Error{Kind: Unknown, Status: resp.Status, Message: errFormat.Error(), Err: err}
	}
	return out, nil
}

// Login exchanges the credentials for a session.
func (a *Account) Login(ctx context.Context, email, password string) (auth.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return auth.Session{}, invalid("", "please fill in all fields")
	}
	r, err := a.post(ctx, opLogin, map[string]string{"email": email, "password": password}, "api", "auth", "login")
	if err != nil {
		return auth.Session{}, err
	}
	if !r.Success || r.Token == "" {
		return auth.Session{}, &Error{Kind: InvalidCredentials, Status: http.StatusOK, Message: first(r.Message, "invalid credentials")}
	}
	s := auth.Session{Token: r.Token, RefreshToken: r.RefreshToken, DisplayName: r.name()}
	if err := a.store.Set(ctx, s); err != nil {
		return auth.Session{}, err
	}
	a.cfg.logger.Info().Str("user", s.DisplayName).Msg("logged in")
	return s, nil
}

// Register creates an account. When the server opens a session right away
// it is stored and loggedIn is true, otherwise the user must log in.
func (a *Account) Register(ctx context.Context, name, email, password string) (loggedIn bool, err error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case name == "" || email == "" || password == "":
		return false, invalid("", "please fill in all fields")
	case len([]rune(name)) < 2:
		return false, invalid("name", "name must be at least 2 characters")
	case !emailPattern.MatchString(email):
		return false, invalid("email", "please enter a valid email address")
	case len(password) < 6:
		return false, invalid("password", "password must be at least 6 characters")
	}

	in := map[string]string{"name": name, "email": email, "password": password}
	r, err := a.post(ctx, opRegister, in, "api", "auth", "register")
	if err != nil {
		return false, err
	}
	if !r.Success {
		return false, &Error{Kind: Validation, Status: http.StatusOK, Message: first(r.Message, "registration failed, please try again")}
	}
	if r.Token == "" {
		a.cfg.logger.Info().Msg("registered, login required")
		return false, nil
	}
	s := auth.Session{Token: r.Token, RefreshToken: r.RefreshToken, DisplayName: first(r.name(), name)}
	if err := a.store.Set(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}

// Logout forgets the session.
func (a *Account) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}
