package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/singleflight"
)

// Transport is an http.RoundTripper that authorizes requests with the
// Store's credential and recovers from expired credentials.
//
// On a 401 the request is replayed at most once, after a refresh of the
// credential. Concurrent 401s share a single refresh call. When the refresh
// fails (or is impossible) the session is cleared and the original 401
// response is returned to the caller. A caller whose context ends while
// waiting for the refresh gets its context error and the session is kept.
type Transport struct {
	// Base performs the actual requests, http.DefaultTransport if nil.
	Base http.RoundTripper
	// Store provides and receives credentials.
	Store *Store
	// RefreshURL is the absolute URL of the refresh endpoint.
	RefreshURL string

	opts  options
	group singleflight.Group
}

// NewTransport returns a Transport around base.
func NewTransport(base http.RoundTripper, store *Store, refreshURL string, opts ...Option) *Transport {
	return &Transport{
		Base:       base,
		Store:      store,
		RefreshURL: refreshURL,
		opts:       newOptions(opts),
	}
}

// Client returns an http.Client using t.
func (t *Transport) Client() *http.Client { return &http.Client{Transport: t} }

type retryKey struct{}

// isRetry reports whether ctx belongs to a replayed request.
func isRetry(ctx context.Context) bool { return ctx.Value(retryKey{}) != nil }

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	body, err := drainBody(req)
	if err != nil {
		return nil, err
	}

	if !isRetry(ctx) && t.Store.needsRefresh() {
		if _, err := t.refresh(ctx, t.Store.Get().Token); err != nil {
			t.opts.logger.Warn().Err(err).Msg("pre-emptive credential refresh failed")
		}
	}

	out, sent := t.authorize(ctx, req, body, "")
	resp, err := t.base().RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || isRetry(ctx) {
		return resp, err
	}

	log := t.opts.logger.With().Str("method", req.Method).Str("path", req.URL.Path).Logger()
	log.Debug().Msg("unauthorized, renewing credential")
	orig, err := bufferResponse(resp)
	if err != nil {
		return nil, err
	}

	token, err := t.renew(ctx, sent)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// the caller gave up, the credential may still be renewed.
		return nil, err
	}
	if errors.Is(err, ErrSessionChanged) {
		log.Info().Msg("session changed during refresh")
		return orig, nil
	}
	if err != nil {
		log.Info().Err(err).Msg("cannot renew credential, clearing session")
		if err := t.Store.Clear(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("cannot clear session")
		}
		return orig, nil
	}

	replay, _ := t.authorize(context.WithValue(ctx, retryKey{}, true), req, body, token)
	return t.base().RoundTrip(replay)
}

// authorize clones req with a fresh body and the bearer header of token, or
// of the current usable credential when token is empty. It returns the
// token actually attached.
func (t *Transport) authorize(ctx context.Context, req *http.Request, body []byte, token string) (*http.Request, string) {
	out := req.Clone(ctx)
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
		out.ContentLength = int64(len(body))
	}
	if token == "" {
		if cur := t.Store.Get().Token; Valid(cur, t.opts.clock.Now(), 0) {
			token = cur
		}
	}
	if token == "" {
		out.Header.Del("Authorization")
		return out, ""
	}
	out.Header.Set("Authorization", "Bearer "+token)
	return out, token
}

// renew returns a credential to replay a request rejected while carrying
// sent. If another request already refreshed the credential it is reused.
func (t *Transport) renew(ctx context.Context, sent string) (string, error) {
	if cur := t.Store.Get().Token; cur != sent && Valid(cur, t.opts.clock.Now(), 0) {
		return cur, nil
	}
	return t.refresh(ctx, sent)
}

// refresh obtains a credential to replace stale. At most one refresh call
// is in flight per Transport; concurrent callers wait for it and share its
// outcome.
func (t *Transport) refresh(ctx context.Context, stale string) (string, error) {
	ch := t.group.DoChan("refresh", func() (any, error) {
		// the refresh is shared, one caller's cancellation must not fail
		// the others.
		return t.doRefresh(context.WithoutCancel(ctx), stale)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *Transport) doRefresh(ctx context.Context, stale string) (string, error) {
	cur := t.Store.Get()
	if cur.Token != stale && Valid(cur.Token, t.opts.clock.Now(), 0) {
		// a flight that just ended already replaced it.
		return cur.Token, nil
	}
	if cur.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}
	token, rejected, err := t.exchange(ctx, cur.RefreshToken)
	if rejected {
		// the refresh token is dead: clear before releasing the waiters so
		// that none of them starts another refresh with it.
		if _, err := t.Store.compareAndSet(ctx, cur.Token, Session{}); err != nil {
			t.opts.logger.Error().Err(err).Msg("cannot clear session")
		}
	}
	if err != nil {
		return "", err
	}

	next := cur
	next.Token = token.Token
	if token.RefreshToken != "" {
		next.RefreshToken = token.RefreshToken
	}
	// a logout or a new login during the exchange wins over the refresh.
	stored, err := t.Store.compareAndSet(ctx, cur.Token, next)
	if !stored {
		return "", ErrSessionChanged
	}
	if err != nil {
		// the new credential is in memory, the next run will log in again.
		t.opts.logger.Error().Err(err).Msg("cannot persist refreshed session")
	}
	t.opts.logger.Debug().Msg("credential refreshed")
	return token.Token, nil
}

type refreshed struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// exchange calls the refresh endpoint. rejected is true when the server
// answered and refused the refresh token.
func (t *Transport) exchange(ctx context.Context, refreshToken string) (data refreshed, rejected bool, err error) {
	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return data, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.RefreshURL, bytes.NewReader(payload))
	if err != nil {
		return data, false, fmt.Errorf("cannot create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return data, false, fmt.Errorf("cannot execute refresh request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return data, resp.StatusCode < 500, fmt.Errorf("refresh rejected: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return data, false, fmt.Errorf("cannot decode refresh response: %w", err)
	}
	if data.Token == "" {
		return data, true, errors.New("refresh response has no token")
	}
	return data, false, nil
}

// drainBody reads and closes req.Body so the request can be sent twice.
func drainBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, req.Body); err != nil {
		return nil, fmt.Errorf("cannot read request body: %w", err)
	}
	return append([]byte{}, buf.Bytes()...), nil
}

// bufferResponse reads resp.Body in memory so that it survives the replay.
func bufferResponse(resp *http.Response) (*http.Response, error) {
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("cannot read response body: %w", err)
	}
	resp.Body = io.NopCloser(&buf)
	return resp, nil
}
