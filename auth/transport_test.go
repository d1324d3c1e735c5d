package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/etnz/moneymanager/clock"
)

// fakeAPI is an in-memory backend that only accepts one token at a time.
type fakeAPI struct {
	mu        sync.Mutex
	accepted  string // token accepted by the API
	next      string // token handed out by the refresh endpoint
	refreshes int
	calls     int
	bodies    []string
	seen      []string // Authorization headers of accepted calls

	rejectRefresh bool // refresh endpoint answers 401
	keepRejecting bool // API still rejects the refreshed token

	// refresh waits for that many 401 before answering.
	waitFor      int
	unauthorized chan struct{}

	// when gate is set, the refresh endpoint signals started and blocks
	// until gate is closed.
	gate    chan struct{}
	started chan struct{}
}

// holdRefresh makes the refresh endpoint block until the returned func is
// called.
func (f *fakeAPI) holdRefresh(t *testing.T) (started <-chan struct{}, release func()) {
	t.Helper()
	f.gate = make(chan struct{})
	f.started = make(chan struct{}, 1)
	var once sync.Once
	release = func() { once.Do(func() { close(f.gate) }) }
	t.Cleanup(release)
	return f.started, release
}

func newFakeAPI(accepted, next string) *fakeAPI {
	return &fakeAPI{accepted: accepted, next: next, unauthorized: make(chan struct{}, 16)}
}

func respond(req *http.Request, code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func (f *fakeAPI) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Path == "/auth/refresh" {
		for range f.waitFor {
			<-f.unauthorized
		}
		if f.gate != nil {
			f.started <- struct{}{}
			<-f.gate
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.refreshes++
		var in struct{ RefreshToken string }
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil || in.RefreshToken == "" {
			return respond(req, http.StatusBadRequest, `{"message":"missing refresh token"}`), nil
		}
		if f.rejectRefresh {
			return respond(req, http.StatusUnauthorized, `{"message":"refresh token expired"}`), nil
		}
		if !f.keepRejecting {
			f.accepted = f.next
		}
		return respond(req, http.StatusOK, `{"token":"`+f.next+`"}`), nil
	}

	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	f.mu.Lock()
	f.calls++
	authz := req.Header.Get("Authorization")
	if authz != "Bearer "+f.accepted {
		f.mu.Unlock()
		f.unauthorized <- struct{}{}
		return respond(req, http.StatusUnauthorized, `{"message":"token expired"}`), nil
	}
	f.seen = append(f.seen, authz)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	return respond(req, http.StatusOK, `[]`), nil
}

type transportFixture struct {
	ctx   context.Context
	clock *clock.Fake
	store *Store
	api   *fakeAPI
	http  *http.Client
}

func newTransportFixture(t *testing.T, session Session, api *fakeAPI) *transportFixture {
	t.Helper()
	ctx := context.Background()
	fake := clock.NewFake(epoch)
	s, err := Open(ctx, &MemoryBackend{}, WithClock(fake))
	if err != nil {
		t.Fatal(err)
	}
	if session.LoggedIn() {
		if err := s.Set(ctx, session); err != nil {
			t.Fatal(err)
		}
	}
	tr := NewTransport(api, s, "http://api.test/auth/refresh", WithClock(fake))
	return &transportFixture{ctx: ctx, clock: fake, store: s, api: api, http: tr.Client()}
}

func (f *transportFixture) get(t *testing.T) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(f.ctx, http.MethodGet, "http://api.test/api/transactions", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	return resp
}

// concurrentGets issues n GET requests in parallel and returns their
// status codes.
func (f *transportFixture) concurrentGets(t *testing.T, n int) []int {
	t.Helper()
	var wg sync.WaitGroup
	statuses := make([]int, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequestWithContext(f.ctx, http.MethodGet, "http://api.test/api/transactions", nil)
			resp, err := f.http.Do(req)
			if err != nil {
				t.Errorf("request %d error = %v", i, err)
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}()
	}
	wg.Wait()
	return statuses
}

func TestTransport_AttachesBearer(t *testing.T) {
	token := expiring(t, time.Hour)
	f := newTransportFixture(t, Session{Token: token}, newFakeAPI(token, ""))
	if resp := f.get(t); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if f.api.seen[0] != "Bearer "+token {
		t.Errorf("Authorization = %q, want bearer token", f.api.seen[0])
	}
}

func TestTransport_UnauthenticatedWithoutCredential(t *testing.T) {
	f := newTransportFixture(t, Session{}, newFakeAPI("something", ""))
	resp := f.get(t)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if f.api.refreshes != 0 {
		t.Errorf("refreshes = %d, want 0 without refresh token", f.api.refreshes)
	}
	if f.api.calls != 1 {
		t.Errorf("calls = %d, want 1", f.api.calls)
	}
}

func TestTransport_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	old := expiring(t, time.Hour)
	renewed := expiring(t, 2*time.Hour)
	api := newFakeAPI("revoked-server-side", renewed)
	api.waitFor = 2 // both requests fail before the refresh answers
	f := newTransportFixture(t, Session{Token: old, RefreshToken: "r1", DisplayName: "Asha"}, api)

	statuses := f.concurrentGets(t, 2)

	if api.refreshes != 1 {
		t.Errorf("refreshes = %d, want exactly 1", api.refreshes)
	}
	for i, s := range statuses {
		if s != http.StatusOK {
			t.Errorf("request %d status = %d, want 200", i, s)
		}
	}
	if len(api.seen) != 2 {
		t.Fatalf("replayed requests = %d, want 2", len(api.seen))
	}
	for _, h := range api.seen {
		if h != "Bearer "+renewed {
			t.Errorf("replay Authorization = %q, want refreshed token", h)
		}
	}
	if got := f.store.Get(); got.Token != renewed || got.RefreshToken != "r1" || got.DisplayName != "Asha" {
		t.Errorf("session after refresh = %+v", got)
	}
}

func TestTransport_RefreshFailureDrainsWaiters(t *testing.T) {
	old := expiring(t, time.Hour)
	api := newFakeAPI("revoked-server-side", "unused")
	api.rejectRefresh = true
	api.waitFor = 2
	f := newTransportFixture(t, Session{Token: old, RefreshToken: "stale"}, api)

	statuses := f.concurrentGets(t, 2)
	for i, s := range statuses {
		if s != http.StatusUnauthorized {
			t.Errorf("request %d status = %d, want the original 401", i, s)
		}
	}
	if api.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", api.refreshes)
	}
	if got := f.store.Get(); got != (Session{}) {
		t.Errorf("session after failed refresh = %+v, want cleared", got)
	}
}

func TestTransport_ReplayIsNotRetried(t *testing.T) {
	api := newFakeAPI("revoked", expiring(t, 2*time.Hour))
	api.keepRejecting = true
	f := newTransportFixture(t, Session{Token: expiring(t, time.Hour), RefreshToken: "r"}, api)

	resp := f.get(t)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 from the replay", resp.StatusCode)
	}
	if api.calls != 2 {
		t.Errorf("API calls = %d, want original + one replay", api.calls)
	}
	if api.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", api.refreshes)
	}
}

func TestTransport_ExpiredCredentialIsRefreshed(t *testing.T) {
	renewed := expiring(t, 2*time.Hour)
	api := newFakeAPI("nothing yet", renewed)
	f := newTransportFixture(t, Session{Token: expiring(t, -time.Minute), RefreshToken: "r"}, api)

	if resp := f.get(t); resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after refresh", resp.StatusCode)
	}
	if api.calls != 2 {
		t.Errorf("API calls = %d, want 2 (unauthenticated, then replay)", api.calls)
	}
}

func TestTransport_PreemptiveRefresh(t *testing.T) {
	renewed := expiring(t, 2*time.Hour)
	api := newFakeAPI(renewed, renewed)
	f := newTransportFixture(t, Session{Token: expiring(t, time.Minute), RefreshToken: "r"}, api)

	if resp := f.get(t); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if api.refreshes != 1 || api.calls != 1 {
		t.Errorf("refreshes, calls = %d, %d, want 1, 1", api.refreshes, api.calls)
	}
}

func TestTransport_ReplaysBody(t *testing.T) {
	renewed := expiring(t, 2*time.Hour)
	api := newFakeAPI("revoked", renewed)
	f := newTransportFixture(t, Session{Token: expiring(t, time.Hour), RefreshToken: "r"}, api)

	req, err := http.NewRequestWithContext(f.ctx, http.MethodPost, "http://api.test/api/transactions", strings.NewReader(`{"title":"Coffee"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(api.bodies) != 1 || api.bodies[0] != `{"title":"Coffee"}` {
		t.Errorf("replayed bodies = %q, want the original payload", api.bodies)
	}
}

func TestTransport_CancelledWhileRefreshingKeepsSession(t *testing.T) {
	old := Session{Token: expiring(t, time.Hour), RefreshToken: "r", DisplayName: "Asha"}
	api := newFakeAPI("revoked", expiring(t, 2*time.Hour))
	started, release := api.holdRefresh(t)
	f := newTransportFixture(t, old, api)

	ctx, cancel := context.WithCancel(f.ctx)
	go func() {
		<-started
		cancel()
	}()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.test/api/transactions", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := f.http.Do(req)
	if err == nil {
		resp.Body.Close()
		t.Fatalf("GET status = %d, want a cancellation error", resp.StatusCode)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("GET error = %v, want context.Canceled", err)
	}
	if got := f.store.Get(); got != old {
		t.Errorf("session after cancellation = %+v, want %+v", got, old)
	}
	release()
}

func TestTransport_LogoutDuringRefreshWins(t *testing.T) {
	api := newFakeAPI("revoked", expiring(t, 2*time.Hour))
	started, release := api.holdRefresh(t)
	f := newTransportFixture(t, Session{Token: expiring(t, time.Hour), RefreshToken: "r"}, api)

	status := make(chan int, 1)
	go func() {
		req, _ := http.NewRequestWithContext(f.ctx, http.MethodGet, "http://api.test/api/transactions", nil)
		resp, err := f.http.Do(req)
		if err != nil {
			t.Errorf("GET error = %v", err)
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-started
	if err := f.store.Clear(f.ctx); err != nil {
		t.Fatal(err)
	}
	release()

	if got := <-status; got != http.StatusUnauthorized {
		t.Errorf("status = %d, want the original 401", got)
	}
	if got := f.store.Get(); got != (Session{}) {
		t.Errorf("session after logout = %+v, want cleared", got)
	}
}
