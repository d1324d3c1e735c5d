package moneymanager

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/etnz/moneymanager/auth"
)

// Draft is the state of the transaction form: a new transaction when
// EditID is empty, an edit of that transaction otherwise.
type Draft struct {
	EditID string
	Input  Input
}

// Store is the client side cache of the user's transactions and the only
// way to change them on the server.
//
// Operations run one at a time: starting one while another is pending
// returns ErrBusy without sending anything. Every failure is also recorded
// as LastError, and leaves Records unchanged unless stated otherwise.
type Store struct {
	client *http.Client
	guard  *auth.Guard
	cfg    settings

	mu      sync.Mutex
	records []Transaction
	pending bool
	lastErr *Error
	draft   Draft
}

// NewStore returns an empty Store. client should authorize its requests,
// typically with an auth.Transport.
func NewStore(client *http.Client, guard *auth.Guard, opts ...Option) *Store {
	return &Store{client: client, guard: guard, cfg: newSettings(opts)}
}

// Records returns a copy of the cached transactions, newest created first.
func (s *Store) Records() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Pending reports whether an operation is in flight.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// LastError returns the failure of the last operation, nil if it succeeded.
func (s *Store) LastError() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Summary returns the aggregates of the cached transactions.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summarize(s.records)
}

// Balance returns the total income minus the total expenses.
func (s *Store) Balance() Amount { return s.Summary().Balance() }

// TotalIncome returns the sum of the INCOME transactions.
func (s *Store) TotalIncome() Amount { return s.Summary().Income }

// TotalExpenses returns the sum of the EXPENSE transactions.
func (s *Store) TotalExpenses() Amount { return s.Summary().Expenses }

// begin checks the session and marks the store as pending.
func (s *Store) begin(ctx context.Context) (*auth.RequestConfig, error) {
	cfg, err := s.guard.Require(ctx)
	if err != nil {
		return nil, s.fail(sessionExpired())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return nil, ErrBusy
	}
	s.pending = true
	s.lastErr = nil
	return cfg, nil
}

func (s *Store) end() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
}

// fail records e as the last error. An expired session is also cleared
// here, in case the server said so before the client noticed.
func (s *Store) fail(e *Error) error {
	if e.Kind == AuthExpired {
		if err := s.guard.Store().Clear(context.Background()); err != nil {
			s.cfg.logger.Error().Err(err).Msg("cannot clear session")
		}
	}
	s.mu.Lock()
	s.lastErr = e
	s.mu.Unlock()
	s.cfg.logger.Warn().Str("kind", e.Kind.String()).Int("status", e.Status).Msg(e.Error())
	return e
}

// send performs an authenticated request and classifies its failure.
func (s *Store) send(ctx context.Context, cfg *auth.RequestConfig, op operation, method, addr string, in any) (response, *Error) {
	resp, err := doJSON(ctx, s.client, method, addr, cfg.Header, in)
	if err != nil {
		return resp, networkError(op, err)
	}
	s.cfg.logger.Debug().Str("method", method).Str("url", addr).Int("status", resp.Status).Msg(string(op))
	if !resp.ok() {
		return resp, classify(op, resp.Status, resp.Body)
	}
	return resp, nil
}

func (s *Store) collection() string    { return join(s.cfg.baseURL, "api", "transactions") }
func (s *Store) item(id string) string { return join(s.cfg.baseURL, "api", "transactions", url.PathEscape(id)) }

// FetchAll replaces the cache with the server's transactions.
func (s *Store) FetchAll(ctx context.Context) error {
	cfg, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer s.end()
	return s.fetch(ctx, cfg)
}

// fetch runs inside the pending window of its caller.
func (s *Store) fetch(ctx context.Context, cfg *auth.RequestConfig) error {
	resp, e := s.send(ctx, cfg, opFetch, http.MethodGet, s.collection(), nil)
	if e != nil {
		return s.fail(e)
	}
	txs, skipped, err := decodeList(resp.Body)
	for _, err := range skipped {
		s.cfg.logger.Warn().Err(err).Msg("skipping unreadable transaction")
	}
	if err != nil {
		s.mu.Lock()
		s.records = nil
		s.mu.Unlock()
		return s.fail(&Error{Kind: Unknown, Status: resp.Status, Message: errFormat.Error(), Err: err})
	}
	txs = dedup(txs)
	s.mu.Lock()
	s.records = txs
	s.mu.Unlock()
	s.cfg.logger.Debug().Int("count", len(txs)).Msg("transactions fetched")
	return nil
}

// reconcile refetches after a successful mutation. Its failure is recorded
// but does not fail the mutation.
func (s *Store) reconcile(ctx context.Context, cfg *auth.RequestConfig) {
	if err := s.fetch(ctx, cfg); err != nil {
		s.cfg.logger.Info().Err(err).Msg("cannot reconcile after mutation")
	}
}

// Create validates in, creates the transaction on the server and returns
// it. The new transaction is shown first, the form is cleared, and the
// cache is then refetched to pick up server side fields.
func (s *Store) Create(ctx context.Context, in Input) (Transaction, error) {
	cfg, err := s.begin(ctx)
	if err != nil {
		return Transaction{}, err
	}
	defer s.end()

	p, err := in.payload()
	if err != nil {
		return Transaction{}, s.fail(err.(*Error))
	}
	resp, e := s.send(ctx, cfg, opCreate, http.MethodPost, s.collection(), p)
	if e != nil {
		return Transaction{}, s.fail(e)
	}
	tx, ok := decodeRecord(resp.Body)
	if !ok {
		tx = Transaction{ID: s.cfg.newID(), Title: p.Title, Amount: p.Amount, Kind: p.Kind}
	}

	s.mu.Lock()
	s.records = append([]Transaction{tx}, without(s.records, tx.ID)...)
	s.draft = Draft{}
	s.mu.Unlock()

	s.reconcile(ctx, cfg)
	return tx, nil
}

// Update validates in and replaces the transaction id with it. The edit
// mode is left and the cache refetched.
func (s *Store) Update(ctx context.Context, id string, in Input) (Transaction, error) {
	cfg, err := s.begin(ctx)
	if err != nil {
		return Transaction{}, err
	}
	defer s.end()

	p, err := in.payload()
	if err != nil {
		return Transaction{}, s.fail(err.(*Error))
	}
	resp, e := s.send(ctx, cfg, opUpdate, http.MethodPut, s.item(id), p)
	if e != nil {
		return Transaction{}, s.fail(e)
	}
	tx, ok := decodeRecord(resp.Body)

	// the cache may have changed during the call: patch by id.
	s.mu.Lock()
	i := slices.IndexFunc(s.records, func(t Transaction) bool { return t.ID == id })
	if !ok {
		tx = Transaction{ID: id, CreatedAt: s.cfg.clock.Now()}
		if i >= 0 {
			tx = s.records[i]
		}
		tx.Title, tx.Amount, tx.Kind = p.Title, p.Amount, p.Kind
		tx.UpdatedAt = s.cfg.clock.Now()
	}
	if i >= 0 {
		s.records[i] = tx
	}
	if s.draft.EditID == id {
		s.draft = Draft{}
	}
	s.mu.Unlock()

	s.reconcile(ctx, cfg)
	return tx, nil
}

// Delete removes the transaction id. A transaction already gone from the
// server is not a failure: it is removed locally and LastError reports a
// soft NotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	cfg, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer s.end()

	_, e := s.send(ctx, cfg, opDelete, http.MethodDelete, s.item(id), nil)
	if e != nil && e.Kind != NotFound {
		return s.fail(e)
	}
	s.mu.Lock()
	s.records = without(s.records, id)
	if s.draft.EditID == id {
		s.draft = Draft{}
	}
	s.mu.Unlock()
	if e != nil {
		e.Soft = true
		s.fail(e)
	}
	return nil
}

// DeleteAll removes every transaction of the user.
func (s *Store) DeleteAll(ctx context.Context) error {
	cfg, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer s.end()

	if _, e := s.send(ctx, cfg, opDeleteAll, http.MethodDelete, s.collection(), nil); e != nil {
		return s.fail(e)
	}
	s.mu.Lock()
	s.records = []Transaction{}
	s.draft = Draft{}
	s.mu.Unlock()
	return nil
}

// Draft returns the form state.
func (s *Store) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft replaces the form values, keeping the edit mode.
func (s *Store) SetDraft(in Input) {
	s.mu.Lock()
	s.draft.Input = in
	s.mu.Unlock()
}

// Edit loads the cached transaction id into the form.
func (s *Store) Edit(id string) error {
	s.mu.Lock()
	i := slices.IndexFunc(s.records, func(t Transaction) bool { return t.ID == id })
	if i < 0 || id == "" {
		s.mu.Unlock()
		return s.fail(invalid("id", "invalid transaction data, cannot edit this transaction"))
	}
	s.draft = Draft{EditID: id, Input: InputOf(s.records[i])}
	s.mu.Unlock()
	return nil
}

// CancelEdit leaves the edit mode and clears the form.
func (s *Store) CancelEdit() {
	s.mu.Lock()
	s.draft = Draft{}
	s.mu.Unlock()
}

// Submit sends the form: an update in edit mode, a creation otherwise.
func (s *Store) Submit(ctx context.Context) (Transaction, error) {
	d := s.Draft()
	if d.EditID != "" {
		return s.Update(ctx, d.EditID, d.Input)
	}
	return s.Create(ctx, d.Input)
}

// IsSoft reports whether err, or the store's last error, is a failure that
// nevertheless achieved its intent.
func IsSoft(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Soft
}

// without returns txs minus the transaction id, in a new slice.
func without(txs []Transaction, id string) []Transaction {
	return slices.DeleteFunc(slices.Clone(txs), func(t Transaction) bool { return t.ID == id })
}

// dedup keeps the first occurrence of every id.
func dedup(txs []Transaction) []Transaction {
	seen := make(map[string]bool, len(txs))
	return slices.DeleteFunc(txs, func(t Transaction) bool {
		if seen[t.ID] {
			return true
		}
		seen[t.ID] = true
		return false
	})
}
