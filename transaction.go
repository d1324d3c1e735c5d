package moneymanager

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Transaction is a dated income or expense record owned by the backend.
//
// The client only mirrors it: ID and CreatedAt are assigned by the server
// and never change.
type Transaction struct {
	ID        string
	Title     string
	Amount    Amount
	Kind      Kind
	CreatedAt time.Time // zero when the server did not send it
	UpdatedAt time.Time // zero when never updated
}

// When returns the creation date of t, or now when the server did not
// provide one. It is meant for display, t is not modified.
func (t Transaction) When(now time.Time) time.Time {
	if t.CreatedAt.IsZero() {
		return now
	}
	return t.CreatedAt
}

// Signed returns the amount counted positively for an income and
// negatively for an expense.
func (t Transaction) Signed() Amount {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

type jsonTransaction struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Amount    Amount    `json:"amount"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonTransaction(t))
}

// UnmarshalJSON decodes the several shapes backends use for a record:
// "id" or "_id" (string or number), "kind" or "type", camel or snake case
// dates.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         json.RawMessage `json:"id"`
		MongoID    json.RawMessage `json:"_id"`
		Title      string          `json:"title"`
		Amount     Amount          `json:"amount"`
		Kind       *Kind           `json:"kind"`
		Type       *Kind           `json:"type"`
		CreatedAt  string          `json:"createdAt"`
		CreatedAt2 string          `json:"created_at"`
		UpdatedAt  string          `json:"updatedAt"`
		UpdatedAt2 string          `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}
	if id == "" {
		if id, err = decodeID(raw.MongoID); err != nil {
			return err
		}
	}
	var kind Kind
	switch {
	case raw.Kind != nil:
		kind = *raw.Kind
	case raw.Type != nil:
		kind = *raw.Type
	default:
		return fmt.Errorf("transaction %q has no kind", id)
	}
	*t = Transaction{
		ID:        id,
		Title:     raw.Title,
		Amount:    raw.Amount,
		Kind:      kind,
		CreatedAt: parseTime(first(raw.CreatedAt, raw.CreatedAt2)),
		UpdatedAt: parseTime(first(raw.UpdatedAt, raw.UpdatedAt2)),
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid transaction id %s", raw)
	}
	return n.String(), nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime is lenient: an unreadable date is treated as absent.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
