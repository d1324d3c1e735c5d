package moneymanager

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tells whether a transaction brings money in or takes it out.
type Kind string

const (
	Income  Kind = "INCOME"
	Expense Kind = "EXPENSE"
)

// ParseKind parses a kind, case insensitively. The legacy plural "EXPENSES"
// is accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INCOME":
		return Income, nil
	case "EXPENSE", "EXPENSES":
		return Expense, nil
	}
	return "", fmt.Errorf("invalid kind %q: must be INCOME or EXPENSE", s)
}

// Valid reports whether k is Income or Expense.
func (k Kind) Valid() bool { return k == Income || k == Expense }

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Set implements flag.Value.
func (k *Kind) Set(s string) error {
	v, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (k Kind) String() string { return string(k) }
