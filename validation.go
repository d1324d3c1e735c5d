package moneymanager

import (
	"strings"
)

// Input holds the user editable fields of a transaction, as typed in a
// form: the amount is text until validated.
type Input struct {
	Title  string
	Amount string
	Kind   Kind
}

// payload is the validated body of a create or update request.
type payload struct {
	Title  string `json:"title"`
	Amount Amount `json:"amount"`
	Kind   Kind   `json:"kind"`
}

// Validate checks in locally, before anything is sent to the server.
// It returns a Validation *Error naming the first offending field.
func (in Input) Validate() error {
	_, err := in.payload()
	return err
}

func (in Input) payload() (payload, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return payload{}, invalid("title", "transaction title is required")
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil || !amount.IsPositive() {
		return payload{}, invalid("amount", "please enter a valid amount greater than 0")
	}
	if !in.Kind.Valid() {
		return payload{}, invalid("kind", "transaction kind must be INCOME or EXPENSE")
	}
	return payload{Title: title, Amount: amount, Kind: in.Kind}, nil
}

// InputOf returns the form values of an existing transaction.
func InputOf(tx Transaction) Input {
	return Input{Title: tx.Title, Amount: tx.Amount.String(), Kind: tx.Kind}
}
