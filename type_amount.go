package moneymanager

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount is an exact decimal quantity of money, without currency: the
// backend does not know about currencies.
type Amount struct {
	value decimal.Decimal
}

// A builds an Amount from a numeric constant.
func A[T float64 | int | int64 | decimal.Decimal](value T) Amount {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return Amount{v}
	case float64:
		return Amount{decimal.NewFromFloat(v)}
	case int:
		return Amount{decimal.NewFromInt(int64(v))}
	case int64:
		return Amount{decimal.NewFromInt(v)}
	}
	panic("unreachable")
}

// Bounds of an Amount: exponent notation may not blow up the number of
// digits rendered.
const (
	maxExponent = 18
	maxDigits   = 30
)

// ParseAmount parses a decimal number such as "150" or "12.50".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := bounded(d); err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{d}, nil
}

func bounded(d decimal.Decimal) error {
	if e := d.Exponent(); e > maxExponent || e < -maxExponent {
		return fmt.Errorf("exponent %d out of range", e)
	}
	if n := d.NumDigits(); n > maxDigits {
		return fmt.Errorf("%d digits, at most %d", n, maxDigits)
	}
	return nil
}

func (a Amount) Decimal() decimal.Decimal { return a.value }
func (a Amount) IsZero() bool             { return a.value.IsZero() }
func (a Amount) IsPositive() bool         { return a.value.IsPositive() }
func (a Amount) IsNegative() bool         { return a.value.IsNegative() }
func (a Amount) Equal(b Amount) bool      { return a.value.Equal(b.value) }
func (a Amount) Add(b Amount) Amount      { return Amount{a.value.Add(b.value)} }
func (a Amount) Sub(b Amount) Amount      { return Amount{a.value.Sub(b.value)} }
func (a Amount) Neg() Amount              { return Amount{a.value.Neg()} }
func (a Amount) LessThan(b Amount) bool   { return a.value.LessThan(b.value) }
func (a Amount) InexactFloat64() float64  { return a.value.InexactFloat64() }
func (a Amount) String() string           { return a.value.String() }

// MarshalJSON encodes a as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) { return []byte(a.value.String()), nil }

// UnmarshalJSON accepts numbers and numeric strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	if err := bounded(d); err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	a.value = d
	return nil
}

// Format renders a in the given currency (ISO 4217 code), e.g. "₹150.00".
func (a Amount) Format(currency string) string {
	// to get a never nil currency I need to call the Money constructor
	cur := money.New(0, currency).Currency()
	minor := a.value.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}
