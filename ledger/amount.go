package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Non-negative integral quantity
// =============================================================================

// Amount is the value moved by a transaction.
//
// INVARIANTS:
//   - Always >= 0
//   - Always integral (minor units, e.g. cents)
//
// The zero value is a valid zero amount. Sums of amounts stay non-negative.
type Amount struct {
	value decimal.Decimal
}

// ZeroAmount is the identity for Add.
var ZeroAmount = Amount{}

// NewAmount builds an amount from minor units. Negative values are rejected.
func NewAmount(value int64) (Amount, error) {
	if value < 0 {
		return Amount{}, &DomainError{Field: "amount", Value: fmt.Sprint(value), Reason: "must not be negative"}
	}
	return Amount{value: decimal.NewFromInt(value)}, nil
}

// MustAmount is like NewAmount but panics on error. Use for hardcoded values.
func MustAmount(value int64) Amount {
	a, err := NewAmount(value)
	if err != nil {
		panic(fmt.Sprintf("ledger: must amount: %v", err))
	}
	return a
}

// ParseAmount parses a decimal string such as "250".
// Fractions and negative values are outside the domain.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, &DomainError{Field: "amount", Value: s, Reason: "not a number"}
	}
	return amountFromDecimal(d)
}

func amountFromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return Amount{}, &DomainError{Field: "amount", Value: d.String(), Reason: "must not be negative"}
	}
	if !d.Equal(d.Truncate(0)) {
		return Amount{}, &DomainError{Field: "amount", Value: d.String(), Reason: "must be integral"}
	}
	return Amount{value: d.Truncate(0)}, nil
}

func (a Amount) Add(b Amount) Amount { return Amount{value: a.value.Add(b.value)} }
func (a Amount) Cmp(b Amount) int { return a.value.Cmp(b.value) }
func (a Amount) Equal(b Amount) bool { return a.value.Equal(b.value) }
func (a Amount) IsZero() bool { return a.value.IsZero() }
func (a Amount) Decimal() decimal.Decimal { return a.value }
func (a Amount) String() string { return a.value.String() }

// MarshalJSON renders the amount as a string to avoid float rounding in clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.value.String())
}

// UnmarshalJSON accepts both "250" and 250. null is not an amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return &DomainError{Field: "amount", Reason: "must not be null"}
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return &DomainError{Field: "amount", Value: string(data), Reason: "not a number"}
	}
	parsed, err := amountFromDecimal(d)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
