package valueobjects

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a string is not a decimal number.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrNegativeAmount is returned when a non-negative amount is required.
var ErrNegativeAmount = errors.New("amount must not be negative")

// Amount is a monetary quantity in the local currency, as declared on income forms.
// Uses decimal.Decimal so "1.10" round-trips exactly.
type Amount struct {
	value decimal.Decimal
}

// ParseAmount parses user input such as "2500000", "2,500,000" or "1500.50".
// Thousands separators and surrounding spaces are accepted.
func ParseAmount(s string) (Amount, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return Amount{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Amount{}, fmt.Errorf("%w %q", ErrInvalidAmount, s)
	}
	return Amount{value: d}, nil
}

// ParseNonNegativeAmount parses s and rejects values below zero.
func ParseNonNegativeAmount(s string) (Amount, error) {
	a, err := ParseAmount(s)
	if err != nil {
		return Amount{}, err
	}
	if a.value.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	return a, nil
}

// Decimal exposes the underlying value.
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

// IsZero returns true if amount == 0.
func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

// String returns the canonical form with two decimal places.
func (a Amount) String() string {
	return a.value.StringFixed(2)
}
