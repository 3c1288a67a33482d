// Package money holds the single-currency amount type used by balances and ledger entries.
//
// Invariants:
//   - Amounts are stored in minor units (cents), two fractional digits.
//   - Parsing never rounds: an input with more precision than a cent is rejected.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits of the currency.
const Scale = 2

// Max is the largest amount a single operation may carry.
const Max Amount = 100_000_000_000_000

var (
	// ErrInvalidFormat is returned when the input is not a decimal number.
	ErrInvalidFormat = errors.New("amount is not a decimal number")
	// ErrTooPrecise is returned when the input has more than Scale fractional digits.
	ErrTooPrecise = errors.New("amount has more than two fractional digits")
	// ErrOutOfRange is returned when the absolute value exceeds Max.
	ErrOutOfRange = errors.New("amount is out of range")
)

var maxDecimal = decimal.New(int64(Max), -Scale)

// Amount is a monetary value in minor units.
type Amount int64

// Parse converts a decimal string such as "60" or "12.50" into an Amount.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidFormat
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidFormat
	}
	return FromDecimal(d)
}

// FromDecimal converts an exact decimal into an Amount.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.Equal(d.Truncate(Scale)) {
		return 0, ErrTooPrecise
	}
	if d.Abs().GreaterThan(maxDecimal) {
		return 0, ErrOutOfRange
	}
	return Amount(d.Shift(Scale).IntPart()), nil
}

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool { return a > 0 }

// Neg returns -a.
func (a Amount) Neg() Amount { return -a }

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// Float64 returns the amount in major units as a float, for display only.
func (a Amount) Float64() float64 {
	f, _ := a.Decimal().Float64()
	return f
}

// String renders the amount with exactly two fractional digits.
func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// MarshalJSON encodes the amount as a JSON number in major units, e.g. 60.00.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	v, err := Parse(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
