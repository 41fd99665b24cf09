// Package money implements exact currency amounts in integer minor units
// (cents). Floating point never touches an amount: decimal input is parsed
// and rounded exactly once, and rate conversion is rational arithmetic.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// --- Errors ---

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidRate      = errors.New("invalid exchange rate")
)

// --- Models ---

type Money struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency"`
}

// Rate is an exchange rate expressed as an exact rational number, e.g.
// 23/25 for 0.92.
type Rate struct {
	Num   int64 `json:"num"`
	Denom int64 `json:"denom"`
}

func (r Rate) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Denom)
}

func New(cents int64, currencyCode string) Money {
	return Money{Cents: cents, Currency: currencyCode}
}

// FromDecimalString parses a decimal amount such as "12.34" into cents.
// The value is rounded half-up to two decimal places; non-numeric or
// non-positive input fails with ErrInvalidAmount.
func FromDecimalString(s, currencyCode string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64 / 100)) {
		return Money{}, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, s)
	}
	cents := d.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents, Currency: currencyCode}, nil
}

// DecimalString renders the amount as a plain decimal, e.g. 1234 -> "12.34".
func (m Money) DecimalString() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func (m Money) IsPositive() bool {
	return m.Cents > 0
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

func (m Money) Subtract(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Cents: m.Cents - other.Cents, Currency: m.Currency}, nil
}

// Convert applies rate to m, producing an amount in toCurrency. The result
// is truncated toward zero and the discarded remainder is returned as a
// numerator over rate.Denom target cents, so the caller can record it.
// Truncating on both legs guarantees a convert round trip never pays out
// more than was put in.
func Convert(m Money, rate Rate, toCurrency string) (Money, int64, error) {
	if m.Cents <= 0 {
		return Money{}, 0, ErrInvalidAmount
	}
	if rate.Num <= 0 || rate.Denom <= 0 {
		return Money{}, 0, ErrInvalidRate
	}
	if m.Cents > math.MaxInt64/rate.Num {
		return Money{}, 0, fmt.Errorf("%w: %d cents would overflow at rate %s", ErrInvalidAmount, m.Cents, rate)
	}
	product := m.Cents * rate.Num
	converted := Money{Cents: product / rate.Denom, Currency: toCurrency}
	return converted, product % rate.Denom, nil
}
