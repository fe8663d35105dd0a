package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a specific currency.
// Amount is stored as BIGINT micros (10^-6) to avoid floating point errors.
type Money struct {
	Amount   int64 // micros
	Currency string
}

var micro = decimal.NewFromInt(1_000_000)

// NewMoney creates a new Money instance from micros.
func NewMoney(amount int64, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// MoneyFromFloat converts a gateway-reported float amount to micros.
// Gateway callbacks and user input carry plain decimal numbers; the
// conversion goes through shopspring/decimal to avoid drift.
func MoneyFromFloat(amount float64, currency string) Money {
	return Money{
		Amount:   FromDecimal(decimal.NewFromFloat(amount)),
		Currency: currency,
	}
}

// ToDecimal converts the int64 micros to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(micro)
}

// Float returns the closest float64 for outbound gateway payloads.
func (m Money) Float() float64 {
	return m.ToDecimal().InexactFloat64()
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// FromDecimal converts a decimal.Decimal to int64 micros, rounding down.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(micro).IntPart()
}

// ParseAmount parses a user-entered amount string into micros.
// Zero and negative amounts are rejected before any transaction exists.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", d)
	}
	return FromDecimal(d), nil
}

// ParseNonNegativeAmount parses a user-entered amount that may be
// zero, such as a tip. Negative amounts are rejected.
func ParseNonNegativeAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative, got %s", d)
	}
	return FromDecimal(d), nil
}

// String returns the human readable representation, trimming trailing
// zeros the way amounts are shown in chat messages.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().String(), m.Currency)
}
