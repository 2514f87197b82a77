package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode controls how monetary amounts are rounded to a currency's
// fractional digits after arithmetic.
type RoundingMode string

const (
	RoundHalfEven RoundingMode = "HALF_EVEN" // banker's rounding
	RoundHalfUp   RoundingMode = "HALF_UP"   // half away from zero
	RoundUp       RoundingMode = "UP"        // away from zero
	RoundDown     RoundingMode = "DOWN"      // toward zero
	RoundCeiling  RoundingMode = "CEILING"
	RoundFloor    RoundingMode = "FLOOR"
)

// IsValid returns true if the rounding mode is one of the supported modes
func (r RoundingMode) IsValid() bool {
	switch r {
	case RoundHalfEven, RoundHalfUp, RoundUp, RoundDown, RoundCeiling, RoundFloor:
		return true
	}
	return false
}

// String returns the string representation of the rounding mode
func (r RoundingMode) String() string {
	return string(r)
}

// ParseRoundingMode converts a string into a RoundingMode
func ParseRoundingMode(s string) (RoundingMode, error) {
	mode := RoundingMode(strings.ToUpper(strings.TrimSpace(s)))
	if !mode.IsValid() {
		return "", fmt.Errorf("unknown rounding mode: %q", s)
	}
	return mode, nil
}

// Currency describes the monetary unit every Money amount is bound to:
// an ISO 4217 style code, the number of fractional digits kept after each
// arithmetic operation, and the rounding mode used to get there.
type Currency struct {
	Code          string       `json:"code"`
	DecimalPlaces int32        `json:"decimal_places"`
	Rounding      RoundingMode `json:"rounding"`
}

// NewCurrency creates a Currency, validating code, digits and rounding mode
func NewCurrency(code string, decimalPlaces int32, rounding RoundingMode) (Currency, error) {
	if code == "" {
		return Currency{}, fmt.Errorf("currency code cannot be empty")
	}
	if decimalPlaces < 0 || decimalPlaces > 6 {
		return Currency{}, fmt.Errorf("currency %s: decimal places must be between 0 and 6, got %d", code, decimalPlaces)
	}
	if !rounding.IsValid() {
		return Currency{}, fmt.Errorf("currency %s: unknown rounding mode %q", code, rounding)
	}
	return Currency{Code: code, DecimalPlaces: decimalPlaces, Rounding: rounding}, nil
}

// MustCurrency creates a Currency, panicking on invalid input. Intended for
// test fixtures and static initialisation.
func MustCurrency(code string, decimalPlaces int32, rounding RoundingMode) Currency {
	c, err := NewCurrency(code, decimalPlaces, rounding)
	if err != nil {
		panic(err)
	}
	return c
}

// Equal returns true if both currencies have the same code and precision
func (c Currency) Equal(other Currency) bool {
	return c.Code == other.Code && c.DecimalPlaces == other.DecimalPlaces
}

// Round rounds a raw decimal to this currency's fractional digits using the
// currency's rounding mode.
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	switch c.Rounding {
	case RoundHalfUp:
		return d.Round(c.DecimalPlaces)
	case RoundUp:
		return d.RoundUp(c.DecimalPlaces)
	case RoundDown:
		return d.RoundDown(c.DecimalPlaces)
	case RoundCeiling:
		return d.RoundCeil(c.DecimalPlaces)
	case RoundFloor:
		return d.RoundFloor(c.DecimalPlaces)
	default:
		return d.RoundBank(c.DecimalPlaces)
	}
}

// String returns the currency code
func (c Currency) String() string {
	return c.Code
}

// Money is a value object representing a monetary amount bound to a Currency.
// It is immutable - all operations return new Money instances, and every
// arithmetic result is rounded to the currency's fractional digits.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money from a raw decimal, rounding it to the currency
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: currency.Round(amount), currency: currency}
}

// NewMoneyFromString creates Money from a decimal string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency), nil
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency
func (m Money) Currency() Currency {
	return m.currency
}

// Zero returns a zero Money in this Money's currency
func (m Money) Zero() Money {
	return Zero(m.currency)
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is strictly greater than zero
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is strictly less than zero
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) mustSameCurrency(other Money, op string) {
	if !m.currency.Equal(other.currency) {
		panic(fmt.Sprintf("cannot %s money in different currencies: %s and %s", op, m.currency.Code, other.currency.Code))
	}
}

// Add returns a new Money with the sum of both amounts.
// Returns error if currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if !m.currency.Equal(other.currency) {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency.Code, other.currency.Code)
	}
	return NewMoney(m.amount.Add(other.amount), m.currency), nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference.
// Returns error if currencies don't match.
func (m Money) Subtract(other Money) (Money, error) {
	if !m.currency.Equal(other.currency) {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency.Code, other.currency.Code)
	}
	return NewMoney(m.amount.Sub(other.amount), m.currency), nil
}

// MustSubtract subtracts two Money values, panics if currencies don't match
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// MultipliedBy returns this Money multiplied by an integer factor
func (m Money) MultipliedBy(factor int64) Money {
	return NewMoney(m.amount.Mul(decimal.NewFromInt(factor)), m.currency)
}

// DividedBy returns this Money divided into an even share across n parts,
// rounded with the currency's rounding mode. Callers splitting an amount must
// account for the residual (amount - share*n) themselves.
func (m Money) DividedBy(n int64) Money {
	if n == 0 {
		panic("cannot divide money by zero")
	}
	return NewMoney(m.amount.Div(decimal.NewFromInt(n)), m.currency)
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// Equal returns true if both Money values have the same currency and amount
func (m Money) Equal(other Money) bool {
	return m.currency.Equal(other.currency) && m.amount.Equal(other.amount)
}

// LessThan returns true if this Money is less than the other.
// Panics on currency mismatch - amounts from different currencies must never
// meet inside one allocation run.
func (m Money) LessThan(other Money) bool {
	m.mustSameCurrency(other, "compare")
	return m.amount.LessThan(other.amount)
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) bool {
	m.mustSameCurrency(other, "compare")
	return m.amount.GreaterThan(other.amount)
}

// GreaterThanOrEqual returns true if this Money is greater than or equal to the other
func (m Money) GreaterThanOrEqual(other Money) bool {
	m.mustSameCurrency(other, "compare")
	return m.amount.GreaterThanOrEqual(other.amount)
}

// Min returns the smaller of the two Money values
func (m Money) Min(other Money) Money {
	if m.LessThan(other) {
		return m
	}
	return other
}

// String returns a string representation like "12.34 EUR"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.currency.DecimalPlaces), m.currency.Code)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(m.currency.DecimalPlaces),
		Currency: m.currency.Code,
	})
}
