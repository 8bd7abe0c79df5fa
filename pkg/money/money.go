// Package money implements the Money value object: a non-negative decimal
// amount fixed at two decimal places (half-up) tagged with an ISO 4217 code.
//
// Money is immutable. Arithmetic returns a new value and fails on currency
// mismatch instead of converting.
package money

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	dErrors "ecommerce/pkg/domain-errors"
)

// Scale is the number of decimal places every amount is normalized to.
const Scale = 2

// DefaultCurrency is used for new orders before any line fixes the currency.
const DefaultCurrency = "CNY"

// ErrCurrencyMismatch is wrapped by every cross-currency operation.
var ErrCurrencyMismatch = dErrors.New(dErrors.CodeValidation, "cannot combine amounts in different currencies")

type Money struct {
	amount   decimal.Decimal
	currency string
}

// New validates and normalizes amount to two decimal places, rounding half-up.
func New(amount decimal.Decimal, currency string) (Money, error) {
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if amount.IsNegative() {
		return Money{}, dErrors.New(dErrors.CodeValidation, "amount cannot be negative: "+amount.String())
	}
	// Round is half away from zero, which equals half-up for non-negative amounts.
	return Money{amount: amount.Round(Scale), currency: code}, nil
}

// Parse builds Money from a decimal string such as "299.99".
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, dErrors.New(dErrors.CodeValidation, "amount is not a decimal number: "+amount)
	}
	return New(d, currency)
}

// MustParse is Parse for constants and tests; it panics on invalid input.
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in currency. An invalid currency yields an
// untagged zero, which any later arithmetic rejects.
func Zero(currency string) Money {
	m, err := New(decimal.Zero, currency)
	if err != nil {
		return Money{amount: decimal.Zero}
	}
	return m
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return New(m.amount.Add(other.amount), m.currency)
}

// Subtract returns m - other. A negative result is rejected like any other
// negative amount.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return New(m.amount.Sub(other.amount), m.currency)
}

// Multiply scales m by a dimensionless factor.
func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	return New(m.amount.Mul(factor), m.currency)
}

// Times scales m by a quantity.
func (m Money) Times(quantity int) (Money, error) {
	return m.Multiply(decimal.NewFromInt(int64(quantity)))
}

// IsGreaterThan compares two amounts in the same currency.
func (m Money) IsGreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// IsZero is an exact comparison at the normalized scale.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Equal reports value equality (amount and currency).
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// StringAmount renders the amount with exactly two decimals.
func (m Money) StringAmount() string {
	return m.amount.StringFixed(Scale)
}

func (m Money) String() string {
	return m.currency + " " + m.StringAmount()
}

type wireMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes the amount as a fixed-point string so it round-trips
// without float rounding.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMoney{Amount: m.StringAmount(), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var w wireMoney
	if err := json.Unmarshal(data, &w); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid money")
	}
	parsed, err := Parse(w.Amount, w.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return dErrors.Wrap(ErrCurrencyMismatch, dErrors.CodeValidation,
			"currency mismatch: "+m.currency+" vs "+other.currency)
	}
	return nil
}

func normalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return "", dErrors.New(dErrors.CodeValidation, "currency is required")
	}
	if len(code) != 3 {
		return "", dErrors.New(dErrors.CodeValidation, "currency must be a three-letter ISO 4217 code: "+currency)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", dErrors.New(dErrors.CodeValidation, "currency must be a three-letter ISO 4217 code: "+currency)
		}
	}
	return code, nil
}
