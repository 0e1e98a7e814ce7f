// Package core provides the expense domain types.
//
// This file contains the Money value and its boundary formatting. Amounts are
// kept as an exact decimal plus a currency code; the concatenated display
// string is only produced by String.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a positive decimal amount tagged with an optional currency.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// NewMoney builds a Money from a plain decimal string such as "12.50".
func NewMoney(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Amount: d, Currency: currency}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func (m Money) Validate() error {
	if !m.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !m.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	return nil
}

// Value renders the numeric part without currency, e.g. "10.0" or "12.5".
func (m Money) Value() string {
	return FormatDecimal(m.Amount)
}

// String renders the upper-case currency code followed by the value:
// "USD10.0", "EUR12.5", or "20.0" when no currency was given.
func (m Money) String() string {
	return string(m.Currency) + m.Value()
}

// FormatDecimal renders d in plain notation with trailing zeros trimmed and
// at least one fractional digit.
func FormatDecimal(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseMoney reads a stored amount cell. It accepts the display form
// ("USD10.0", "$10.0", "10.0") as well as an explicit currency column value
// passed through fallback when the cell carries no prefix.
func ParseMoney(s string, fallback Currency) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	cur, rest := splitCurrencyPrefix(s)
	if cur == NoCurrency {
		cur = fallback
	}
	// Sheets may hand back thousands separators on formatted cells.
	rest = strings.ReplaceAll(strings.TrimSpace(rest), ",", "")
	return NewMoney(rest, cur)
}
