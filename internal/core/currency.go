package core

import (
	"strings"
	"unicode/utf8"
)

// Currency is an ISO 4217 code from the closed set the parser knows about.
// The zero value means the message did not name a currency.
type Currency string

const (
	NoCurrency Currency = ""
	USD        Currency = "USD"
	INR        Currency = "INR"
	EUR        Currency = "EUR"
	GBP        Currency = "GBP"
	JPY        Currency = "JPY"
)

var currencySymbols = map[rune]Currency{
	'$': USD,
	'₹': INR,
	'€': EUR,
	'¥': JPY,
	'£': GBP,
}

// LookupSymbol maps a currency symbol to its code.
func LookupSymbol(r rune) (Currency, bool) {
	c, ok := currencySymbols[r]
	return c, ok
}

// LookupCode matches a three-letter code case-insensitively.
func LookupCode(s string) (Currency, bool) {
	if len(s) != 3 {
		return NoCurrency, false
	}
	c := Currency(strings.ToUpper(s))
	if !c.IsValid() || c == NoCurrency {
		return NoCurrency, false
	}
	return c, true
}

// IsValid reports whether c is empty or one of the known codes.
func (c Currency) IsValid() bool {
	switch c {
	case NoCurrency, USD, INR, EUR, GBP, JPY:
		return true
	default:
		return false
	}
}

// Symbol returns the display symbol for c, or "" when unspecified.
func (c Currency) Symbol() string {
	for r, code := range currencySymbols {
		if code == c {
			return string(r)
		}
	}
	return ""
}

func (c Currency) String() string {
	return string(c)
}

// splitCurrencyPrefix strips a leading symbol or code from s.
func splitCurrencyPrefix(s string) (Currency, string) {
	if r, size := utf8.DecodeRuneInString(s); r != utf8.RuneError {
		if c, ok := LookupSymbol(r); ok {
			return c, s[size:]
		}
	}
	if len(s) >= 3 {
		if c, ok := LookupCode(s[:3]); ok {
			return c, s[3:]
		}
	}
	return NoCurrency, s
}
