// Package parser turns a chat message such as "$10 lunch" or
// "€12.50 coffee Starbucks" into a validated core.Expense.
//
// Accepted shape, whitespace separated:
//
//	[<currency-marker>] <amount> <category> [<description>]
//
// A currency symbol ($ ₹ € ¥ £) must touch the amount; a three-letter code
// (USD INR EUR GBP JPY, any case) may be followed by whitespace. The first
// token after the amount is always the category. Everything after it is the
// description, kept verbatim.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
)

// ErrNoMatch is wrapped by every rejection Parse returns.
var ErrNoMatch = errors.New("unrecognized expense")

var (
	ErrEmpty             = fmt.Errorf("%w: empty message", ErrNoMatch)
	ErrMissingAmount     = fmt.Errorf("%w: missing amount", ErrNoMatch)
	ErrMalformedAmount   = fmt.Errorf("%w: malformed amount", ErrNoMatch)
	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be positive", ErrNoMatch)
	ErrMissingCategory   = fmt.Errorf("%w: missing category", ErrNoMatch)
)

// Parser holds the clock and logger used by Parse. The zero value is not
// usable; call New.
type Parser struct {
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock fixes the date source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithLogger sets the logger used for rejected input diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// Parse parses text with the wall clock and no diagnostics.
func Parse(text string) (core.Expense, error) {
	return defaultParser.Parse(text)
}

// Parse returns the expense described by text, or an error wrapping
// ErrNoMatch. It never returns a partially filled record.
func (p *Parser) Parse(text string) (core.Expense, error) {
	e, err := p.parse(text)
	if err != nil && p.logger != nil {
		p.logger.Debug("Rejected expense message",
			log.FieldOperation, log.OpParse,
			log.FieldInput, text,
			log.FieldError, err.Error())
	}
	return e, err
}

func (p *Parser) parse(text string) (core.Expense, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return core.Expense{}, ErrEmpty
	}

	currency, rest, err := splitMarker(s)
	if err != nil {
		return core.Expense{}, err
	}

	amountTok, rest := nextToken(rest)
	amount, err := parseAmount(amountTok)
	if err != nil {
		return core.Expense{}, err
	}

	category, description := nextToken(strings.TrimLeftFunc(rest, unicode.IsSpace))
	if category == "" {
		return core.Expense{}, ErrMissingCategory
	}
	description = strings.TrimLeftFunc(description, unicode.IsSpace)

	e, err := core.NewExpense(
		core.DateOf(p.now()),
		core.Money{Amount: amount, Currency: currency},
		strings.ToLower(category),
		description,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %v", ErrNoMatch, err)
	}
	return e, nil
}

// splitMarker strips an optional currency marker. A symbol must be directly
// followed by a digit; a code may be followed by whitespace.
func splitMarker(s string) (core.Currency, string, error) {
	r, size := utf8.DecodeRuneInString(s)
	if c, ok := core.LookupSymbol(r); ok {
		rest := s[size:]
		if !startsWithDigit(rest) {
			return core.NoCurrency, "", ErrMissingAmount
		}
		return c, rest, nil
	}
	if len(s) >= 3 && isASCIILetters(s[:3]) {
		if c, ok := core.LookupCode(s[:3]); ok {
			rest := s[3:]
			if rest == "" || startsWithDigit(rest) {
				return c, rest, checkAmountPresent(rest)
			}
			if r, _ := utf8.DecodeRuneInString(rest); unicode.IsSpace(r) {
				rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
				return c, rest, checkAmountPresent(rest)
			}
		}
	}
	return core.NoCurrency, s, nil
}

func checkAmountPresent(rest string) error {
	if !startsWithDigit(rest) {
		return ErrMissingAmount
	}
	return nil
}

// parseAmount accepts digits, optionally followed by '.' and more digits.
func parseAmount(tok string) (decimal.Decimal, error) {
	if tok == "" || !startsWithDigit(tok) {
		return decimal.Decimal{}, ErrMissingAmount
	}
	seenDot := false
	digitsAfterDot := 0
	for i := 0; i < len(tok); i++ {
		switch c := tok[i]; {
		case c >= '0' && c <= '9':
			if seenDot {
				digitsAfterDot++
			}
		case c == '.' && !seenDot:
			seenDot = true
		default:
			return decimal.Decimal{}, ErrMalformedAmount
		}
	}
	if seenDot && digitsAfterDot == 0 {
		return decimal.Decimal{}, ErrMalformedAmount
	}
	d, err := decimal.NewFromString(tok)
	if err != nil {
		return decimal.Decimal{}, ErrMalformedAmount
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, ErrNonPositiveAmount
	}
	return d, nil
}

// nextToken splits s at the first whitespace rune.
func nextToken(s string) (tok, rest string) {
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
