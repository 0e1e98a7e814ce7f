package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the ISO calendar date format used everywhere a Date is rendered.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// Expense is one parsed ledger record. Build it with NewExpense.
	Expense struct {
		Date        Date
		Amount      Money
		Category    string // lowercase single token
		Description string
	}

	// Entry is an Expense as stored by a ledger, labelled with its append time.
	Entry struct {
		Expense
		RecordedAt time.Time
		Ref        string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidCategory = errors.New("category must be a single lowercase token")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewExpense validates the fields and returns the record.
func NewExpense(date Date, amount Money, category, description string) (Expense, error) {
	e := Expense{
		Date:        date,
		Amount:      amount,
		Category:    category,
		Description: description,
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Category == "" {
		return ErrEmptyCategory
	}
	if strings.IndexFunc(e.Category, unicode.IsSpace) >= 0 || strings.ToLower(e.Category) != e.Category {
		return ErrInvalidCategory
	}
	return nil
}
