package services

import (
	"context"
	"errors"
	"fmt"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/log"
	"ledgerbot/internal/parser"
)

// EventPublisher announces recorded expenses to other systems.
type EventPublisher interface {
	PublishExpenseRecorded(ctx context.Context, e core.Entry) error
}

// ExpenseService is the one place a parsed message meets a ledger store.
type ExpenseService struct {
	store     ledger.Store
	parser    *parser.Parser
	publisher EventPublisher
	logger    *log.Logger
}

// Option configures an ExpenseService.
type Option func(*ExpenseService)

func WithPublisher(p EventPublisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

func WithParser(p *parser.Parser) Option {
	return func(s *ExpenseService) { s.parser = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *ExpenseService) { s.logger = l }
}

func NewExpenseService(store ledger.Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		store:  store,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentExpense)
	if s.parser == nil {
		s.parser = parser.New(parser.WithLogger(s.logger.WithComponent(log.ComponentParser)))
	}
	return s
}

// Record parses text and appends the expense. Parse failures wrap
// parser.ErrNoMatch and leave the store untouched; store failures come back
// unchanged and are not retried.
func (s *ExpenseService) Record(ctx context.Context, text string) (core.Entry, error) {
	e, err := s.parser.Parse(text)
	if err != nil {
		return core.Entry{}, err
	}
	if s.store == nil {
		return core.Entry{}, ledger.Unavailable("append", errors.New("no ledger store"))
	}

	entry, err := s.store.Append(ctx, e)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save expense",
			log.FieldOperation, log.OpAppend,
			log.FieldError, err)
		return core.Entry{}, err
	}

	s.logger.InfoContext(ctx, "Expense recorded", log.NewFields().
		WithExpense(e.Amount.String(), e.Category, e.Description).
		WithOperation(log.OpAppend).ToSlice()...)

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseRecorded(ctx, entry); err != nil {
			// The record is already saved; the event is best effort.
			s.logger.WarnContext(ctx, "Failed to publish expense event",
				log.FieldOperation, log.OpPublish,
				log.FieldLedgerRef, entry.Ref,
				log.FieldError, err)
		}
	}
	return entry, nil
}

func (s *ExpenseService) Recent(ctx context.Context, n int) ([]core.Entry, error) {
	if s.store == nil {
		return nil, ledger.Unavailable("list recent", errors.New("no ledger store"))
	}
	entries, err := s.store.ListRecent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	return entries, nil
}

func (s *ExpenseService) Totals(ctx context.Context, category string) (core.Totals, error) {
	if s.store == nil {
		return core.Totals{}, ledger.Unavailable("sum by category", errors.New("no ledger store"))
	}
	t, err := s.store.SumByCategory(ctx, category)
	if err != nil {
		return core.Totals{}, fmt.Errorf("total expenses: %w", err)
	}
	return t, nil
}

func (s *ExpenseService) Categories(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return nil, ledger.Unavailable("list categories", errors.New("no ledger store"))
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}
