package ledger

import (
	"context"
	"errors"

	"ledgerbot/internal/core"
)

// Offline stands in for a backend that failed to initialise. Every call
// fails with ErrUnavailable so the bot can still answer users.
type Offline struct {
	Cause error
}

var _ Store = Offline{}

func (o Offline) err(op string) error {
	cause := o.Cause
	if cause == nil {
		cause = errors.New("no ledger backend configured")
	}
	return Unavailable(op, cause)
}

func (o Offline) Append(context.Context, core.Expense) (core.Entry, error) {
	return core.Entry{}, o.err("append")
}

func (o Offline) ListRecent(context.Context, int) ([]core.Entry, error) {
	return nil, o.err("list recent")
}

func (o Offline) SumByCategory(context.Context, string) (core.Totals, error) {
	return core.Totals{}, o.err("sum by category")
}

func (o Offline) ListCategories(context.Context) ([]string, error) {
	return nil, o.err("list categories")
}

func (o Offline) Ping(context.Context) error {
	return o.err("ping")
}
