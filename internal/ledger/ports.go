// Package ledger defines the store contract the expense service writes to and
// answers queries from, along with the typed errors stores return.
package ledger

import (
	"context"

	"ledgerbot/internal/core"
)

// Ports for outbound adapters.
type (
	ExpenseWriter interface {
		// Append persists one record, stamping it with the append time. The
		// returned entry carries the reference and timestamp as stored.
		Append(ctx context.Context, e core.Expense) (core.Entry, error)
	}

	RecentLister interface {
		// ListRecent returns up to n entries, newest append first.
		ListRecent(ctx context.Context, n int) ([]core.Entry, error)
	}

	Totaler interface {
		// SumByCategory totals records whose category matches filter
		// case-insensitively (all records when filter is empty). The
		// per-category breakdown always covers every record.
		SumByCategory(ctx context.Context, filter string) (core.Totals, error)
	}

	CategoryLister interface {
		// ListCategories returns the sorted distinct non-empty categories.
		ListCategories(ctx context.Context) ([]string, error)
	}

	// Store is everything the expense service needs from a backend.
	Store interface {
		ExpenseWriter
		RecentLister
		Totaler
		CategoryLister
	}
)

// Pinger is implemented by stores that can check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks s, or the store it decorates, when that store is a Pinger.
// Stores with nothing to check are always ready.
func Ping(ctx context.Context, s Store) error {
	for s != nil {
		if p, ok := s.(Pinger); ok {
			return p.Ping(ctx)
		}
		u, ok := s.(interface{ Unwrap() Store })
		if !ok {
			return nil
		}
		s = u.Unwrap()
	}
	return nil
}
