// Package memory provides an in-process ledger store, used by tests and when
// DATA_BACKEND=memory.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
)

type Store struct {
	mu      sync.RWMutex
	entries []core.Entry
	now     func() time.Time
	seq     int
}

var _ ledger.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{now: time.Now}
}

// NewStoreWithClock is NewStore with a fixed RecordedAt source.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

func (s *Store) Append(ctx context.Context, e core.Expense) (core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return core.Entry{}, ledger.Unavailable("append", err)
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, ledger.Failed("append", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry := core.Entry{Expense: e, RecordedAt: s.now().UTC(), Ref: "mem:" + strconv.Itoa(s.seq)}
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *Store) ListRecent(ctx context.Context, n int) ([]core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.Unavailable("list recent", err)
	}
	if n <= 0 {
		return []core.Entry{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]core.Entry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *Store) SumByCategory(ctx context.Context, filter string) (core.Totals, error) {
	if err := ctx.Err(); err != nil {
		return core.Totals{}, ledger.Unavailable("sum by category", err)
	}
	return core.Summarize(s.snapshot(), filter), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.Unavailable("list categories", err)
	}
	return core.DistinctCategories(s.snapshot()), nil
}

// Len reports how many records have been appended.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) snapshot() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Expense
	}
	return out
}
