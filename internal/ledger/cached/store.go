// Package cached decorates a ledger store with an LRU read cache. Any
// successful append purges every cached answer.
package cached

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"ledgerbot/internal/cache"
	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/log"
)

type Store struct {
	next       ledger.Store
	recent     *cache.LRUCache[[]core.Entry]
	totals     *cache.LRUCache[core.Totals]
	categories *cache.LRUCache[[]string]
	janitor    *cache.Janitor
	logger     *log.Logger

	// gen counts invalidations. A read only fills the cache when no
	// append finished while it was reading from next.
	mu  sync.Mutex
	gen uint64
}

var _ ledger.Store = (*Store)(nil)

const categoriesKey = "categories"

func New(next ledger.Store, size int, ttl time.Duration, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Store{
		next:       next,
		recent:     cache.NewLRUCache[[]core.Entry](size, ttl),
		totals:     cache.NewLRUCache[core.Totals](size, ttl),
		categories: cache.NewLRUCache[[]string](1, ttl),
		logger:     logger.WithComponent(log.ComponentCache),
	}
	s.janitor = cache.NewJanitor(func(removed int) {
		if removed > 0 {
			s.logger.Debug("Dropped expired cache entries", "removed", removed)
		}
	})
	s.janitor.Register(s.recent)
	s.janitor.Register(s.totals)
	s.janitor.Register(s.categories)
	return s
}

// StartSweeping drops expired entries every interval until Close.
func (s *Store) StartSweeping(interval time.Duration) {
	if interval > 0 {
		s.janitor.Start(interval)
	}
}

// Close stops the sweep. The decorated store is left open.
func (s *Store) Close() error {
	s.janitor.Stop()
	return nil
}

// Unwrap returns the decorated store.
func (s *Store) Unwrap() ledger.Store { return s.next }

func (s *Store) Append(ctx context.Context, e core.Expense) (core.Entry, error) {
	entry, err := s.next.Append(ctx, e)
	if err != nil {
		return core.Entry{}, err
	}
	s.Invalidate()
	return entry, nil
}

func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.recent.Purge()
	s.totals.Purge()
	s.categories.Purge()
}

func (s *Store) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fill runs set unless the cache was invalidated since gen was read.
func (s *Store) fill(gen uint64, set func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		set()
	}
}

func (s *Store) ListRecent(ctx context.Context, n int) ([]core.Entry, error) {
	key := strconv.Itoa(n)
	if v, ok := s.recent.Get(key); ok {
		s.logger.DebugContext(ctx, "Cache hit", log.FieldOperation, log.OpRecent, "key", key)
		return append([]core.Entry(nil), v...), nil
	}
	gen := s.generation()
	v, err := s.next.ListRecent(ctx, n)
	if err != nil {
		return nil, err
	}
	s.fill(gen, func() { s.recent.Set(key, append([]core.Entry(nil), v...)) })
	return v, nil
}

func (s *Store) SumByCategory(ctx context.Context, filter string) (core.Totals, error) {
	key := strings.ToLower(strings.TrimSpace(filter))
	if v, ok := s.totals.Get(key); ok {
		s.logger.DebugContext(ctx, "Cache hit", log.FieldOperation, log.OpTotal, "key", key)
		v.Filter = strings.TrimSpace(filter)
		return v, nil
	}
	gen := s.generation()
	v, err := s.next.SumByCategory(ctx, filter)
	if err != nil {
		return core.Totals{}, err
	}
	s.fill(gen, func() { s.totals.Set(key, v) })
	return v, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	if v, ok := s.categories.Get(categoriesKey); ok {
		return append([]string(nil), v...), nil
	}
	gen := s.generation()
	v, err := s.next.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.fill(gen, func() { s.categories.Set(categoriesKey, append([]string(nil), v...)) })
	return v, nil
}
