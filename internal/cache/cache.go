// Package cache holds the generic read cache placed in front of slow ledger
// backends such as Google Sheets.
package cache

import (
	"sync"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	// Purge drops every entry, e.g. after a write invalidates all reads.
	Purge()
	Size() int
	Cleaner
}

// Stats counts lookups since the cache was created.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically drops expired entries from registered caches, so
// keys that are never read again do not sit in memory until evicted.
type Janitor struct {
	mu       sync.Mutex
	caches   []Cleaner
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
	onSweep  func(removed int)
}

// NewJanitor creates a janitor; onSweep, when not nil, is told how many
// entries each sweep removed.
func NewJanitor(onSweep func(removed int)) *Janitor {
	return &Janitor{
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		onSweep: onSweep,
	}
}

// Register adds a cache to the sweep.
func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Sweep cleans every registered cache once and returns the entries removed.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	removed := 0
	for _, c := range caches {
		removed += c.CleanExpired()
	}
	if j.onSweep != nil {
		j.onSweep(removed)
	}
	return removed
}

// Start sweeps every interval until Stop is called.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started {
		return
	}
	j.started = true
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.Sweep()
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep loop started by Start and waits for it. Calling Stop
// on a janitor that was never started is allowed.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stop)
		j.mu.Lock()
		started := j.started
		j.mu.Unlock()
		if started {
			<-j.done
		}
	})
}
