package memory

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// StockCounters is the fast-path unit counter in front of the durable
// store. Decrement is a CAS loop so the check and the write are one
// indivisible step: the counter never goes below zero and no partial
// decrement is observable.
type StockCounters struct {
	mu     sync.RWMutex
	counts map[uuid.UUID]*int64
}

// NewStockCounters returns an empty counter table.
func NewStockCounters() *StockCounters {
	return &StockCounters{counts: make(map[uuid.UUID]*int64)}
}

// SeedIfAbsent initializes the product counter from the durable value.
// A counter that already exists is left alone.
func (s *StockCounters) SeedIfAbsent(productID uuid.UUID, remaining int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counts[productID]; !ok {
		v := remaining
		s.counts[productID] = &v
	}
}

// Known reports whether the product counter has been seeded.
func (s *StockCounters) Known(productID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.counts[productID]
	return ok
}

// Decrement atomically takes one unit. ok=false means the counter was
// below one (or unseeded) and nothing was changed.
func (s *StockCounters) Decrement(productID uuid.UUID) (int64, bool) {
	s.mu.RLock()
	p, ok := s.counts[productID]
	s.mu.RUnlock()
	if !ok {
		return 0, false
	}
	for {
		cur := atomic.LoadInt64(p)
		if cur < 1 {
			return cur, false
		}
		if atomic.CompareAndSwapInt64(p, cur, cur-1) {
			return cur - 1, true
		}
	}
}

// Increment gives one unit back. Used by the rollback and release paths.
func (s *StockCounters) Increment(productID uuid.UUID) int64 {
	s.mu.RLock()
	p, ok := s.counts[productID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.AddInt64(p, 1)
}

// Value returns the current counter, or false when unseeded.
func (s *StockCounters) Value(productID uuid.UUID) (int64, bool) {
	s.mu.RLock()
	p, ok := s.counts[productID]
	s.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return atomic.LoadInt64(p), true
}
