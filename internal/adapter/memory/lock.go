package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// LeaseLocks is the in-process mutual-exclusion layer of the reservation
// pipeline: one lease per product, held for a bounded TTL so a crashed
// holder cannot block others permanently. Acquire fails fast instead of
// blocking; the owner token prevents a late holder from releasing a lease
// it no longer owns.
type LeaseLocks struct {
	mu    sync.Mutex
	held  map[uuid.UUID]lease
	clock func() time.Time
}

type lease struct {
	owner   uuid.UUID
	expires time.Time
}

// NewLeaseLocks returns an empty lock table.
func NewLeaseLocks() *LeaseLocks {
	return &LeaseLocks{held: make(map[uuid.UUID]lease), clock: time.Now}
}

// Acquire takes the product lease for at most ttl. ok=false means the
// lease is currently held by someone else.
func (l *LeaseLocks) Acquire(productID uuid.UUID, ttl time.Duration) (uuid.UUID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if cur, ok := l.held[productID]; ok && now.Before(cur.expires) {
		return uuid.Nil, false
	}
	owner := uuid.New()
	l.held[productID] = lease{owner: owner, expires: now.Add(ttl)}
	return owner, true
}

// Release frees the lease only when owner still holds it. A lease that
// expired and was re-acquired by another owner is left untouched.
func (l *LeaseLocks) Release(productID, owner uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.held[productID]
	if !ok || cur.owner != owner {
		return false
	}
	delete(l.held, productID)
	return true
}
