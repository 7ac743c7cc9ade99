package port

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductLocker is the mutual-exclusion layer of the reservation pipeline.
// Leases are time-bounded so a crashed holder cannot block others forever.
type ProductLocker interface {
	// Acquire takes the product lease for at most ttl. It fails fast
	// (ok=false) when the lease is held; it never blocks.
	Acquire(productID uuid.UUID, ttl time.Duration) (owner uuid.UUID, ok bool)
	// Release frees the lease if owner still holds it.
	Release(productID, owner uuid.UUID) bool
}

// StockCounter is the fast-path unit counter, a cheap rejection layer in
// front of the durable store. Decrement is a single indivisible
// read-check-write: no interleaving observes a partial decrement.
type StockCounter interface {
	// SeedIfAbsent initializes the counter from the durable value. Later
	// calls for the same product are no-ops.
	SeedIfAbsent(productID uuid.UUID, remaining int64)
	// Known reports whether the counter has been seeded.
	Known(productID uuid.UUID) bool
	// Decrement atomically takes one unit. ok=false means the counter was
	// below one and was left untouched.
	Decrement(productID uuid.UUID) (remaining int64, ok bool)
	// Increment gives one unit back (rollback and release paths).
	Increment(productID uuid.UUID) int64
	// Value returns the current counter, or false when unseeded.
	Value(productID uuid.UUID) (int64, bool)
}

// UnitReserver converts a presumptive winner into one durably reserved
// unit. ReleaseUnit compensates a successful reservation when the
// downstream award write fails.
type UnitReserver interface {
	ReserveUnit(ctx context.Context, productID uuid.UUID) error
	ReleaseUnit(ctx context.Context, productID uuid.UUID) error
}
