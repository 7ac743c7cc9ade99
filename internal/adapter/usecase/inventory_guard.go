package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"flashbid/internal/core/port"
)

// GuardConfig bounds the reservation pipeline.
type GuardConfig struct {
	// LockTTL is the lease duration of the product lock.
	LockTTL time.Duration
	// MaxAttempts bounds retries of the whole pipeline on transient
	// failures (lock contention, version conflict).
	MaxAttempts int
	// Backoff is the base delay between attempts; it grows linearly.
	Backoff time.Duration
}

// InventoryGuard converts "presumptive winner" into "one unit durably
// reserved" through four narrowing layers: the product lease lock, the
// fast counter decrement, and the transactional row lock plus optimistic
// version guard inside the repository. A failure past the fast decrement
// compensates the counter before the lease is released.
type InventoryGuard struct {
	locks     port.ProductLocker
	counters  port.StockCounter
	inventory port.InventoryRepository
	logger    *slog.Logger
	cfg       GuardConfig
}

// NewInventoryGuard creates the guard. Zero config fields fall back to
// conservative defaults.
func NewInventoryGuard(
	locks port.ProductLocker,
	counters port.StockCounter,
	inventory port.InventoryRepository,
	logger *slog.Logger,
	cfg GuardConfig,
) *InventoryGuard {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 50 * time.Millisecond
	}
	return &InventoryGuard{
		locks:     locks,
		counters:  counters,
		inventory: inventory,
		logger:    logger,
		cfg:       cfg,
	}
}

// ReserveUnit runs the pipeline with bounded internal retries. Transient
// outcomes restart from the lock layer; ErrInsufficientStock is terminal
// and returned immediately.
func (g *InventoryGuard) ReserveUnit(ctx context.Context, productID uuid.UUID) error {
	var err error
	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.cfg.Backoff * time.Duration(attempt)):
			}
		}
		err = g.reserveOnce(ctx, productID)
		if err == nil || !transient(err) {
			return err
		}
		g.logger.Debug("reservation retry",
			slog.String("product_id", productID.String()),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}
	return err
}

func (g *InventoryGuard) reserveOnce(ctx context.Context, productID uuid.UUID) error {
	// layer 1: lease lock, fail fast on contention
	owner, ok := g.locks.Acquire(productID, g.cfg.LockTTL)
	if !ok {
		return port.ErrLockContention
	}
	defer g.locks.Release(productID, owner)

	// layer 2: fast counter, seeded lazily from the durable row
	if !g.counters.Known(productID) {
		remaining, err := g.inventory.Remaining(ctx, productID)
		if err != nil {
			return err
		}
		g.counters.SeedIfAbsent(productID, remaining)
	}
	if _, ok := g.counters.Decrement(productID); !ok {
		return port.ErrInsufficientStock
	}

	// layers 3+4: durable row lock and version-guarded decrement. Any
	// failure here compensates the fast counter before the lease goes.
	if err := g.inventory.Reserve(ctx, productID); err != nil {
		g.counters.Increment(productID)
		return err
	}
	return nil
}

// ReleaseUnit compensates a committed reservation after a downstream
// failure. The durable row is restored first; the fast counter follows.
func (g *InventoryGuard) ReleaseUnit(ctx context.Context, productID uuid.UUID) error {
	if err := g.inventory.Release(ctx, productID); err != nil {
		return err
	}
	g.counters.Increment(productID)
	return nil
}

func transient(err error) bool {
	return errors.Is(err, port.ErrLockContention) || errors.Is(err, port.ErrConcurrencyConflict)
}
