package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"flashbid/internal/adapter/memory"
	"flashbid/internal/core/port"
)

type guardFixture struct {
	guard     *InventoryGuard
	locks     *memory.LeaseLocks
	counters  *memory.StockCounters
	inventory *fakeInventoryRepo
	product   uuid.UUID
}

func newGuardFixture(remaining int64, cfg GuardConfig) *guardFixture {
	f := &guardFixture{
		locks:     memory.NewLeaseLocks(),
		counters:  memory.NewStockCounters(),
		inventory: newFakeInventoryRepo(),
		product:   uuid.New(),
	}
	f.inventory.set(f.product, remaining)
	f.guard = NewInventoryGuard(f.locks, f.counters, f.inventory, testLogger(), cfg)
	return f
}

func TestReserveUnitHappyPath(t *testing.T) {
	f := newGuardFixture(3, GuardConfig{})

	require.NoError(t, f.guard.ReserveUnit(context.Background(), f.product))

	remaining, _ := f.inventory.Remaining(context.Background(), f.product)
	require.EqualValues(t, 2, remaining)
	v, _ := f.counters.Value(f.product)
	require.EqualValues(t, 2, v, "fast counter tracks the durable row")
}

func TestReserveUnitInsufficientStock(t *testing.T) {
	f := newGuardFixture(0, GuardConfig{})

	err := f.guard.ReserveUnit(context.Background(), f.product)
	require.ErrorIs(t, err, port.ErrInsufficientStock)

	v, _ := f.counters.Value(f.product)
	require.EqualValues(t, 0, v, "refused reservation leaves the counter untouched")
}

func TestReserveUnitLockContention(t *testing.T) {
	f := newGuardFixture(1, GuardConfig{MaxAttempts: 1})

	_, ok := f.locks.Acquire(f.product, time.Minute)
	require.True(t, ok)

	err := f.guard.ReserveUnit(context.Background(), f.product)
	require.ErrorIs(t, err, port.ErrLockContention)

	remaining, _ := f.inventory.Remaining(context.Background(), f.product)
	require.EqualValues(t, 1, remaining, "contended attempt must not touch stock")
}

// The bounded retry recovers from a transient version conflict.
func TestReserveUnitRetriesConflict(t *testing.T) {
	f := newGuardFixture(1, GuardConfig{Backoff: time.Millisecond})
	f.inventory.reserveErrs = []error{port.ErrConcurrencyConflict}

	require.NoError(t, f.guard.ReserveUnit(context.Background(), f.product))
	remaining, _ := f.inventory.Remaining(context.Background(), f.product)
	require.EqualValues(t, 0, remaining)
	v, _ := f.counters.Value(f.product)
	require.EqualValues(t, 0, v)
}

// If the durable step fails after the fast decrement succeeded, the fast
// counter ends exactly where it started.
func TestReserveUnitRollbackNetZero(t *testing.T) {
	f := newGuardFixture(5, GuardConfig{MaxAttempts: 1})
	f.inventory.reserveErrs = []error{port.ErrConcurrencyConflict}

	err := f.guard.ReserveUnit(context.Background(), f.product)
	require.ErrorIs(t, err, port.ErrConcurrencyConflict)

	v, _ := f.counters.Value(f.product)
	require.EqualValues(t, 5, v, "counter must be compensated to its prior value")
	remaining, _ := f.inventory.Remaining(context.Background(), f.product)
	require.EqualValues(t, 5, remaining)
}

func TestReleaseUnit(t *testing.T) {
	f := newGuardFixture(2, GuardConfig{})

	require.NoError(t, f.guard.ReserveUnit(context.Background(), f.product))
	require.NoError(t, f.guard.ReleaseUnit(context.Background(), f.product))

	remaining, _ := f.inventory.Remaining(context.Background(), f.product)
	require.EqualValues(t, 2, remaining)
	v, _ := f.counters.Value(f.product)
	require.EqualValues(t, 2, v)
}

// Adversarial storm: far more reservation flows than units. Successes
// never exceed stock, the counter never goes negative, and the durable
// row agrees with the counter afterwards.
func TestReserveUnitConcurrentStorm(t *testing.T) {
	for _, stock := range []int64{5, 4} { // at quota and quota-1
		f := newGuardFixture(stock, GuardConfig{MaxAttempts: 20, Backoff: time.Microsecond})

		const workers = 40
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int64
		)
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				if err := f.guard.ReserveUnit(context.Background(), f.product); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.LessOrEqual(t, succeeded, stock, "oversell")
		remaining, _ := f.inventory.Remaining(context.Background(), f.product)
		require.EqualValues(t, stock-succeeded, remaining)
		require.GreaterOrEqual(t, remaining, int64(0), "remaining must never go negative")
		v, _ := f.counters.Value(f.product)
		require.Equal(t, remaining, v, "fast counter and durable row must agree at rest")
	}
}

// Exactly one of two concurrent flows wins the last unit.
func TestReserveUnitContentionAtBoundary(t *testing.T) {
	f := newGuardFixture(1, GuardConfig{MaxAttempts: 50, Backoff: time.Millisecond})

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			errs <- f.guard.ReserveUnit(context.Background(), f.product)
		}()
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		if err == nil {
			wins++
		} else {
			losses++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, losses)

	remaining, _ := f.inventory.Remaining(context.Background(), f.product)
	require.EqualValues(t, 0, remaining)
}
