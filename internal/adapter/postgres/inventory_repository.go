package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashbid/internal/core/port"
)

// InventoryRepository implements port.InventoryRepository: the durable
// layers of the reservation pipeline (row lock plus optimistic version
// guard) against the products table.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns a new repository instance.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// Reserve decrements one unit inside a transaction. The SELECT FOR UPDATE
// serializes reservation flows on the row; the conditional UPDATE keyed on
// the version read under the lock is the backstop against any flow that
// slipped past the outer controls.
func (r *InventoryRepository) Reserve(ctx context.Context, productID uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var remaining int64
	var version int64
	err = tx.QueryRow(ctx,
		`SELECT remaining, version FROM products WHERE product_id = $1 FOR UPDATE`,
		productID).Scan(&remaining, &version)
	if err != nil {
		return fmt.Errorf("lock product %s: %w", productID, err)
	}
	if remaining < 1 {
		err = port.ErrInsufficientStock
		return err
	}

	tag, execErr := tx.Exec(ctx,
		`UPDATE products
            SET remaining = remaining - 1, version = version + 1, updated_at = now()
          WHERE product_id = $1 AND version = $2 AND remaining >= 1`,
		productID, version)
	if execErr != nil {
		err = execErr
		return err
	}
	if tag.RowsAffected() == 0 {
		err = port.ErrConcurrencyConflict
		return err
	}
	return nil
}

// Release gives one unit back after a failed downstream step. It bumps the
// version so optimistic readers see the row moved.
func (r *InventoryRepository) Release(ctx context.Context, productID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products
            SET remaining = remaining + 1, version = version + 1, updated_at = now()
          WHERE product_id = $1`,
		productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("release: product %s not found", productID)
	}
	return nil
}

// Remaining reads the durable remaining counter.
func (r *InventoryRepository) Remaining(ctx context.Context, productID uuid.UUID) (int64, error) {
	var remaining int64
	err := r.pool.QueryRow(ctx,
		`SELECT remaining FROM products WHERE product_id = $1`, productID).Scan(&remaining)
	return remaining, err
}
