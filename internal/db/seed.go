package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Seed inserts demo data for local runs: three products and three
// campaigns in different lifecycle stages. Inserts are idempotent, so
// repeated startups with seeding enabled do not duplicate rows.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	now := time.Now().UTC()

	products := []struct {
		id       uuid.UUID
		name     string
		quota    int
		minPrice decimal.Decimal
	}{
		{uuid.MustParse("a1000000-0000-0000-0000-000000000001"), "Limited sneaker drop", 100, decimal.RequireFromString("99.90")},
		{uuid.MustParse("a1000000-0000-0000-0000-000000000002"), "Concert front row", 10, decimal.RequireFromString("250")},
		{uuid.MustParse("a1000000-0000-0000-0000-000000000003"), "Signed vinyl", 25, decimal.RequireFromString("49.50")},
	}
	for _, p := range products {
		_, err := pool.Exec(ctx, `INSERT INTO products
    (product_id, name, quota, remaining, min_price, version, created_at, updated_at)
VALUES ($1, $2, $3, $3, $4, 0, now(), now()) ON CONFLICT DO NOTHING`,
			p.id, p.name, p.quota, p.minPrice)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.name, err)
		}
	}

	campaigns := []struct {
		id        uuid.UUID
		productID uuid.UUID
		name      string
		start     time.Time
		end       time.Time
		status    string
	}{
		{
			id:        uuid.MustParse("c1000000-0000-0000-0000-000000000001"),
			productID: products[0].id,
			name:      "Sneaker flash sale",
			start:     now.Add(-time.Minute),
			end:       now.Add(time.Hour),
			status:    "active",
		},
		{
			id:        uuid.MustParse("c1000000-0000-0000-0000-000000000002"),
			productID: products[1].id,
			name:      "Front row auction",
			start:     now.Add(30 * time.Minute),
			end:       now.Add(90 * time.Minute),
			status:    "pending",
		},
		{
			id:        uuid.MustParse("c1000000-0000-0000-0000-000000000003"),
			productID: products[2].id,
			name:      "Vinyl drop",
			start:     now.Add(-time.Minute),
			end:       now.Add(15 * time.Minute),
			status:    "active",
		},
	}
	for _, c := range campaigns {
		_, err := pool.Exec(ctx, `INSERT INTO campaigns
    (campaign_id, product_id, name, start_time, end_time, alpha, beta, gamma, status, created_at)
VALUES ($1, $2, $3, $4, $5, 1, 100000, 2, $6, now()) ON CONFLICT DO NOTHING`,
			c.id, c.productID, c.name, c.start, c.end, c.status)
		if err != nil {
			return fmt.Errorf("seed campaign %s: %w", c.name, err)
		}
	}
	return nil
}
