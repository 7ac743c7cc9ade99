package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashbid/internal/core/domain"
	"flashbid/internal/core/port"
)

// BidRepository implements port.BidRepository using pgxpool for PostgreSQL.
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository returns a new repository instance.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

const bidColumns = `bid_id, campaign_id, bidder_id, product_id, price, score, elapsed_ms, submission_count, created_at, updated_at`

// Upsert records a submission as a single insert-or-overwrite statement.
// The unique (campaign_id, bidder_id) constraint routes concurrent
// resubmissions into the DO UPDATE arm, so the pair never holds two rows
// and the submission counter never loses an increment.
func (r *BidRepository) Upsert(ctx context.Context, up port.BidUpsert) (*domain.Bid, error) {
	query := `
        INSERT INTO bids (bid_id, campaign_id, bidder_id, product_id, price, score, elapsed_ms, submission_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 1, now(), now())
        ON CONFLICT (campaign_id, bidder_id) DO UPDATE SET
            price = EXCLUDED.price,
            score = EXCLUDED.score,
            elapsed_ms = EXCLUDED.elapsed_ms,
            submission_count = bids.submission_count + 1,
            updated_at = now()
        RETURNING ` + bidColumns
	row := r.pool.QueryRow(ctx, query,
		uuid.New(), up.CampaignID, up.BidderID, up.ProductID, up.Price, up.Score, up.ElapsedMs)
	return scanBid(row)
}

// Find returns the live bid for (campaign, bidder), or nil when absent.
func (r *BidRepository) Find(ctx context.Context, campaignID, bidderID uuid.UUID) (*domain.Bid, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE campaign_id = $1 AND bidder_id = $2`,
		campaignID, bidderID)
	b, err := scanBid(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// ListByCampaign returns every live bid of a campaign ordered by score
// descending, earliest update first among equals. Feeding the rows to the
// ranking index in this order reproduces its tie-break.
func (r *BidRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Bid, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE campaign_id = $1 ORDER BY score DESC, updated_at`,
		campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Bid, error) {
		b, err := scanBid(row)
		if err != nil {
			return domain.Bid{}, err
		}
		return *b, nil
	})
}

// CountByCampaign returns the number of distinct bidders in a campaign.
func (r *BidRepository) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM bids WHERE campaign_id = $1`, campaignID).Scan(&n)
	return n, err
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var b domain.Bid
	err := row.Scan(
		&b.ID,
		&b.CampaignID,
		&b.BidderID,
		&b.ProductID,
		&b.Price,
		&b.Score,
		&b.ElapsedMs,
		&b.SubmissionCount,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
