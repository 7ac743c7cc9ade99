package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashbid/internal/core/domain"
)

// AwardRepository implements port.AwardRepository.
type AwardRepository struct {
	pool *pgxpool.Pool
}

// NewAwardRepository returns a new repository instance.
func NewAwardRepository(pool *pgxpool.Pool) *AwardRepository {
	return &AwardRepository{pool: pool}
}

// Create inserts the award. The unique (campaign_id, bidder_id) constraint
// plus DO NOTHING makes a retried settlement a no-op: false is returned
// when the bidder was already awarded.
func (r *AwardRepository) Create(ctx context.Context, a *domain.Award) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO awards (award_id, campaign_id, bidder_id, product_id, final_price, final_score, final_rank, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, now())
         ON CONFLICT (campaign_id, bidder_id) DO NOTHING`,
		a.ID, a.CampaignID, a.BidderID, a.ProductID, a.FinalPrice, a.FinalScore, a.FinalRank)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListByCampaign returns awards ordered by final rank.
func (r *AwardRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Award, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT award_id, campaign_id, bidder_id, product_id, final_price, final_score, final_rank, created_at
           FROM awards WHERE campaign_id = $1 ORDER BY final_rank`,
		campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Award, error) {
		var a domain.Award
		err := row.Scan(&a.ID, &a.CampaignID, &a.BidderID, &a.ProductID,
			&a.FinalPrice, &a.FinalScore, &a.FinalRank, &a.CreatedAt)
		return a, err
	})
}

// CountByCampaign returns the number of awards for a campaign.
func (r *AwardRepository) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM awards WHERE campaign_id = $1`, campaignID).Scan(&n)
	return n, err
}
