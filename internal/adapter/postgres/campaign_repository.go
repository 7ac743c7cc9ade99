package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashbid/internal/core/domain"
	"flashbid/internal/core/port"
)

// CampaignRepository implements port.CampaignRepository. Status
// transitions are conditional single-statement updates so that concurrent
// scheduler instances race safely: exactly one observes rows affected.
type CampaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository returns a new repository instance.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

const campaignJoin = `
        SELECT
            c.campaign_id, c.product_id, c.name, c.start_time, c.end_time,
            c.alpha, c.beta, c.gamma, c.status, c.created_at,
            p.product_id, p.name, p.quota, p.remaining, p.min_price,
            p.version, p.created_at, p.updated_at
        FROM campaigns c
        JOIN products p ON p.product_id = c.product_id`

// Get returns the campaign with its product joined, or ErrCampaignNotFound.
func (r *CampaignRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	row := r.pool.QueryRow(ctx, campaignJoin+` WHERE c.campaign_id = $1`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrCampaignNotFound
	}
	return c, err
}

// List returns campaigns ordered by start time, newest first.
func (r *CampaignRepository) List(ctx context.Context, limit, offset int) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx,
		campaignJoin+` ORDER BY c.start_time DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		c, err := scanCampaign(row)
		if err != nil {
			return domain.Campaign{}, err
		}
		return *c, nil
	})
}

// ActivateDue flips pending campaigns whose start time has passed.
func (r *CampaignRepository) ActivateDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET status = $1 WHERE status = $2 AND start_time <= $3`,
		domain.StatusActive, domain.StatusPending, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DueForSettlement returns campaigns past their end time that still need
// settlement. Closing campaigns are included so that a run interrupted by
// a crash is resumed on a later tick; every settlement step is idempotent,
// so a duplicate resume is harmless.
func (r *CampaignRepository) DueForSettlement(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx,
		campaignJoin+` WHERE c.end_time <= $1 AND c.status IN ($2, $3) ORDER BY c.end_time`,
		now, domain.StatusActive, domain.StatusClosing)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		c, err := scanCampaign(row)
		if err != nil {
			return domain.Campaign{}, err
		}
		return *c, nil
	})
}

// ClaimClosing atomically transitions active -> closing. false means
// another instance won the transition (or the campaign already moved on).
func (r *CampaignRepository) ClaimClosing(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET status = $1 WHERE campaign_id = $2 AND status = $3`,
		domain.StatusClosing, id, domain.StatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkSettled transitions closing -> settled.
func (r *CampaignRepository) MarkSettled(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET status = $1 WHERE campaign_id = $2 AND status = $3`,
		domain.StatusSettled, id, domain.StatusClosing)
	return err
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	var p domain.Product
	err := row.Scan(
		&c.ID, &c.ProductID, &c.Name, &c.StartTime, &c.EndTime,
		&c.Coeffs.Alpha, &c.Coeffs.Beta, &c.Coeffs.Gamma, &c.Status, &c.CreatedAt,
		&p.ID, &p.Name, &p.Quota, &p.Remaining, &p.MinPrice,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Product = &p
	return &c, nil
}
