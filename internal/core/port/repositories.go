package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flashbid/internal/core/domain"
)

// BidUpsert carries the values of a single submission into the ledger.
type BidUpsert struct {
	CampaignID uuid.UUID
	BidderID   uuid.UUID
	ProductID  uuid.UUID
	Price      decimal.Decimal
	Score      decimal.Decimal
	ElapsedMs  int64
}

// BidRepository is the durable bid ledger: at most one live row per
// (campaign, bidder). Implementations must make Upsert a single atomic
// insert-or-overwrite so concurrent resubmissions never produce two rows
// nor lose a write.
type BidRepository interface {
	// Upsert inserts the bid or overwrites the existing row for the same
	// (campaign, bidder), bumping its submission count. It returns the
	// row as committed.
	Upsert(ctx context.Context, up BidUpsert) (*domain.Bid, error)
	// Find returns the live bid for (campaign, bidder), or nil when the
	// bidder has not bid.
	Find(ctx context.Context, campaignID, bidderID uuid.UUID) (*domain.Bid, error)
	// ListByCampaign returns every live bid of a campaign ordered by
	// score descending, earliest update first among equals. It feeds
	// ranking index rebuilds after a restart.
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Bid, error)
	// CountByCampaign returns the number of distinct bidders in a campaign.
	CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error)
}

// CampaignRepository reads campaign parameters and drives the monotonic
// status transitions. All transitions are conditional updates so that
// concurrent scheduler instances cannot both win one.
type CampaignRepository interface {
	// Get returns the campaign with its product joined.
	Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	// List returns campaigns ordered by start time, newest first.
	List(ctx context.Context, limit, offset int) ([]domain.Campaign, error)
	// ActivateDue flips pending campaigns whose start time has passed to
	// active and returns how many were flipped.
	ActivateDue(ctx context.Context, now time.Time) (int64, error)
	// DueForSettlement returns campaigns past their end time that are
	// still active, plus closing campaigns left behind by a crashed
	// settlement run.
	DueForSettlement(ctx context.Context, now time.Time) ([]domain.Campaign, error)
	// ClaimClosing atomically transitions active -> closing. It returns
	// false when another instance already owns the transition.
	ClaimClosing(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkSettled transitions closing -> settled.
	MarkSettled(ctx context.Context, id uuid.UUID) error
}

// InventoryRepository is the durable side of the reservation pipeline.
type InventoryRepository interface {
	// Reserve decrements one unit inside a transaction holding a row lock,
	// conditioned on the row version read under the lock. It returns
	// ErrInsufficientStock when no unit remains and ErrConcurrencyConflict
	// when the version moved.
	Reserve(ctx context.Context, productID uuid.UUID) error
	// Release undoes a committed reservation (compensation only).
	Release(ctx context.Context, productID uuid.UUID) error
	// Remaining reads the durable remaining counter.
	Remaining(ctx context.Context, productID uuid.UUID) (int64, error)
}

// AwardRepository stores settlement results. Create is idempotent on
// (campaign, bidder) so a retried settlement never double-awards.
type AwardRepository interface {
	// Create inserts the award. It returns false without error when an
	// award for the same (campaign, bidder) already exists.
	Create(ctx context.Context, a *domain.Award) (bool, error)
	// ListByCampaign returns awards ordered by final rank.
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Award, error)
	// CountByCampaign returns the number of awards for a campaign.
	CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error)
}
