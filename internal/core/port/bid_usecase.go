package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flashbid/internal/core/domain"
)

// BidUseCase is the primary port into the engine: bid ingestion plus the
// read-side queries the HTTP layer exposes.
type BidUseCase interface {
	// SubmitBid validates, scores and durably records a bid, then returns
	// the bidder's freshly computed rank. Errors: ErrCampaignNotFound,
	// ErrCampaignNotActive, ErrPriceTooLow.
	SubmitBid(ctx context.Context, campaignID uuid.UUID, bidder domain.Bidder, price decimal.Decimal) (*BidReceipt, error)

	// MyBid returns the bidder's live bid, or nil when they have not bid.
	MyBid(ctx context.Context, campaignID, bidderID uuid.UUID) (*domain.Bid, error)

	// MyRank returns the bidder's current standing, including whether the
	// rank currently falls inside the quota.
	MyRank(ctx context.Context, campaignID, bidderID uuid.UUID) (*RankStatus, error)

	// TopK returns the k highest-ranked entries of a campaign.
	TopK(ctx context.Context, campaignID uuid.UUID, k int) ([]RankEntry, error)

	// Snapshot builds the periodic ranking snapshot for the notifier.
	// ok=false when the campaign is unknown.
	Snapshot(ctx context.Context, campaignID uuid.UUID) (RankingSnapshot, bool)

	// Campaign returns a campaign with its product.
	Campaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)

	// Campaigns lists campaigns, newest first.
	Campaigns(ctx context.Context, limit, offset int) ([]domain.Campaign, error)

	// Awards lists a campaign's awards in rank order.
	Awards(ctx context.Context, campaignID uuid.UUID) ([]domain.Award, error)
}

// BidReceipt is returned to the bidder after a recorded submission. Rank
// is a point-in-time snapshot and may be stale by the time it is read.
type BidReceipt struct {
	BidID           uuid.UUID       `json:"bid_id"`
	Price           decimal.Decimal `json:"price"`
	Score           decimal.Decimal `json:"score"`
	Rank            int             `json:"rank"`
	ElapsedMs       int64           `json:"elapsed_ms"`
	SubmissionCount int             `json:"submission_count"`
}

// RankStatus describes a bidder's current standing in a campaign.
type RankStatus struct {
	Rank              int              `json:"rank"`
	Ranked            bool             `json:"ranked"`
	Score             *decimal.Decimal `json:"score,omitempty"`
	IsWinning         bool             `json:"is_winning"`
	TotalParticipants int              `json:"total_participants"`
}
