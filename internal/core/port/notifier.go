package port

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidAccepted is the targeted confirmation pushed to a bidder right after
// their submission is recorded.
type BidAccepted struct {
	BidID     uuid.UUID       `json:"bid_id"`
	Price     decimal.Decimal `json:"price"`
	Score     decimal.Decimal `json:"score"`
	Rank      int             `json:"rank"`
	ElapsedMs int64           `json:"elapsed_ms"`
	Timestamp time.Time       `json:"timestamp"`
}

// RankingSnapshot is the periodic fan-out of a campaign's live ranking.
type RankingSnapshot struct {
	TopK              []RankEntry      `json:"top_k"`
	TotalParticipants int              `json:"total_participants"`
	MinWinningScore   *decimal.Decimal `json:"min_winning_score"`
	MaxScore          *decimal.Decimal `json:"max_score"`
	Timestamp         time.Time        `json:"timestamp"`
}

// FinalResult is one bidder's outcome in the end-of-campaign broadcast.
type FinalResult struct {
	FinalRank  int             `json:"final_rank"`
	FinalScore decimal.Decimal `json:"final_score"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// Notifier fans out ranking snapshots and per-bidder confirmations.
// Delivery is best-effort and at-most-once per tick; implementations must
// never block the caller on a slow subscriber.
type Notifier interface {
	// BidAccepted delivers the confirmation to the submitting bidder only.
	BidAccepted(campaignID, bidderID uuid.UUID, ev BidAccepted)
	// BroadcastSnapshot pushes the snapshot to every campaign subscriber.
	BroadcastSnapshot(campaignID uuid.UUID, snap RankingSnapshot)
	// CampaignEnded tells every subscriber whether they won. winners maps
	// bidder id to their final result.
	CampaignEnded(campaignID uuid.UUID, winners map[uuid.UUID]FinalResult)
}
