package port

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RankEntry is one row of a descending ranking. Rank 1 is the highest
// score; ties are broken by earliest original submission order.
type RankEntry struct {
	Rank     int             `json:"rank"`
	BidderID uuid.UUID       `json:"bidder_id"`
	Score    decimal.Decimal `json:"score"`
	Price    decimal.Decimal `json:"price"`
}

// RankingStats aggregates a campaign's live ranking. MaxScore and
// MinWinningScore are nil while the campaign has no (or fewer than K)
// participants.
type RankingStats struct {
	TotalParticipants int
	MaxScore          *decimal.Decimal
	MinWinningScore   *decimal.Decimal
}

// RankingIndex is the per-campaign order-statistic projection of the bid
// ledger. It is eventually consistent with the ledger; settlement reads a
// single consistent top-K at close time. All methods are safe for
// concurrent use.
type RankingIndex interface {
	// Update inserts or replaces the bidder's entry. A resubmission keeps
	// the bidder's original insertion order for tie-breaks. submissions is
	// the ledger's submission count for this write; an update carrying a
	// lower count than the entry already present is stale and ignored, so
	// the projection converges even when concurrent resubmissions reach
	// the index out of ledger-commit order.
	Update(campaignID, bidderID uuid.UUID, score, price decimal.Decimal, submissions int)
	// RankOf returns the bidder's descending 1-based rank, or false when
	// the bidder is unranked.
	RankOf(campaignID, bidderID uuid.UUID) (int, bool)
	// TopK returns the k highest entries in descending order.
	TopK(campaignID uuid.UUID, k int) []RankEntry
	// Size returns the number of distinct bidders in the campaign.
	Size(campaignID uuid.UUID) int
	// Stats returns aggregate ranking statistics for a quota of k.
	Stats(campaignID uuid.UUID, k int) RankingStats
}
