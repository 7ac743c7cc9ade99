package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flashbid/internal/core/domain"
	"flashbid/internal/core/port"
)

// BidEngine implements port.BidUseCase: bid ingestion through the ledger
// and ranking index, plus the read-side queries. The ledger write is the
// durable source of truth; the index is a derived projection updated right
// after the write commits.
type BidEngine struct {
	campaigns port.CampaignRepository
	bids      port.BidRepository
	awards    port.AwardRepository
	index     port.RankingIndex
	notifier  port.Notifier
	logger    *slog.Logger

	clock func() time.Time
}

// NewBidEngine creates the engine with the provided collaborators.
func NewBidEngine(
	campaigns port.CampaignRepository,
	bids port.BidRepository,
	awards port.AwardRepository,
	index port.RankingIndex,
	notifier port.Notifier,
	logger *slog.Logger,
) *BidEngine {
	return &BidEngine{
		campaigns: campaigns,
		bids:      bids,
		awards:    awards,
		index:     index,
		notifier:  notifier,
		logger:    logger,
		clock:     time.Now,
	}
}

// SubmitBid validates the submission, computes the score against the
// current instant and records it. A resubmission overwrites the previous
// bid; elapsed time is measured against this submission, not the first.
func (e *BidEngine) SubmitBid(ctx context.Context, campaignID uuid.UUID, bidder domain.Bidder, price decimal.Decimal) (*port.BidReceipt, error) {
	c, err := e.campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	now := e.clock()
	if !c.AcceptsBids(now) {
		return nil, port.ErrCampaignNotActive
	}
	if price.LessThan(c.Product.MinPrice) {
		return nil, port.ErrPriceTooLow
	}

	elapsed := now.Sub(c.StartTime).Milliseconds()
	if elapsed < 0 {
		// clock skew between scheduler activation and bid arrival
		elapsed = 0
	}
	score := domain.Score(price, elapsed, bidder.Weight, c.Coeffs)

	bid, err := e.bids.Upsert(ctx, port.BidUpsert{
		CampaignID: campaignID,
		BidderID:   bidder.ID,
		ProductID:  c.ProductID,
		Price:      price,
		Score:      score,
		ElapsedMs:  elapsed,
	})
	if err != nil {
		return nil, err
	}

	e.index.Update(campaignID, bidder.ID, bid.Score, bid.Price, bid.SubmissionCount)
	rank, _ := e.index.RankOf(campaignID, bidder.ID)

	receipt := &port.BidReceipt{
		BidID:           bid.ID,
		Price:           bid.Price,
		Score:           bid.Score,
		Rank:            rank,
		ElapsedMs:       bid.ElapsedMs,
		SubmissionCount: bid.SubmissionCount,
	}
	e.notifier.BidAccepted(campaignID, bidder.ID, port.BidAccepted{
		BidID:     bid.ID,
		Price:     bid.Price,
		Score:     bid.Score,
		Rank:      rank,
		ElapsedMs: bid.ElapsedMs,
		Timestamp: now,
	})
	return receipt, nil
}

// MyBid returns the bidder's live bid, or nil when they have not bid.
func (e *BidEngine) MyBid(ctx context.Context, campaignID, bidderID uuid.UUID) (*domain.Bid, error) {
	return e.bids.Find(ctx, campaignID, bidderID)
}

// MyRank returns the bidder's current standing. The rank is a
// point-in-time snapshot and may be stale by the time the caller acts.
func (e *BidEngine) MyRank(ctx context.Context, campaignID, bidderID uuid.UUID) (*port.RankStatus, error) {
	c, err := e.campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	st := &port.RankStatus{TotalParticipants: e.index.Size(campaignID)}
	rank, ok := e.index.RankOf(campaignID, bidderID)
	if !ok {
		return st, nil
	}
	st.Rank = rank
	st.Ranked = true
	st.IsWinning = rank <= c.Product.Quota
	if bid, err := e.bids.Find(ctx, campaignID, bidderID); err == nil && bid != nil {
		st.Score = &bid.Score
	}
	return st, nil
}

// TopK returns the k highest-ranked entries of a campaign.
func (e *BidEngine) TopK(ctx context.Context, campaignID uuid.UUID, k int) ([]port.RankEntry, error) {
	if _, err := e.campaigns.Get(ctx, campaignID); err != nil {
		return nil, err
	}
	return e.index.TopK(campaignID, k), nil
}

// Snapshot builds the periodic ranking snapshot broadcast by the notifier.
func (e *BidEngine) Snapshot(ctx context.Context, campaignID uuid.UUID) (port.RankingSnapshot, bool) {
	c, err := e.campaigns.Get(ctx, campaignID)
	if err != nil {
		return port.RankingSnapshot{}, false
	}
	stats := e.index.Stats(campaignID, c.Product.Quota)
	return port.RankingSnapshot{
		TopK:              e.index.TopK(campaignID, c.Product.Quota),
		TotalParticipants: stats.TotalParticipants,
		MinWinningScore:   stats.MinWinningScore,
		MaxScore:          stats.MaxScore,
		Timestamp:         e.clock(),
	}, true
}

// Campaign returns a campaign with its product.
func (e *BidEngine) Campaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	return e.campaigns.Get(ctx, id)
}

// Campaigns lists campaigns, newest first.
func (e *BidEngine) Campaigns(ctx context.Context, limit, offset int) ([]domain.Campaign, error) {
	return e.campaigns.List(ctx, limit, offset)
}

// Awards lists a campaign's awards in rank order.
func (e *BidEngine) Awards(ctx context.Context, campaignID uuid.UUID) ([]domain.Award, error) {
	return e.awards.ListByCampaign(ctx, campaignID)
}
