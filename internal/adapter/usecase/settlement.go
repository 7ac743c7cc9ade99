package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"flashbid/internal/core/domain"
	"flashbid/internal/core/port"
)

// Settler is the background control loop that closes campaigns: it
// activates pending campaigns, claims ended ones through a conditional
// status update so only one scheduler instance drives a closure, walks the
// final top-K in rank order and converts each candidate into an award
// through the inventory guard. Winners that fail reservation are skipped,
// never replaced by a lower rank.
type Settler struct {
	campaigns port.CampaignRepository
	bids      port.BidRepository
	awards    port.AwardRepository
	index     port.RankingIndex
	reserver  port.UnitReserver
	notifier  port.Notifier
	logger    *slog.Logger

	interval        time.Duration
	campaignTimeout time.Duration
	clock           func() time.Time
}

// NewSettler creates the scheduler. interval is the scan period;
// campaignTimeout bounds one campaign's settlement so a stuck campaign
// cannot stall the next tick for others.
func NewSettler(
	campaigns port.CampaignRepository,
	bids port.BidRepository,
	awards port.AwardRepository,
	index port.RankingIndex,
	reserver port.UnitReserver,
	notifier port.Notifier,
	logger *slog.Logger,
	interval, campaignTimeout time.Duration,
) *Settler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if campaignTimeout <= 0 {
		campaignTimeout = 30 * time.Second
	}
	return &Settler{
		campaigns:       campaigns,
		bids:            bids,
		awards:          awards,
		index:           index,
		reserver:        reserver,
		notifier:        notifier,
		logger:          logger,
		interval:        interval,
		campaignTimeout: campaignTimeout,
		clock:           time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (s *Settler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduler pass. Errors of one campaign are logged and
// isolated; the campaign is revisited on the next tick while not settled.
func (s *Settler) Tick(ctx context.Context) {
	now := s.clock()

	if n, err := s.campaigns.ActivateDue(ctx, now); err != nil {
		s.logger.Error("activate due campaigns", slog.Any("error", err))
	} else if n > 0 {
		s.logger.Info("campaigns activated", slog.Int64("count", n))
	}

	due, err := s.campaigns.DueForSettlement(ctx, now)
	if err != nil {
		s.logger.Error("scan due campaigns", slog.Any("error", err))
		return
	}
	for i := range due {
		err := s.settleOne(ctx, &due[i])
		if errors.Is(err, port.ErrSettlementInProgress) {
			// another instance owns this closure
			continue
		}
		if err != nil {
			s.logger.Error("settle campaign",
				slog.String("campaign_id", due[i].ID.String()),
				slog.Any("error", err))
		}
	}
}

func (s *Settler) settleOne(parent context.Context, c *domain.Campaign) error {
	ctx, cancel := context.WithTimeout(parent, s.campaignTimeout)
	defer cancel()

	if c.Status == domain.StatusActive {
		claimed, err := s.campaigns.ClaimClosing(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("claim closing: %w", err)
		}
		if !claimed {
			return port.ErrSettlementInProgress
		}
	}

	// The ranking index is an in-process projection: after a restart, or on
	// an instance that observed none of this campaign's submissions, it is
	// empty while the ledger still holds the bids that decide the winners.
	if s.index.Size(c.ID) == 0 {
		if err := s.rebuildIndex(ctx, c.ID); err != nil {
			return fmt.Errorf("rebuild ranking index: %w", err)
		}
	}

	quota := c.Product.Quota
	top := s.index.TopK(c.ID, quota)
	s.logger.Info("settling campaign",
		slog.String("campaign_id", c.ID.String()),
		slog.Int("quota", quota),
		slog.Int("candidates", len(top)))

	// Winners are processed sequentially in rank order; a candidate whose
	// reservation fails is skipped and their unit goes unawarded.
	for _, cand := range top {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.awardOne(ctx, c, cand); err != nil {
			s.logger.Warn("candidate skipped",
				slog.String("campaign_id", c.ID.String()),
				slog.String("bidder_id", cand.BidderID.String()),
				slog.Int("rank", cand.Rank),
				slog.Any("error", err))
		}
	}

	if err := s.campaigns.MarkSettled(ctx, c.ID); err != nil {
		return fmt.Errorf("mark settled: %w", err)
	}

	awards, err := s.awards.ListByCampaign(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("list awards: %w", err)
	}
	winners := make(map[uuid.UUID]port.FinalResult, len(awards))
	for _, a := range awards {
		winners[a.BidderID] = port.FinalResult{
			FinalRank:  a.FinalRank,
			FinalScore: a.FinalScore,
			FinalPrice: a.FinalPrice,
		}
	}
	s.notifier.CampaignEnded(c.ID, winners)
	s.logger.Info("campaign settled",
		slog.String("campaign_id", c.ID.String()),
		slog.Int("awards", len(awards)))
	return nil
}

// rebuildIndex replays the durable ledger into the ranking index. Rows
// arrive ordered by score then update time, so the rebuilt index keeps the
// original tie-break.
func (s *Settler) rebuildIndex(ctx context.Context, campaignID uuid.UUID) error {
	rows, err := s.bids.ListByCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	for i := range rows {
		s.index.Update(campaignID, rows[i].BidderID, rows[i].Score, rows[i].Price, rows[i].SubmissionCount)
	}
	if len(rows) > 0 {
		s.logger.Info("ranking index rebuilt from ledger",
			slog.String("campaign_id", campaignID.String()),
			slog.Int("bids", len(rows)))
	}
	return nil
}

// awardOne reserves a unit for one candidate and writes the award. The
// final price comes from the ledger, the durable source of truth.
func (s *Settler) awardOne(ctx context.Context, c *domain.Campaign, cand port.RankEntry) error {
	bid, err := s.bids.Find(ctx, c.ID, cand.BidderID)
	if err != nil {
		return fmt.Errorf("ledger lookup: %w", err)
	}
	if bid == nil {
		return fmt.Errorf("no ledger row for ranked bidder")
	}

	if err := s.reserver.ReserveUnit(ctx, c.ProductID); err != nil {
		return err
	}

	created, err := s.awards.Create(ctx, &domain.Award{
		ID:         uuid.New(),
		CampaignID: c.ID,
		BidderID:   cand.BidderID,
		ProductID:  c.ProductID,
		FinalPrice: bid.Price,
		FinalScore: cand.Score,
		FinalRank:  cand.Rank,
	})
	if err != nil || !created {
		// failed write, or an earlier settlement run already awarded this
		// bidder: the reserved unit must go back either way
		if relErr := s.reserver.ReleaseUnit(ctx, c.ProductID); relErr != nil {
			s.logger.Error("release after award failure",
				slog.String("product_id", c.ProductID.String()),
				slog.Any("error", relErr))
		}
		if err != nil {
			return fmt.Errorf("create award: %w", err)
		}
	}
	return nil
}
