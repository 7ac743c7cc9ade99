package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bidder is an already-authenticated identity handed in by the gateway.
// Weight is a campaign-independent multiplier fixed at registration.
type Bidder struct {
	ID     uuid.UUID
	Weight decimal.Decimal
}

// Bid is the single live bid of a bidder in a campaign. Resubmissions
// overwrite the row in place; SubmissionCount counts every overwrite and
// never regresses. ElapsedMs is measured against the latest submission
// instant, not the first.
type Bid struct {
	ID              uuid.UUID
	CampaignID      uuid.UUID
	BidderID        uuid.UUID
	ProductID       uuid.UUID
	Price           decimal.Decimal
	Score           decimal.Decimal
	ElapsedMs       int64
	SubmissionCount int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Award is the terminal artifact of settlement: one unit irrevocably won.
// At most one award exists per (campaign, bidder).
type Award struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	BidderID   uuid.UUID
	ProductID  uuid.UUID
	FinalPrice decimal.Decimal
	FinalScore decimal.Decimal
	FinalRank  int
	CreatedAt  time.Time
}
