package ws

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flashbid/internal/core/port"
)

// Event names pushed over the campaign channel.
const (
	EventRankingUpdate = "ranking_update"
	EventBidAccepted   = "bid_accepted"
	EventCampaignEnded = "campaign_ended"
)

// envelope is the wire shape of every push message.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// rankingUpdateData is the periodic snapshot payload.
type rankingUpdateData struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	port.RankingSnapshot
}

// bidAcceptedData confirms one bidder's recorded submission.
type bidAcceptedData struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	port.BidAccepted
}

// campaignEndedData tells one subscriber their final outcome. The final
// fields are nil for losers.
type campaignEndedData struct {
	CampaignID uuid.UUID        `json:"campaign_id"`
	BidderID   uuid.UUID        `json:"bidder_id"`
	IsWinner   bool             `json:"is_winner"`
	FinalRank  *int             `json:"final_rank,omitempty"`
	FinalScore *decimal.Decimal `json:"final_score,omitempty"`
	FinalPrice *decimal.Decimal `json:"final_price,omitempty"`
}
