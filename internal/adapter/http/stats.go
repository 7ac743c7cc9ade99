package httpadapter

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultTopK = 10
	maxTopK     = 100
)

// handleRankings returns the current top-K of a campaign. The optional
// `limit` query parameter is clamped to [1, 100] and defaults to 10.
func (h *Handler) handleRankings(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDParam(w, r)
	if !ok {
		return
	}

	k := defaultTopK
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.respond(w, http.StatusBadRequest, errorBody{Error: "invalid limit"})
			return
		}
		k = min(parsed, maxTopK)
	}

	entries, err := h.svc.TopK(r.Context(), campaignID, k)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{
		"campaign_id": campaignID,
		"rankings":    entries,
		"timestamp":   time.Now().UTC(),
	})
}

// handleMyRank returns the caller's standing, including whether their rank
// currently falls inside the product quota.
func (h *Handler) handleMyRank(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDParam(w, r)
	if !ok {
		return
	}
	bidder, ok := h.identity(w, r)
	if !ok {
		return
	}

	status, err := h.svc.MyRank(r.Context(), campaignID, bidder.ID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respond(w, http.StatusOK, status)
}

type statsResponse struct {
	CampaignID        string           `json:"campaign_id"`
	Status            string           `json:"status"`
	TotalParticipants int              `json:"total_participants"`
	MaxScore          *decimal.Decimal `json:"max_score"`
	MinWinningScore   *decimal.Decimal `json:"min_winning_score"`
	Remaining         int              `json:"remaining"`
	Quota             int              `json:"quota"`
}

// handleStats aggregates the campaign's live ranking statistics with its
// inventory state.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDParam(w, r)
	if !ok {
		return
	}

	campaign, err := h.svc.Campaign(r.Context(), campaignID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	snap, _ := h.svc.Snapshot(r.Context(), campaignID)

	resp := statsResponse{
		CampaignID:        campaignID.String(),
		Status:            campaign.Status,
		TotalParticipants: snap.TotalParticipants,
		MaxScore:          snap.MaxScore,
		MinWinningScore:   snap.MinWinningScore,
	}
	if campaign.Product != nil {
		resp.Remaining = campaign.Product.Remaining
		resp.Quota = campaign.Product.Quota
	}
	h.respond(w, http.StatusOK, resp)
}
