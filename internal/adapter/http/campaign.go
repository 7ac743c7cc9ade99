package httpadapter

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flashbid/internal/core/domain"
)

type productResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Quota     int             `json:"quota"`
	Remaining int             `json:"remaining"`
	MinPrice  decimal.Decimal `json:"min_price"`
}

type campaignResponse struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Status    string           `json:"status"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Alpha     decimal.Decimal  `json:"alpha"`
	Beta      decimal.Decimal  `json:"beta"`
	Gamma     decimal.Decimal  `json:"gamma"`
	Product   *productResponse `json:"product,omitempty"`
}

func toCampaignResponse(c *domain.Campaign) campaignResponse {
	resp := campaignResponse{
		ID:        c.ID,
		Name:      c.Name,
		Status:    c.Status,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		Alpha:     c.Coeffs.Alpha,
		Beta:      c.Coeffs.Beta,
		Gamma:     c.Coeffs.Gamma,
	}
	if c.Product != nil {
		resp.Product = &productResponse{
			ID:        c.Product.ID,
			Name:      c.Product.Name,
			Quota:     c.Product.Quota,
			Remaining: c.Product.Remaining,
			MinPrice:  c.Product.MinPrice,
		}
	}
	return resp
}

// handleCampaignList lists campaigns newest first. Optional `limit` and
// `offset` query parameters page the result; limit defaults to 50.
func (h *Handler) handleCampaignList(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.respond(w, http.StatusBadRequest, errorBody{Error: "invalid limit"})
			return
		}
		limit = min(parsed, 200)
	}
	if raw := q.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.respond(w, http.StatusBadRequest, errorBody{Error: "invalid offset"})
			return
		}
		offset = parsed
	}

	campaigns, err := h.svc.Campaigns(r.Context(), limit, offset)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	out := make([]campaignResponse, 0, len(campaigns))
	for i := range campaigns {
		out = append(out, toCampaignResponse(&campaigns[i]))
	}
	h.respond(w, http.StatusOK, map[string]any{"campaigns": out})
}

// handleCampaignDetail returns one campaign with its product.
func (h *Handler) handleCampaignDetail(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDParam(w, r)
	if !ok {
		return
	}
	campaign, err := h.svc.Campaign(r.Context(), campaignID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respond(w, http.StatusOK, toCampaignResponse(campaign))
}

type awardResponse struct {
	BidderID   uuid.UUID       `json:"bidder_id"`
	FinalRank  int             `json:"final_rank"`
	FinalScore decimal.Decimal `json:"final_score"`
	FinalPrice decimal.Decimal `json:"final_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// handleAwards lists a settled campaign's awards in rank order. The list
// is empty until settlement has run.
func (h *Handler) handleAwards(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDParam(w, r)
	if !ok {
		return
	}
	awards, err := h.svc.Awards(r.Context(), campaignID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	out := make([]awardResponse, 0, len(awards))
	for _, a := range awards {
		out = append(out, awardResponse{
			BidderID:   a.BidderID,
			FinalRank:  a.FinalRank,
			FinalScore: a.FinalScore,
			FinalPrice: a.FinalPrice,
			CreatedAt:  a.CreatedAt,
		})
	}
	h.respond(w, http.StatusOK, map[string]any{"campaign_id": campaignID, "awards": out})
}
