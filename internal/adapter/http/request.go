package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flashbid/internal/core/domain"
)

// Identity headers set by the upstream gateway after authentication.
const (
	headerBidderID     = "X-Bidder-ID"
	headerBidderWeight = "X-Bidder-Weight"
)

// identity extracts the authenticated bidder from the gateway headers.
// X-Bidder-ID is mandatory; X-Bidder-Weight defaults to 1. On failure the
// 401/400 is already written and ok is false.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (domain.Bidder, bool) {
	raw := r.Header.Get(headerBidderID)
	if raw == "" {
		h.respond(w, http.StatusUnauthorized, errorBody{Error: "missing " + headerBidderID + " header"})
		return domain.Bidder{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.respond(w, http.StatusBadRequest, errorBody{Error: "invalid " + headerBidderID + " header"})
		return domain.Bidder{}, false
	}

	weight := decimal.NewFromInt(1)
	if rawWeight := r.Header.Get(headerBidderWeight); rawWeight != "" {
		weight, err = decimal.NewFromString(rawWeight)
		if err != nil || weight.IsNegative() {
			h.respond(w, http.StatusBadRequest, errorBody{Error: "invalid " + headerBidderWeight + " header"})
			return domain.Bidder{}, false
		}
	}
	return domain.Bidder{ID: id, Weight: weight}, true
}

type submitBidRequest struct {
	Price decimal.Decimal `json:"price"`
}

// handleSubmitBid records or overwrites the bidder's bid and returns the
// receipt with the freshly computed rank. Parsing errors produce HTTP 400;
// rejections map through the error taxonomy.
func (h *Handler) handleSubmitBid(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDParam(w, r)
	if !ok {
		return
	}
	bidder, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req submitBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond(w, http.StatusBadRequest, errorBody{Error: "invalid JSON"})
		return
	}
	if !req.Price.IsPositive() {
		h.respond(w, http.StatusBadRequest, errorBody{Error: "price must be positive"})
		return
	}

	receipt, err := h.svc.SubmitBid(r.Context(), campaignID, bidder, req.Price)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respond(w, http.StatusCreated, receipt)
}

type bidResponse struct {
	BidID           uuid.UUID       `json:"bid_id"`
	CampaignID      uuid.UUID       `json:"campaign_id"`
	Price           decimal.Decimal `json:"price"`
	Score           decimal.Decimal `json:"score"`
	ElapsedMs       int64           `json:"elapsed_ms"`
	SubmissionCount int             `json:"submission_count"`
	UpdatedAt       string          `json:"updated_at"`
}

// handleMyBid returns the caller's live bid, or 404 when they have none.
func (h *Handler) handleMyBid(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDParam(w, r)
	if !ok {
		return
	}
	bidder, ok := h.identity(w, r)
	if !ok {
		return
	}

	bid, err := h.svc.MyBid(r.Context(), campaignID, bidder.ID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if bid == nil {
		h.respond(w, http.StatusNotFound, errorBody{Error: "no bid recorded"})
		return
	}
	h.respond(w, http.StatusOK, bidResponse{
		BidID:           bid.ID,
		CampaignID:      bid.CampaignID,
		Price:           bid.Price,
		Score:           bid.Score,
		ElapsedMs:       bid.ElapsedMs,
		SubmissionCount: bid.SubmissionCount,
		UpdatedAt:       bid.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}
