package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"log/slog"

	"flashbid/internal/core/port"
)

// Handler contains dependencies and routes. It is an inbound adapter for
// HTTP. It holds the engine use case for business logic, the notifier hub
// for WebSocket subscriptions and a logger for structured logging. Routes
// are registered on a chi.Router for convenient method handling.
type Handler struct {
	svc       port.BidUseCase
	hub       Subscriber
	admission *Admission
	metrics   *Metrics
	logger    *slog.Logger
	router    chi.Router
}

// Subscriber attaches an upgraded connection to a campaign room.
type Subscriber interface {
	Join(campaignID, bidderID uuid.UUID, conn *websocket.Conn)
}

// NewHandler creates a handler with all routes configured. Write paths go
// through the admission middleware; reads and the WebSocket upgrade do not.
// The scrape endpoint stays outside the instrumented group so it does not
// count itself.
func NewHandler(svc port.BidUseCase, hub Subscriber, admission *Admission, metrics *Metrics, logger *slog.Logger) *Handler {
	h := &Handler{svc: svc, hub: hub, admission: admission, metrics: metrics, logger: logger}
	r := chi.NewRouter()

	r.Handle("/metrics", metrics.Handler())
	r.Group(func(r chi.Router) {
		r.Use(metrics.Middleware)
		r.Get("/health", h.handleHealth)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/campaigns", h.handleCampaignList)
			r.Route("/campaigns/{campaignID}", func(r chi.Router) {
				r.Get("/", h.handleCampaignDetail)
				r.With(admission.Limit).Post("/bids", h.handleSubmitBid)
				r.Get("/bids/me", h.handleMyBid)
				r.Get("/rankings", h.handleRankings)
				r.Get("/rankings/me", h.handleMyRank)
				r.Get("/stats", h.handleStats)
				r.Get("/awards", h.handleAwards)
				r.Get("/ws", h.handleSubscribe)
			})
		})
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respond writes v as JSON with the given status code.
func (h *Handler) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

// respondErr maps the engine's error taxonomy onto HTTP statuses. Unknown
// errors are logged and hidden behind a generic 500.
func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, port.ErrCampaignNotFound):
		status = http.StatusNotFound
	case errors.Is(err, port.ErrCampaignNotActive):
		status = http.StatusConflict
	case errors.Is(err, port.ErrPriceTooLow):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, port.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, port.ErrRateLimited):
		status = http.StatusTooManyRequests
	default:
		h.logger.Error("internal error", slog.Any("error", err))
		h.respond(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	h.respond(w, status, errorBody{Error: err.Error()})
}

type errorBody struct {
	Error string `json:"error"`
}

// campaignIDParam parses the {campaignID} path parameter. A malformed id
// writes the 400 itself and reports ok=false.
func (h *Handler) campaignIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		h.respond(w, http.StatusBadRequest, errorBody{Error: "invalid campaign id"})
		return uuid.Nil, false
	}
	return id, true
}
