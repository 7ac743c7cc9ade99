package httpadapter

import (
	"net/http"

	"github.com/gorilla/websocket"
	"log/slog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin subscriptions are allowed; the gateway in front owns
	// origin policy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleSubscribe upgrades the request and joins the campaign room. The
// campaign must exist; the identity headers name the subscriber so targeted
// events reach only them. After the upgrade the hub owns the connection.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDParam(w, r)
	if !ok {
		return
	}
	bidder, ok := h.identity(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.Campaign(r.Context(), campaignID); err != nil {
		h.respondErr(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	h.hub.Join(campaignID, bidder.ID, conn)
}
