package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"flashbid/internal/core/port"
)

const (
	// sendBuffer decouples broadcast from per-client write speed. A
	// client whose buffer is full is dropped rather than slowing the room.
	sendBuffer = 32

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	msgLimit   = 512
)

// Hub fans ranking snapshots and per-bidder confirmations out to
// WebSocket subscribers grouped into per-campaign rooms. Delivery is
// best-effort and at-most-once per tick: a missed snapshot is superseded
// by the next one, so nothing is retried or backfilled. A disconnecting
// or slow subscriber never blocks broadcast to the rest of the room.
type Hub struct {
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*client]struct{}
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[uuid.UUID]map[*client]struct{}),
	}
}

type client struct {
	hub        *Hub
	campaignID uuid.UUID
	bidderID   uuid.UUID
	conn       *websocket.Conn
	send       chan []byte
}

// Join registers conn in the campaign room and starts its pumps. The
// connection is owned by the hub from here on.
func (h *Hub) Join(campaignID, bidderID uuid.UUID, conn *websocket.Conn) {
	c := &client{
		hub:        h,
		campaignID: campaignID,
		bidderID:   bidderID,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	room := h.rooms[campaignID]
	if room == nil {
		room = make(map[*client]struct{})
		h.rooms[campaignID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("subscriber joined",
		slog.String("campaign_id", campaignID.String()),
		slog.String("bidder_id", bidderID.String()),
		slog.Int("room_size", h.RoomSize(campaignID)))

	go c.writePump()
	go c.readPump()
}

// drop removes the client from its room and closes its send channel. The
// channel close is done under the write lock so no broadcast can race it.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	room, ok := h.rooms[c.campaignID]
	if ok {
		if _, member := room[c]; member {
			delete(room, c)
			close(c.send)
			if len(room) == 0 {
				delete(h.rooms, c.campaignID)
			}
		}
	}
	h.mu.Unlock()
}

// RoomSize returns the number of subscribers in a campaign room.
func (h *Hub) RoomSize(campaignID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[campaignID])
}

// ActiveCampaigns lists campaigns that currently have subscribers.
func (h *Hub) ActiveCampaigns() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(h.rooms))
	for id := range h.rooms {
		out = append(out, id)
	}
	return out
}

// BidAccepted delivers the confirmation to the submitting bidder's
// connections only.
func (h *Hub) BidAccepted(campaignID, bidderID uuid.UUID, ev port.BidAccepted) {
	payload, err := json.Marshal(envelope{
		Event: EventBidAccepted,
		Data:  bidAcceptedData{CampaignID: campaignID, BidAccepted: ev},
	})
	if err != nil {
		h.logger.Error("encode bid accepted", slog.Any("error", err))
		return
	}
	h.deliver(campaignID, payload, func(c *client) bool { return c.bidderID == bidderID })
}

// BroadcastSnapshot pushes the snapshot to every room subscriber.
func (h *Hub) BroadcastSnapshot(campaignID uuid.UUID, snap port.RankingSnapshot) {
	payload, err := json.Marshal(envelope{
		Event: EventRankingUpdate,
		Data:  rankingUpdateData{CampaignID: campaignID, RankingSnapshot: snap},
	})
	if err != nil {
		h.logger.Error("encode snapshot", slog.Any("error", err))
		return
	}
	h.deliver(campaignID, payload, nil)
}

// CampaignEnded sends every subscriber their own final outcome.
func (h *Hub) CampaignEnded(campaignID uuid.UUID, winners map[uuid.UUID]port.FinalResult) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[campaignID]))
	for c := range h.rooms[campaignID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var slow []*client
	for _, c := range clients {
		data := campaignEndedData{
			CampaignID: campaignID,
			BidderID:   c.bidderID,
		}
		if res, won := winners[c.bidderID]; won {
			data.IsWinner = true
			rank, score, price := res.FinalRank, res.FinalScore, res.FinalPrice
			data.FinalRank = &rank
			data.FinalScore = &score
			data.FinalPrice = &price
		}
		payload, err := json.Marshal(envelope{Event: EventCampaignEnded, Data: data})
		if err != nil {
			h.logger.Error("encode campaign ended", slog.Any("error", err))
			continue
		}
		if !h.trySend(c, payload) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.drop(c)
	}
}

// deliver sends payload to every room member matching the filter (nil
// matches all), dropping clients whose buffers are full.
func (h *Hub) deliver(campaignID uuid.UUID, payload []byte, match func(*client) bool) {
	h.mu.RLock()
	var targets, slow []*client
	for c := range h.rooms[campaignID] {
		if match == nil || match(c) {
			targets = append(targets, c)
		}
	}
	for _, c := range targets {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow subscriber",
			slog.String("campaign_id", c.campaignID.String()),
			slog.String("bidder_id", c.bidderID.String()))
		h.drop(c)
	}
}

// trySend is the non-blocking single-client variant of deliver.
func (h *Hub) trySend(c *client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[c.campaignID]; ok {
		if _, member := room[c]; member {
			select {
			case c.send <- payload:
				return true
			default:
				return false
			}
		}
	}
	return true // already gone, nothing to do
}

// RunSnapshots broadcasts a ranking snapshot to every populated room at
// the given interval until ctx is cancelled.
func (h *Hub) RunSnapshots(ctx context.Context, interval time.Duration, source func(context.Context, uuid.UUID) (port.RankingSnapshot, bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, campaignID := range h.ActiveCampaigns() {
				if snap, ok := source(ctx, campaignID); ok {
					h.BroadcastSnapshot(campaignID, snap)
				}
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.hub.drop(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.drop(c)
				return
			}
		}
	}
}

// readPump discards inbound frames; the channel is push-only. Its job is
// pong handling and noticing the disconnect.
func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(msgLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
