package websocket

import (
	"encoding/json"
	"sync"

	"auction/internal/events"
	"auction/internal/logger"
)

// AllAuctions is the room that receives every auction's events.
const AllAuctions = ""

// Hub fans auction events out to websocket clients grouped in rooms, one
// room per auction id plus AllAuctions. Sends never block: a client whose
// buffer is full misses the message.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[room] == nil {
		h.clients[room] = make(map[*Client]struct{})
	}
	h.clients[room][client] = struct{}{}
}

func (h *Hub) Unregister(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[room] == nil {
		return
	}
	delete(h.clients[room], client)
	if len(h.clients[room]) == 0 {
		delete(h.clients, room)
	}
}

func (h *Hub) EmitPriceChanged(event events.PriceChanged) {
	h.broadcast(event.AuctionID, events.Envelope{Type: events.TypeBidPlaced, Data: event})
}

func (h *Hub) EmitStatusChanged(event events.StatusChanged) {
	h.broadcast(event.AuctionID, events.Envelope{Type: events.TypeAuctionStatus, Data: event})
}

func (h *Hub) broadcast(auctionID string, envelope events.Envelope) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		logger.Error("failed to encode websocket event", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for _, room := range []string{auctionID, AllAuctions} {
		for client := range h.clients[room] {
			select {
			case client.send <- payload:
			default:
				dropped++
			}
		}
	}
	if dropped > 0 {
		logger.Warn("websocket clients too slow, events dropped", map[string]any{"auction_id": auctionID, "dropped": dropped})
	}
}

// Count reports how many clients listen in room.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[room])
}
