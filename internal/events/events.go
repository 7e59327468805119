// Package events describes the notifications the auction engine emits.
// Delivery belongs to the emitters (websocket hub, message broker).
package events

//go:generate mockgen -source=events.go -destination=mock_events.go -package=events

import "auction/internal/models"

const (
	TypeBidPlaced     = "bid_placed"
	TypeAuctionStatus = "auction_status"
)

// PriceChanged is emitted for every accepted bid.
type PriceChanged struct {
	AuctionID    string `json:"auction_id"`
	CurrentPrice string `json:"current_price"`
	BidID        string `json:"bid_id"`
}

// StatusChanged is emitted when an auction opens or closes.
type StatusChanged struct {
	AuctionID string               `json:"auction_id"`
	Status    models.AuctionStatus `json:"status"`
	WinnerID  *string              `json:"winner_id,omitempty"`
}

// Envelope is the wire shape shared by all transports.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Emitter must not block the caller; it runs while an auction lock is held.
type Emitter interface {
	EmitPriceChanged(event PriceChanged)
	EmitStatusChanged(event StatusChanged)
}

// Fanout forwards every event to each emitter in order.
type Fanout []Emitter

func (f Fanout) EmitPriceChanged(event PriceChanged) {
	for _, emitter := range f {
		emitter.EmitPriceChanged(event)
	}
}

func (f Fanout) EmitStatusChanged(event StatusChanged) {
	for _, emitter := range f {
		emitter.EmitStatusChanged(event)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) EmitPriceChanged(PriceChanged)   {}
func (Discard) EmitStatusChanged(StatusChanged) {}
