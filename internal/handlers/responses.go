package handlers

import (
	"time"

	"auction/internal/models"
	"auction/internal/money"
	"auction/internal/store"
)

// Money leaves the API as decimal strings such as "150.00".

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Balance   string    `json:"balance"`
	Held      string    `json:"held"`
	Available string    `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Balance:   money.FormatMinor(user.Balance),
		Held:      money.FormatMinor(user.Held),
		Available: money.FormatMinor(user.Available()),
		CreatedAt: user.CreatedAt,
	}
}

type auctionResponse struct {
	ID             string                 `json:"id"`
	ProductID      string                 `json:"product_id"`
	StartPrice     string                 `json:"start_price"`
	MinIncrement   string                 `json:"min_increment"`
	CurrentPrice   string                 `json:"current_price"`
	MinimumBid     string                 `json:"minimum_bid"`
	StartAt        time.Time              `json:"start_at"`
	EndAt          time.Time              `json:"end_at"`
	Status         models.AuctionStatus   `json:"status"`
	CurrentBidID   *string                `json:"current_bid_id,omitempty"`
	WinnerID       *string                `json:"winner_id,omitempty"`
	WinnerUsername *string                `json:"winner_username,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	ClosedAt       *time.Time             `json:"closed_at,omitempty"`
	Product        *models.ProductSummary `json:"product,omitempty"`
	BidCount       int                    `json:"bid_count"`
}

func newAuctionResponse(auction models.Auction) auctionResponse {
	return auctionResponse{
		ID:           auction.ID,
		ProductID:    auction.ProductID,
		StartPrice:   money.FormatMinor(auction.StartPrice),
		MinIncrement: money.FormatMinor(auction.MinIncrement),
		CurrentPrice: money.FormatMinor(auction.CurrentPrice),
		MinimumBid:   money.FormatMinor(auction.MinimumBid()),
		StartAt:      auction.StartAt,
		EndAt:        auction.EndAt,
		Status:       auction.Status,
		CurrentBidID: auction.CurrentBidID,
		WinnerID:     auction.WinnerID,
		CreatedAt:    auction.CreatedAt,
		ClosedAt:     auction.ClosedAt,
	}
}

func newAuctionViewResponse(view models.AuctionView) auctionResponse {
	resp := newAuctionResponse(view.Auction)
	product := view.Product
	resp.Product = &product
	resp.BidCount = view.BidCount
	resp.WinnerUsername = view.WinnerUsername
	return resp
}

func newAuctionViewResponses(views []models.AuctionView) []auctionResponse {
	resp := make([]auctionResponse, 0, len(views))
	for _, view := range views {
		resp = append(resp, newAuctionViewResponse(view))
	}
	return resp
}

type bidResponse struct {
	ID       string        `json:"id"`
	Amount   string        `json:"amount"`
	PlacedAt time.Time     `json:"placed_at"`
	Bidder   models.Bidder `json:"bidder"`
}

func newBidResponses(bids []models.BidView) []bidResponse {
	resp := make([]bidResponse, 0, len(bids))
	for _, bid := range bids {
		resp = append(resp, bidResponse{
			ID:       bid.ID,
			Amount:   money.FormatMinor(bid.Amount),
			PlacedAt: bid.PlacedAt,
			Bidder:   bid.Bidder,
		})
	}
	return resp
}

type ledgerEntryResponse struct {
	ID          string    `json:"id"`
	AuctionID   *string   `json:"auction_id,omitempty"`
	BidID       *string   `json:"bid_id,omitempty"`
	Kind        string    `json:"kind"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func newLedgerResponses(entries []store.LedgerEntry) []ledgerEntryResponse {
	resp := make([]ledgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, ledgerEntryResponse{
			ID:          entry.ID,
			AuctionID:   entry.AuctionID,
			BidID:       entry.BidID,
			Kind:        entry.Kind,
			Amount:      money.FormatMinor(entry.Amount),
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}
