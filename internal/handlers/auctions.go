package handlers

import (
	"net/http"
	"strings"

	"auction/internal/models"
	"auction/internal/money"
	"auction/internal/services"
	"auction/internal/store"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status := models.AuctionStatus(strings.TrimSpace(query.Get("status")))
	if status != "" && !status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}
	views, err := h.auctions.ListAuctions(r.Context(), store.AuctionFilter{
		Status:    status,
		Category:  strings.TrimSpace(query.Get("category")),
		Condition: strings.TrimSpace(query.Get("condition")),
		Search:    strings.TrimSpace(query.Get("q")),
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to list auctions")
		return
	}
	respondJSON(w, http.StatusOK, newAuctionViewResponses(views))
}

type createAuctionRequest struct {
	ProductID    string `json:"product_id"`
	StartPrice   string `json:"start_price"`
	MinIncrement string `json:"min_increment"`
	StartAt      string `json:"start_at"`
	EndAt        string `json:"end_at"`
}

func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createAuctionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	startPrice, err := parseOptionalMinor(req.StartPrice, 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start_price")
		return
	}
	increment, err := parseOptionalMinor(req.MinIncrement, h.cfg.MinIncrementMinor)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid min_increment")
		return
	}
	startAt, err := parseTime(req.StartAt)
	if err != nil {
		respondError(w, http.StatusBadRequest, "start_at: "+err.Error())
		return
	}
	endAt, err := parseTime(req.EndAt)
	if err != nil {
		respondError(w, http.StatusBadRequest, "end_at: "+err.Error())
		return
	}
	auction, err := h.auctions.CreateAuction(r.Context(), services.CreateAuctionRequest{
		SellerID:     userID,
		ProductID:    strings.TrimSpace(req.ProductID),
		StartPrice:   startPrice,
		MinIncrement: increment,
		StartAt:      startAt,
		EndAt:        endAt,
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to create auction")
		return
	}
	respondJSON(w, http.StatusCreated, newAuctionResponse(auction))
}

func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	view, err := h.auctions.GetAuction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "unable to load auction")
		return
	}
	respondJSON(w, http.StatusOK, newAuctionViewResponse(view))
}

func (h *Handler) ListBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.auctions.ListBids(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "unable to load bids")
		return
	}
	respondJSON(w, http.StatusOK, newBidResponses(bids))
}

type placeBidRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req placeBidRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	auctionID := chi.URLParam(r, "id")
	result, err := h.auctions.PlaceBid(r.Context(), services.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  userID,
		Amount:    amount,
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to place bid")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"auction_id":    auctionID,
		"bid_id":        result.BidID,
		"current_price": money.FormatMinor(result.CurrentPrice),
	})
}

// AuctionAudit lists the recorded actions on an auction in the order they happened.
func (h *Handler) AuctionAudit(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "id")
	if _, err := h.auctions.GetAuction(r.Context(), auctionID); err != nil {
		respondServiceError(w, r, err, "unable to load auction")
		return
	}
	entries, err := h.audit.ListByEntity(r.Context(), "auction", auctionID, parseLimit(r, 100, 500))
	if err != nil {
		respondServiceError(w, r, err, "unable to load audit log")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
