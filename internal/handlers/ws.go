package handlers

import (
	"net/http"

	"auction/internal/websocket"

	"github.com/go-chi/chi/v5"
)

// WSAllAuctions streams every auction's bid and status events.
func (h *Handler) WSAllAuctions(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(w, r, h.hub, websocket.AllAuctions)
}

func (h *Handler) WSAuction(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "id")
	if _, err := h.auctions.GetAuction(r.Context(), auctionID); err != nil {
		respondServiceError(w, r, err, "unable to load auction")
		return
	}
	websocket.ServeWS(w, r, h.hub, auctionID)
}
