package handlers

import (
	"net/http"
)

type creditRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req creditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.accounts.Credit(r.Context(), userID, amount)
	if err != nil {
		respondServiceError(w, r, err, "credit failed")
		return
	}
	respondJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *Handler) Purchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	products, err := h.accounts.Purchases(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "unable to load purchases")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// Ledger lists the caller's fund movements, newest first.
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	entries, err := h.accounts.Ledger(r.Context(), userID, parseLimit(r, 50, 200))
	if err != nil {
		respondServiceError(w, r, err, "unable to load ledger")
		return
	}
	respondJSON(w, http.StatusOK, newLedgerResponses(entries))
}
