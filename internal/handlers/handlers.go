package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"auction/internal/logger"
	"auction/internal/middleware"
	"auction/internal/services"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var serviceErrors = []errorMapping{
	{services.ErrNotFound, http.StatusNotFound, "not_found"},
	{services.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{services.ErrSelfBid, http.StatusForbidden, "self_bid"},
	{services.ErrAuctionNotOpen, http.StatusConflict, "auction_not_open"},
	{services.ErrInsufficientFunds, http.StatusConflict, "insufficient_funds"},
	{services.ErrProductInAuction, http.StatusConflict, "product_in_auction"},
	{services.ErrProductLocked, http.StatusConflict, "product_locked"},
	{services.ErrBidTooLow, http.StatusBadRequest, "bid_too_low"},
	{services.ErrInvalidWindow, http.StatusBadRequest, "invalid_window"},
	{services.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{services.ErrUnknownCategory, http.StatusBadRequest, "unknown_category"},
	{services.ErrInvalidCondition, http.StatusBadRequest, "invalid_condition"},
	{services.ErrCreditLimit, http.StatusBadRequest, "credit_limit"},
}

// respondServiceError maps domain errors to 4xx. Anything else is a fault:
// it is logged and reported as a 500 with fallback as the message.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			respondJSON(w, m.status, map[string]string{"error": m.err.Error(), "code": m.code})
			return
		}
	}
	logger.Error(fallback, map[string]any{
		"error":      err.Error(),
		"path":       r.URL.Path,
		"request_id": chimiddleware.GetReqID(r.Context()),
	})
	respondError(w, http.StatusInternalServerError, fallback)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
	}
	return userID, ok
}
