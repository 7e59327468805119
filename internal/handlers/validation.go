package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"auction/internal/money"
)

var (
	errInvalidAmount = errors.New("invalid amount")
	errInvalidTime   = errors.New("invalid time, expected RFC 3339")
)

func parseAmountMinor(raw string) (int64, error) {
	amount, err := money.ParsePositiveMinor(raw)
	if err != nil {
		return 0, errInvalidAmount
	}
	return amount, nil
}

// parseOptionalMinor accepts zero and falls back when raw is empty.
func parseOptionalMinor(raw string, fallback int64) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	amount, err := money.ParseMinor(raw)
	if err != nil || amount < 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

func parseTime(raw string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, errInvalidTime
	}
	return parsed.UTC(), nil
}

func parseLimit(r *http.Request, fallback, ceiling int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
