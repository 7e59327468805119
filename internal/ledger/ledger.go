// Package ledger applies fund movements to a user's balance and held amounts.
//
// Every function mutates the user in place and leaves it untouched when it
// returns an error. ErrInvariantViolation marks a caller bug (a double
// release, a settlement larger than the hold); callers must abort the
// surrounding transaction instead of correcting the numbers.
package ledger

import (
	"errors"
	"fmt"

	"auction/internal/ids"
	"auction/internal/models"
	"auction/internal/store"
)

var (
	ErrInvalidAmount      = errors.New("ledger: invalid amount")
	ErrInsufficientFunds  = errors.New("ledger: insufficient available funds")
	ErrInvariantViolation = errors.New("ledger: invariant violation")
)

// Entry kinds recorded in ledger_entries.
const (
	KindCredit  = "credit"
	KindHold    = "hold"
	KindRelease = "release"
	KindSettle  = "settle"
)

// Check verifies 0 <= held <= balance.
func Check(u models.User) error {
	if u.Held < 0 {
		return fmt.Errorf("%w: user %s held %d is negative", ErrInvariantViolation, u.ID, u.Held)
	}
	if u.Balance < 0 {
		return fmt.Errorf("%w: user %s balance %d is negative", ErrInvariantViolation, u.ID, u.Balance)
	}
	if u.Held > u.Balance {
		return fmt.Errorf("%w: user %s held %d exceeds balance %d", ErrInvariantViolation, u.ID, u.Held, u.Balance)
	}
	return nil
}

// CanReserve reports whether amount fits in the user's available funds.
func CanReserve(u models.User, amount int64) bool {
	return amount > 0 && amount <= u.Available()
}

// Reserve places a hold. The caller has already checked available funds;
// the invariant is asserted again here.
func Reserve(u *models.User, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	next := *u
	next.Held += amount
	if err := Check(next); err != nil {
		return err
	}
	*u = next
	return nil
}

// Release drops a hold when its bid is outbid.
func Release(u *models.User, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if u.Held < amount {
		return fmt.Errorf("%w: release %d from user %s holding %d", ErrInvariantViolation, amount, u.ID, u.Held)
	}
	next := *u
	next.Held -= amount
	if err := Check(next); err != nil {
		return err
	}
	*u = next
	return nil
}

// Settle converts a hold into a debit at auction close.
func Settle(u *models.User, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if u.Held < amount {
		return fmt.Errorf("%w: settle %d from user %s holding %d", ErrInvariantViolation, amount, u.ID, u.Held)
	}
	next := *u
	next.Held -= amount
	next.Balance -= amount
	if err := Check(next); err != nil {
		return err
	}
	*u = next
	return nil
}

// Credit adds funds to the balance.
func Credit(u *models.User, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	next := *u
	next.Balance += amount
	if err := Check(next); err != nil {
		return err
	}
	*u = next
	return nil
}

// Entry builds the ledger row for one movement. Empty auction and bid ids are stored as NULL.
func Entry(kind, userID, auctionID, bidID string, amount int64, description string) store.LedgerEntryInput {
	return store.LedgerEntryInput{
		ID:          ids.NewLedger(),
		UserID:      userID,
		AuctionID:   optional(auctionID),
		BidID:       optional(bidID),
		Kind:        kind,
		Amount:      amount,
		Description: description,
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
