package store

import (
	"context"
	"time"
)

type LedgerStore struct {
	db DB
}

type LedgerEntryInput struct {
	ID          string
	UserID      string
	AuctionID   *string
	BidID       *string
	Kind        string
	Amount      int64
	Description string
}

type LedgerEntry struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	AuctionID   *string   `db:"auction_id" json:"auction_id,omitempty"`
	BidID       *string   `db:"bid_id" json:"bid_id,omitempty"`
	Kind        string    `db:"kind" json:"kind"`
	Amount      int64     `db:"amount" json:"amount"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) InsertEntries(ctx context.Context, tx Execer, entries []LedgerEntryInput) error {
	query := `
		INSERT INTO ledger_entries (id, user_id, auction_id, bid_id, kind, amount, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query, entry.ID, entry.UserID, entry.AuctionID, entry.BidID, entry.Kind, entry.Amount, entry.Description); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerStore) ListByUser(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, auction_id, bid_id, kind, amount, description, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []LedgerEntry{}
	}
	return entries, nil
}
