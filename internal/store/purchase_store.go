package store

import (
	"context"

	"auction/internal/models"
)

type PurchaseStore struct {
	db DB
}

func NewPurchaseStore(db DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

// Add records the product a winner bought. An auction produces at most one purchase.
func (s *PurchaseStore) Add(ctx context.Context, tx Execer, purchase models.Purchase) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO purchases (user_id, product_id, auction_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, purchase.UserID, purchase.ProductID, purchase.AuctionID, purchase.Amount, purchase.CreatedAt.UTC())
	return err
}
