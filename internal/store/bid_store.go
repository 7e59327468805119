package store

import (
	"context"

	"auction/internal/models"
)

type BidStore struct {
	db DB
}

type bidViewRow struct {
	models.Bid
	BidderUsername string `db:"bidder_username"`
}

func NewBidStore(db DB) *BidStore {
	return &BidStore{db: db}
}

func (s *BidStore) Create(ctx context.Context, tx Execer, bid models.Bid) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bids (id, auction_id, bidder_id, amount, placed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.PlacedAt.UTC())
	return err
}

// GetByID reads a bid inside the caller's transaction.
func (s *BidStore) GetByID(ctx context.Context, tx Getter, bidID string) (models.Bid, error) {
	var bid models.Bid
	if err := tx.GetContext(ctx, &bid, `
		SELECT id, auction_id, bidder_id, amount, placed_at
		FROM bids
		WHERE id = $1
	`, bidID); err != nil {
		return models.Bid{}, err
	}
	bid.PlacedAt = bid.PlacedAt.UTC()
	return bid, nil
}

// ListByAuction returns the bid history, newest first.
func (s *BidStore) ListByAuction(ctx context.Context, auctionID string) ([]models.BidView, error) {
	var rows []bidViewRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT b.id, b.auction_id, b.bidder_id, b.amount, b.placed_at, u.username AS bidder_username
		FROM bids b
		JOIN users u ON u.id = b.bidder_id
		WHERE b.auction_id = $1
		ORDER BY b.placed_at DESC, b.id DESC
	`, auctionID)
	if err != nil {
		return nil, err
	}
	views := make([]models.BidView, 0, len(rows))
	for _, row := range rows {
		views = append(views, models.BidView{
			ID:       row.ID,
			Amount:   row.Amount,
			PlacedAt: row.PlacedAt.UTC(),
			Bidder:   models.Bidder{ID: row.BidderID, Username: row.BidderUsername},
		})
	}
	return views, nil
}
