package store

import (
	"context"

	"auction/internal/models"

	"github.com/lib/pq"
)

type AuctionStore struct {
	db DB
}

// AuctionFilter narrows ListViews; empty fields match everything.
type AuctionFilter struct {
	Status    models.AuctionStatus
	Category  string
	Condition string
	Search    string
}

type auctionViewRow struct {
	models.Auction
	ProductOwnerID   string         `db:"product_owner_id"`
	ProductTitle     string         `db:"product_title"`
	ProductCategory  string         `db:"product_category"`
	ProductCondition string         `db:"product_condition"`
	ProductMedia     pq.StringArray `db:"product_media"`
	BidCount         int            `db:"bid_count"`
	WinnerUsername   *string        `db:"winner_username"`
}

func (r auctionViewRow) view() models.AuctionView {
	media := []string(r.ProductMedia)
	if media == nil {
		media = []string{}
	}
	return models.AuctionView{
		Auction: normalizeAuction(r.Auction),
		Product: models.ProductSummary{
			ID:        r.ProductID,
			OwnerID:   r.ProductOwnerID,
			Title:     r.ProductTitle,
			Category:  r.ProductCategory,
			Condition: r.ProductCondition,
			Media:     media,
		},
		BidCount:       r.BidCount,
		WinnerUsername: r.WinnerUsername,
	}
}

const auctionColumns = `id, product_id, start_price, min_increment, start_at, end_at, status,
	current_price, current_bid_id, winner_id, created_at, closed_at`

// The view is one statement so all fields come from the same snapshot.
const auctionViewQuery = `
	SELECT a.id, a.product_id, a.start_price, a.min_increment, a.start_at, a.end_at, a.status,
	       a.current_price, a.current_bid_id, a.winner_id, a.created_at, a.closed_at,
	       p.owner_id AS product_owner_id, p.title AS product_title, p.category AS product_category,
	       p.condition AS product_condition, p.media AS product_media,
	       (SELECT COUNT(*) FROM bids b WHERE b.auction_id = a.id) AS bid_count,
	       w.username AS winner_username
	FROM auctions a
	JOIN products p ON p.id = a.product_id
	LEFT JOIN users w ON w.id = a.winner_id
`

func NewAuctionStore(db DB) *AuctionStore {
	return &AuctionStore{db: db}
}

func (s *AuctionStore) Create(ctx context.Context, tx Execer, auction models.Auction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO auctions (id, product_id, start_price, min_increment, start_at, end_at, status, current_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, auction.ID, auction.ProductID, auction.StartPrice, auction.MinIncrement,
		auction.StartAt.UTC(), auction.EndAt.UTC(), string(auction.Status), auction.CurrentPrice, auction.CreatedAt.UTC())
	return err
}

// GetForUpdate locks the auction row until the transaction ends.
func (s *AuctionStore) GetForUpdate(ctx context.Context, tx Getter, auctionID string) (models.Auction, error) {
	var auction models.Auction
	if err := tx.GetContext(ctx, &auction, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1 FOR UPDATE`, auctionID); err != nil {
		return models.Auction{}, err
	}
	return normalizeAuction(auction), nil
}

// Update writes the mutable state of an auction. Prices, windows and the
// product link never change after creation.
func (s *AuctionStore) Update(ctx context.Context, tx Execer, auction models.Auction) error {
	var closedAt any
	if auction.ClosedAt != nil {
		closedAt = auction.ClosedAt.UTC()
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE auctions
		SET status = $1, current_price = $2, current_bid_id = $3, winner_id = $4, closed_at = $5
		WHERE id = $6
	`, string(auction.Status), auction.CurrentPrice, auction.CurrentBidID, auction.WinnerID, closedAt, auction.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// HasOpenForProduct reports whether the product already backs an unclosed auction.
func (s *AuctionStore) HasOpenForProduct(ctx context.Context, tx Getter, productID string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM auctions WHERE product_id = $1 AND status <> 'closed')
	`, productID)
	return exists, err
}

// HasAnyForProduct reports whether any auction, closed or not, references the product.
func (s *AuctionStore) HasAnyForProduct(ctx context.Context, tx Getter, productID string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM auctions WHERE product_id = $1)`, productID)
	return exists, err
}

func (s *AuctionStore) Exists(ctx context.Context, auctionID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM auctions WHERE id = $1)`, auctionID)
	return exists, err
}

func (s *AuctionStore) GetView(ctx context.Context, auctionID string) (models.AuctionView, error) {
	var row auctionViewRow
	if err := s.db.GetContext(ctx, &row, auctionViewQuery+` WHERE a.id = $1`, auctionID); err != nil {
		return models.AuctionView{}, err
	}
	return row.view(), nil
}

func (s *AuctionStore) ListViews(ctx context.Context, filter AuctionFilter) ([]models.AuctionView, error) {
	query := auctionViewQuery + ` WHERE TRUE`
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += " AND a.status = $" + itoa(len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += " AND p.category = $" + itoa(len(args))
	}
	if filter.Condition != "" {
		args = append(args, filter.Condition)
		query += " AND p.condition = $" + itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += " AND (p.title ILIKE $" + itoa(len(args)) + " OR p.description ILIKE $" + itoa(len(args)) + ")"
	}
	query += " ORDER BY a.end_at ASC, a.id ASC"
	var rows []auctionViewRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	views := make([]models.AuctionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.view())
	}
	return views, nil
}

// ListUnclosed returns every auction the scheduler still has to drive.
func (s *AuctionStore) ListUnclosed(ctx context.Context) ([]models.Auction, error) {
	var rows []models.Auction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE status <> 'closed'
		ORDER BY start_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i] = normalizeAuction(rows[i])
	}
	return rows, nil
}

func normalizeAuction(auction models.Auction) models.Auction {
	auction.StartAt = auction.StartAt.UTC()
	auction.EndAt = auction.EndAt.UTC()
	auction.CreatedAt = auction.CreatedAt.UTC()
	if auction.ClosedAt != nil {
		closedAt := auction.ClosedAt.UTC()
		auction.ClosedAt = &closedAt
	}
	return auction
}
