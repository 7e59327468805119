package handlers

import (
	"context"

	"auction/internal/models"
	"auction/internal/services"
	"auction/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]store.AuditEntry, error)
}

type AuctionService interface {
	CreateAuction(ctx context.Context, req services.CreateAuctionRequest) (models.Auction, error)
	PlaceBid(ctx context.Context, req services.PlaceBidRequest) (services.PlaceBidResult, error)
	GetAuction(ctx context.Context, auctionID string) (models.AuctionView, error)
	ListAuctions(ctx context.Context, filter store.AuctionFilter) ([]models.AuctionView, error)
	ListBids(ctx context.Context, auctionID string) ([]models.BidView, error)
}

type AccountService interface {
	Credit(ctx context.Context, userID string, amount int64) (models.User, error)
	Profile(ctx context.Context, userID string) (models.User, error)
	Purchases(ctx context.Context, userID string) ([]models.Product, error)
	Ledger(ctx context.Context, userID string, limit int) ([]store.LedgerEntry, error)
}

type ProductService interface {
	CreateProduct(ctx context.Context, req services.CreateProductRequest) (models.Product, error)
	GetProduct(ctx context.Context, productID string) (models.Product, error)
	AddMedia(ctx context.Context, ownerID, productID, reference string) (models.Product, error)
	ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error)
	Categories(ctx context.Context) ([]store.Category, error)
}

// Deps groups what the HTTP layer talks to.
type Deps struct {
	Users    UserStore
	Audit    AuditStore
	Auctions AuctionService
	Accounts AccountService
	Products ProductService
}
