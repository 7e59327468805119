package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"auction/internal/auth"
	"auction/internal/config"
	"auction/internal/models"
	"auction/internal/services"
	"auction/internal/store"
	"auction/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

type stubAuditStore struct {
	logFn          func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listByEntityFn func(ctx context.Context, entityType, entityID string, limit int) ([]store.AuditEntry, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]store.AuditEntry, error) {
	if s.listByEntityFn == nil {
		return []store.AuditEntry{}, nil
	}
	return s.listByEntityFn(ctx, entityType, entityID, limit)
}

type stubAuctionService struct {
	createFn   func(ctx context.Context, req services.CreateAuctionRequest) (models.Auction, error)
	placeBidFn func(ctx context.Context, req services.PlaceBidRequest) (services.PlaceBidResult, error)
	getFn      func(ctx context.Context, auctionID string) (models.AuctionView, error)
	listFn     func(ctx context.Context, filter store.AuctionFilter) ([]models.AuctionView, error)
	listBidsFn func(ctx context.Context, auctionID string) ([]models.BidView, error)
}

func (s stubAuctionService) CreateAuction(ctx context.Context, req services.CreateAuctionRequest) (models.Auction, error) {
	if s.createFn == nil {
		return models.Auction{}, nil
	}
	return s.createFn(ctx, req)
}

func (s stubAuctionService) PlaceBid(ctx context.Context, req services.PlaceBidRequest) (services.PlaceBidResult, error) {
	if s.placeBidFn == nil {
		return services.PlaceBidResult{}, nil
	}
	return s.placeBidFn(ctx, req)
}

func (s stubAuctionService) GetAuction(ctx context.Context, auctionID string) (models.AuctionView, error) {
	if s.getFn == nil {
		return models.AuctionView{}, nil
	}
	return s.getFn(ctx, auctionID)
}

func (s stubAuctionService) ListAuctions(ctx context.Context, filter store.AuctionFilter) ([]models.AuctionView, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, filter)
}

func (s stubAuctionService) ListBids(ctx context.Context, auctionID string) ([]models.BidView, error) {
	if s.listBidsFn == nil {
		return nil, nil
	}
	return s.listBidsFn(ctx, auctionID)
}

type stubAccountService struct {
	creditFn    func(ctx context.Context, userID string, amount int64) (models.User, error)
	profileFn   func(ctx context.Context, userID string) (models.User, error)
	purchasesFn func(ctx context.Context, userID string) ([]models.Product, error)
	ledgerFn    func(ctx context.Context, userID string, limit int) ([]store.LedgerEntry, error)
}

func (s stubAccountService) Credit(ctx context.Context, userID string, amount int64) (models.User, error) {
	if s.creditFn == nil {
		return models.User{}, nil
	}
	return s.creditFn(ctx, userID, amount)
}

func (s stubAccountService) Profile(ctx context.Context, userID string) (models.User, error) {
	if s.profileFn == nil {
		return models.User{}, nil
	}
	return s.profileFn(ctx, userID)
}

func (s stubAccountService) Purchases(ctx context.Context, userID string) ([]models.Product, error) {
	if s.purchasesFn == nil {
		return []models.Product{}, nil
	}
	return s.purchasesFn(ctx, userID)
}

func (s stubAccountService) Ledger(ctx context.Context, userID string, limit int) ([]store.LedgerEntry, error) {
	if s.ledgerFn == nil {
		return nil, nil
	}
	return s.ledgerFn(ctx, userID, limit)
}

type stubProductService struct {
	createFn     func(ctx context.Context, req services.CreateProductRequest) (models.Product, error)
	getFn        func(ctx context.Context, productID string) (models.Product, error)
	addMediaFn   func(ctx context.Context, ownerID, productID, reference string) (models.Product, error)
	listFn       func(ctx context.Context, filter store.ProductFilter) ([]models.Product, error)
	categoriesFn func(ctx context.Context) ([]store.Category, error)
}

func (s stubProductService) CreateProduct(ctx context.Context, req services.CreateProductRequest) (models.Product, error) {
	if s.createFn == nil {
		return models.Product{}, nil
	}
	return s.createFn(ctx, req)
}

func (s stubProductService) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	if s.getFn == nil {
		return models.Product{}, nil
	}
	return s.getFn(ctx, productID)
}

func (s stubProductService) AddMedia(ctx context.Context, ownerID, productID, reference string) (models.Product, error) {
	if s.addMediaFn == nil {
		return models.Product{}, nil
	}
	return s.addMediaFn(ctx, ownerID, productID, reference)
}

func (s stubProductService) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	if s.listFn == nil {
		return []models.Product{}, nil
	}
	return s.listFn(ctx, filter)
}

func (s stubProductService) Categories(ctx context.Context) ([]store.Category, error) {
	if s.categoriesFn == nil {
		return []store.Category{}, nil
	}
	return s.categoriesFn(ctx)
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:            "test",
		Port:              "0",
		JWTSecret:         "secret",
		TokenTTL:          time.Minute,
		AllowedOrigins:    "*",
		MinIncrementMinor: 5000,
	}
}

// newTestHandler fills every dependency the test leaves zero with a default stub.
func newTestHandler(txRunner fakeTxRunner, deps Deps) *Handler {
	if deps.Users == nil {
		deps.Users = stubUserStore{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAuditStore{}
	}
	if deps.Auctions == nil {
		deps.Auctions = stubAuctionService{}
	}
	if deps.Accounts == nil {
		deps.Accounts = stubAccountService{}
	}
	if deps.Products == nil {
		deps.Products = stubProductService{}
	}
	return New(txRunner, testConfig(), deps, websocket.NewHub())
}

// do sends a request through the full router. An empty userID sends no token.
func do(t *testing.T, handler *Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		token, err := auth.GenerateToken("secret", userID, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dest); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func stringPtr(value string) *string {
	return &value
}
