package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"auction/internal/models"
	"auction/internal/store"

	"github.com/jmoiron/sqlx"
)

// memDB is an in-memory stand-in for the Postgres schema. memTxRunner
// serializes transactions and restores a snapshot when one fails, which is
// what a serializable transaction looks like from the service's side.
type memDB struct {
	mu        sync.Mutex
	users     map[string]models.User
	products  map[string]models.Product
	auctions  map[string]models.Auction
	bids      map[string]models.Bid
	purchases []models.Purchase
	entries   []store.LedgerEntryInput
	audit     []string

	failUpdateFunds error
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[string]models.User{},
		products: map[string]models.Product{},
		auctions: map[string]models.Auction{},
		bids:     map[string]models.Bid{},
	}
}

type memSnapshot struct {
	users     map[string]models.User
	products  map[string]models.Product
	auctions  map[string]models.Auction
	bids      map[string]models.Bid
	purchases []models.Purchase
	entries   []store.LedgerEntryInput
	audit     []string
}

func (m *memDB) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memSnapshot{
		users:     make(map[string]models.User, len(m.users)),
		products:  make(map[string]models.Product, len(m.products)),
		auctions:  make(map[string]models.Auction, len(m.auctions)),
		bids:      make(map[string]models.Bid, len(m.bids)),
		purchases: append([]models.Purchase(nil), m.purchases...),
		entries:   append([]store.LedgerEntryInput(nil), m.entries...),
		audit:     append([]string(nil), m.audit...),
	}
	for k, v := range m.users {
		snap.users[k] = v
	}
	for k, v := range m.products {
		v.Media = append([]string(nil), v.Media...)
		snap.products[k] = v
	}
	for k, v := range m.auctions {
		snap.auctions[k] = v
	}
	for k, v := range m.bids {
		snap.bids[k] = v
	}
	return snap
}

func (m *memDB) restore(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = snap.users
	m.products = snap.products
	m.auctions = snap.auctions
	m.bids = snap.bids
	m.purchases = snap.purchases
	m.entries = snap.entries
	m.audit = snap.audit
}

func (m *memDB) user(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memDB) auction(id string) models.Auction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auctions[id]
}

func (m *memDB) addUser(id string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = models.User{ID: id, Username: "user-" + id, Email: id + "@example.com", Balance: balance}
}

func (m *memDB) addProduct(id, ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = models.Product{ID: id, OwnerID: ownerID, Title: "product " + id, Category: "art", Condition: models.ConditionNew, Media: []string{}}
}

func (m *memDB) addAuction(auction models.Auction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auctions[auction.ID] = auction
}

func (m *memDB) countEntries(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, entry := range m.entries {
		if entry.Kind == kind {
			count++
		}
	}
	return count
}

type memTxRunner struct {
	mu      sync.Mutex
	db      *memDB
	failFor int
	failErr error
	calls   int
}

func (r *memTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failFor > 0 {
		r.failFor--
		return r.failErr
	}
	snap := r.db.snapshot()
	if err := fn(nil); err != nil {
		r.db.restore(snap)
		return err
	}
	return nil
}

type memAuctions struct{ db *memDB }

func (s memAuctions) Create(_ context.Context, _ store.Execer, auction models.Auction) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.auctions {
		if existing.ProductID == auction.ProductID && existing.Status != models.StatusClosed {
			return errors.New("duplicate open auction")
		}
	}
	s.db.auctions[auction.ID] = auction
	return nil
}

func (s memAuctions) GetForUpdate(_ context.Context, _ store.Getter, auctionID string) (models.Auction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	auction, ok := s.db.auctions[auctionID]
	if !ok {
		return models.Auction{}, sql.ErrNoRows
	}
	return auction, nil
}

func (s memAuctions) Update(_ context.Context, _ store.Execer, auction models.Auction) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.auctions[auction.ID]
	if !ok {
		return sql.ErrNoRows
	}
	existing.Status = auction.Status
	existing.CurrentPrice = auction.CurrentPrice
	existing.CurrentBidID = auction.CurrentBidID
	existing.WinnerID = auction.WinnerID
	existing.ClosedAt = auction.ClosedAt
	s.db.auctions[auction.ID] = existing
	return nil
}

func (s memAuctions) HasOpenForProduct(_ context.Context, _ store.Getter, productID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, auction := range s.db.auctions {
		if auction.ProductID == productID && auction.Status != models.StatusClosed {
			return true, nil
		}
	}
	return false, nil
}

func (s memAuctions) HasAnyForProduct(_ context.Context, _ store.Getter, productID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, auction := range s.db.auctions {
		if auction.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (s memAuctions) Exists(_ context.Context, auctionID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, ok := s.db.auctions[auctionID]
	return ok, nil
}

func (s memAuctions) GetView(_ context.Context, auctionID string) (models.AuctionView, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	auction, ok := s.db.auctions[auctionID]
	if !ok {
		return models.AuctionView{}, sql.ErrNoRows
	}
	return s.viewLocked(auction), nil
}

func (s memAuctions) ListViews(_ context.Context, filter store.AuctionFilter) ([]models.AuctionView, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	views := []models.AuctionView{}
	for _, auction := range s.db.auctions {
		product := s.db.products[auction.ProductID]
		if filter.Status != "" && auction.Status != filter.Status {
			continue
		}
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		if filter.Condition != "" && product.Condition != filter.Condition {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(product.Title), strings.ToLower(filter.Search)) {
			continue
		}
		views = append(views, s.viewLocked(auction))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

func (s memAuctions) viewLocked(auction models.Auction) models.AuctionView {
	product := s.db.products[auction.ProductID]
	count := 0
	for _, bid := range s.db.bids {
		if bid.AuctionID == auction.ID {
			count++
		}
	}
	view := models.AuctionView{
		Auction: auction,
		Product: models.ProductSummary{
			ID:        product.ID,
			OwnerID:   product.OwnerID,
			Title:     product.Title,
			Category:  product.Category,
			Condition: product.Condition,
			Media:     product.Media,
		},
		BidCount: count,
	}
	if auction.WinnerID != nil {
		name := s.db.users[*auction.WinnerID].Username
		view.WinnerUsername = &name
	}
	return view
}

func (s memAuctions) ListUnclosed(_ context.Context) ([]models.Auction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Auction
	for _, auction := range s.db.auctions {
		if auction.Status != models.StatusClosed {
			out = append(out, auction)
		}
	}
	return out, nil
}

type memProducts struct{ db *memDB }

func (s memProducts) Create(_ context.Context, _ store.Execer, product models.Product) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.products[product.ID] = product
	return nil
}

func (s memProducts) GetByID(ctx context.Context, productID string) (models.Product, error) {
	return s.GetForUpdate(ctx, nil, productID)
}

func (s memProducts) GetForUpdate(_ context.Context, _ store.Getter, productID string) (models.Product, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	product, ok := s.db.products[productID]
	if !ok {
		return models.Product{}, sql.ErrNoRows
	}
	return product, nil
}

func (s memProducts) OwnerID(_ context.Context, _ store.Getter, productID string) (string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	product, ok := s.db.products[productID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return product.OwnerID, nil
}

func (s memProducts) AppendMedia(_ context.Context, _ store.Execer, productID, reference string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	product, ok := s.db.products[productID]
	if !ok {
		return sql.ErrNoRows
	}
	product.Media = append(append([]string(nil), product.Media...), reference)
	s.db.products[productID] = product
	return nil
}

func (s memProducts) List(_ context.Context, filter store.ProductFilter) ([]models.Product, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	products := []models.Product{}
	for _, product := range s.db.products {
		if filter.OwnerID != "" && product.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s memProducts) ListPurchased(_ context.Context, userID string) ([]models.Product, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	products := []models.Product{}
	for _, purchase := range s.db.purchases {
		if purchase.UserID == userID {
			products = append(products, s.db.products[purchase.ProductID])
		}
	}
	return products, nil
}

type memBids struct{ db *memDB }

func (s memBids) Create(_ context.Context, _ store.Execer, bid models.Bid) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.bids[bid.ID] = bid
	return nil
}

func (s memBids) GetByID(_ context.Context, _ store.Getter, bidID string) (models.Bid, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	bid, ok := s.db.bids[bidID]
	if !ok {
		return models.Bid{}, sql.ErrNoRows
	}
	return bid, nil
}

func (s memBids) ListByAuction(_ context.Context, auctionID string) ([]models.BidView, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var bids []models.Bid
	for _, bid := range s.db.bids {
		if bid.AuctionID == auctionID {
			bids = append(bids, bid)
		}
	}
	sort.Slice(bids, func(i, j int) bool {
		if !bids[i].PlacedAt.Equal(bids[j].PlacedAt) {
			return bids[i].PlacedAt.After(bids[j].PlacedAt)
		}
		return bids[i].ID > bids[j].ID
	})
	views := make([]models.BidView, 0, len(bids))
	for _, bid := range bids {
		views = append(views, models.BidView{
			ID:       bid.ID,
			Amount:   bid.Amount,
			PlacedAt: bid.PlacedAt,
			Bidder:   models.Bidder{ID: bid.BidderID, Username: s.db.users[bid.BidderID].Username},
		})
	}
	return views, nil
}

type memUsers struct{ db *memDB }

func (s memUsers) GetByID(_ context.Context, userID string) (models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user, ok := s.db.users[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (s memUsers) GetForUpdate(ctx context.Context, _ store.Getter, userID string) (models.User, error) {
	return s.GetByID(ctx, userID)
}

func (s memUsers) UpdateFunds(_ context.Context, _ store.Execer, userID string, balance, held int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failUpdateFunds != nil {
		return s.db.failUpdateFunds
	}
	user, ok := s.db.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	if held < 0 || held > balance {
		return errors.New("check constraint users_held_within_balance")
	}
	user.Balance = balance
	user.Held = held
	s.db.users[userID] = user
	return nil
}

type memLedger struct{ db *memDB }

func (s memLedger) InsertEntries(_ context.Context, _ store.Execer, entries []store.LedgerEntryInput) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.entries = append(s.db.entries, entries...)
	return nil
}

type memPurchases struct{ db *memDB }

func (s memPurchases) Add(_ context.Context, _ store.Execer, purchase models.Purchase) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.purchases {
		if existing.AuctionID == purchase.AuctionID {
			return errors.New("duplicate purchase")
		}
	}
	s.db.purchases = append(s.db.purchases, purchase)
	return nil
}

type memAudit struct{ db *memDB }

func (s memAudit) Log(_ context.Context, _ store.Execer, _, action, _, entityID, _ string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.audit = append(s.db.audit, action+":"+entityID)
	return nil
}

// fakeClock is a settable clock shared by the service under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func memStores(db *memDB) AuctionStores {
	return AuctionStores{
		Auctions:  memAuctions{db},
		Products:  memProducts{db},
		Bids:      memBids{db},
		Users:     memUsers{db},
		Ledger:    memLedger{db},
		Purchases: memPurchases{db},
		Audit:     memAudit{db},
	}
}
