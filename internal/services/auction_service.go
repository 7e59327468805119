package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"auction/internal/db"
	"auction/internal/events"
	"auction/internal/ids"
	"auction/internal/ledger"
	"auction/internal/logger"
	"auction/internal/models"
	"auction/internal/money"
	"auction/internal/store"

	"github.com/jmoiron/sqlx"
)

type AuctionStore interface {
	Create(ctx context.Context, tx store.Execer, auction models.Auction) error
	GetForUpdate(ctx context.Context, tx store.Getter, auctionID string) (models.Auction, error)
	Update(ctx context.Context, tx store.Execer, auction models.Auction) error
	HasOpenForProduct(ctx context.Context, tx store.Getter, productID string) (bool, error)
	Exists(ctx context.Context, auctionID string) (bool, error)
	GetView(ctx context.Context, auctionID string) (models.AuctionView, error)
	ListViews(ctx context.Context, filter store.AuctionFilter) ([]models.AuctionView, error)
}

type ProductStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, productID string) (models.Product, error)
	OwnerID(ctx context.Context, tx store.Getter, productID string) (string, error)
}

type BidStore interface {
	Create(ctx context.Context, tx store.Execer, bid models.Bid) error
	GetByID(ctx context.Context, tx store.Getter, bidID string) (models.Bid, error)
	ListByAuction(ctx context.Context, auctionID string) ([]models.BidView, error)
}

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.User, error)
	UpdateFunds(ctx context.Context, tx store.Execer, userID string, balance, held int64) error
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
}

type PurchaseStore interface {
	Add(ctx context.Context, tx store.Execer, purchase models.Purchase) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

// Scheduler receives auctions created after startup.
type Scheduler interface {
	Schedule(auction models.Auction)
}

// AuctionStores groups the persistence the auction engine writes through.
type AuctionStores struct {
	Auctions  AuctionStore
	Products  ProductStore
	Bids      BidStore
	Users     UserStore
	Ledger    LedgerStore
	Purchases PurchaseStore
	Audit     AuditStore
}

// AuctionService owns every state change of an auction. Open, Close and
// PlaceBid for one auction are serialized by a per-auction lock and each runs
// as a single transaction; events are emitted after commit, before the lock
// is released.
type AuctionService struct {
	txRunner  db.TxRunner
	auctions  AuctionStore
	products  ProductStore
	bids      BidStore
	users     UserStore
	ledger    LedgerStore
	purchases PurchaseStore
	audit     AuditStore
	emitter   events.Emitter
	scheduler Scheduler
	locks     *keyedMutex
	now       func() time.Time
}

func NewAuctionService(txRunner db.TxRunner, stores AuctionStores, emitter events.Emitter) *AuctionService {
	if emitter == nil {
		emitter = events.Discard{}
	}
	return &AuctionService{
		txRunner:  txRunner,
		auctions:  stores.Auctions,
		products:  stores.Products,
		bids:      stores.Bids,
		users:     stores.Users,
		ledger:    stores.Ledger,
		purchases: stores.Purchases,
		audit:     stores.Audit,
		emitter:   emitter,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// AttachScheduler hands newly created auctions to s. The scheduler itself
// calls back into Open and Close, so it is attached after construction.
func (s *AuctionService) AttachScheduler(scheduler Scheduler) {
	s.scheduler = scheduler
}

func (s *AuctionService) clock() time.Time {
	return s.now().UTC()
}

// Open moves a scheduled auction to running once its start has passed.
// Anything else is a no-op.
func (s *AuctionService) Open(ctx context.Context, auctionID string) error {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	now := s.clock()
	var changed []events.StatusChanged
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		changed = nil
		auction, err := s.auctions.GetForUpdate(ctx, tx, auctionID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if !auction.OpenDue(now) {
			return nil
		}
		event, err := s.applyOpen(ctx, tx, &auction)
		if err != nil {
			return err
		}
		changed = append(changed, event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("open auction %s: %w", auctionID, err)
	}
	s.emitStatus(changed)
	return nil
}

// Close ends an auction whose end has passed and settles the leading bid.
// Closing an already closed auction is a no-op.
func (s *AuctionService) Close(ctx context.Context, auctionID string) error {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	now := s.clock()
	var changed []events.StatusChanged
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		changed = nil
		auction, err := s.auctions.GetForUpdate(ctx, tx, auctionID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if !auction.CloseDue(now) {
			return nil
		}
		event, err := s.applyClose(ctx, tx, &auction, now)
		if err != nil {
			return err
		}
		changed = append(changed, event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("close auction %s: %w", auctionID, err)
	}
	s.emitStatus(changed)
	return nil
}

type PlaceBidRequest struct {
	AuctionID string
	BidderID  string
	Amount    int64
}

type PlaceBidResult struct {
	BidID        string
	CurrentPrice int64
}

// PlaceBid validates and records a bid. Due transitions are applied first
// under the same lock, so a bid arriving after the deadline closes the
// auction and is rejected with ErrAuctionNotOpen.
func (s *AuctionService) PlaceBid(ctx context.Context, req PlaceBidRequest) (PlaceBidResult, error) {
	unlock := s.locks.Lock(req.AuctionID)
	defer unlock()

	now := s.clock()
	var (
		result  PlaceBidResult
		changed []events.StatusChanged
		bidErr  error
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = PlaceBidResult{}
		changed = nil
		bidErr = nil

		auction, err := s.auctions.GetForUpdate(ctx, tx, req.AuctionID)
		if errors.Is(err, sql.ErrNoRows) {
			bidErr = ErrNotFound
			return nil
		}
		if err != nil {
			return err
		}

		switch {
		case auction.CloseDue(now):
			event, err := s.applyClose(ctx, tx, &auction, now)
			if err != nil {
				return err
			}
			changed = append(changed, event)
		case auction.OpenDue(now):
			event, err := s.applyOpen(ctx, tx, &auction)
			if err != nil {
				return err
			}
			changed = append(changed, event)
		}

		if !auction.AcceptsBids(now) {
			bidErr = ErrAuctionNotOpen
			return nil
		}
		if req.Amount <= 0 || req.Amount < auction.MinimumBid() {
			bidErr = ErrBidTooLow
			return nil
		}
		ownerID, err := s.products.OwnerID(ctx, tx, auction.ProductID)
		if err != nil {
			return err
		}
		if ownerID == req.BidderID {
			bidErr = ErrSelfBid
			return nil
		}

		var previous *models.Bid
		if auction.CurrentBidID != nil {
			bid, err := s.bids.GetByID(ctx, tx, *auction.CurrentBidID)
			if err != nil {
				return err
			}
			previous = &bid
		}

		leaderID := ""
		if previous != nil {
			leaderID = previous.BidderID
		}
		bidder, leader, err := lockBidders(ctx, tx, s.users, req.BidderID, leaderID)
		if errors.Is(err, sql.ErrNoRows) {
			bidErr = ErrNotFound
			return nil
		}
		if err != nil {
			return err
		}

		// Funds are checked against the current hold, before any release.
		if !ledger.CanReserve(*bidder, req.Amount) {
			bidErr = ErrInsufficientFunds
			return nil
		}

		var entries []store.LedgerEntryInput
		if previous != nil {
			target, description := leader, "outbid"
			if leader == nil {
				target, description = bidder, "raised own bid"
			}
			if err := ledger.Release(target, previous.Amount); err != nil {
				return s.invariant(auction.ID, err)
			}
			entries = append(entries, ledger.Entry(ledger.KindRelease, target.ID, auction.ID, previous.ID, previous.Amount, description))
		}

		bid := models.Bid{
			ID:        ids.NewBid(),
			AuctionID: auction.ID,
			BidderID:  req.BidderID,
			Amount:    req.Amount,
			PlacedAt:  now,
		}
		if err := ledger.Reserve(bidder, req.Amount); err != nil {
			return s.invariant(auction.ID, err)
		}
		entries = append(entries, ledger.Entry(ledger.KindHold, bidder.ID, auction.ID, bid.ID, bid.Amount, "bid hold"))

		if leader != nil {
			if err := s.users.UpdateFunds(ctx, tx, leader.ID, leader.Balance, leader.Held); err != nil {
				return err
			}
		}
		if err := s.users.UpdateFunds(ctx, tx, bidder.ID, bidder.Balance, bidder.Held); err != nil {
			return err
		}
		if err := s.bids.Create(ctx, tx, bid); err != nil {
			return err
		}
		auction.CurrentPrice = bid.Amount
		auction.CurrentBidID = &bid.ID
		if err := s.auctions.Update(ctx, tx, auction); err != nil {
			return err
		}
		if err := s.ledger.InsertEntries(ctx, tx, entries); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"bid_id": bid.ID,
			"amount": money.FormatMinor(bid.Amount),
		})
		if err := s.audit.Log(ctx, tx, req.BidderID, "bid.placed", "auction", auction.ID, string(data)); err != nil {
			return err
		}
		result = PlaceBidResult{BidID: bid.ID, CurrentPrice: bid.Amount}
		return nil
	})
	if err != nil {
		return PlaceBidResult{}, fmt.Errorf("place bid on %s: %w", req.AuctionID, err)
	}
	s.emitStatus(changed)
	if bidErr != nil {
		return PlaceBidResult{}, bidErr
	}
	s.emitter.EmitPriceChanged(events.PriceChanged{
		AuctionID:    req.AuctionID,
		CurrentPrice: money.FormatMinor(result.CurrentPrice),
		BidID:        result.BidID,
	})
	return result, nil
}

type CreateAuctionRequest struct {
	SellerID     string
	ProductID    string
	StartPrice   int64
	MinIncrement int64
	StartAt      time.Time
	EndAt        time.Time
}

func (s *AuctionService) CreateAuction(ctx context.Context, req CreateAuctionRequest) (models.Auction, error) {
	if req.StartPrice < 0 || req.MinIncrement < 0 {
		return models.Auction{}, ErrInvalidAmount
	}
	if !req.EndAt.After(req.StartAt) {
		return models.Auction{}, ErrInvalidWindow
	}
	var auction models.Auction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		product, err := s.products.GetForUpdate(ctx, tx, req.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if product.OwnerID != req.SellerID {
			return ErrNotOwner
		}
		open, err := s.auctions.HasOpenForProduct(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		if open {
			return ErrProductInAuction
		}
		auction = models.Auction{
			ID:           ids.NewAuction(),
			ProductID:    product.ID,
			StartPrice:   req.StartPrice,
			MinIncrement: req.MinIncrement,
			StartAt:      req.StartAt.UTC(),
			EndAt:        req.EndAt.UTC(),
			Status:       models.StatusScheduled,
			CurrentPrice: req.StartPrice,
			CreatedAt:    s.clock(),
		}
		if err := s.auctions.Create(ctx, tx, auction); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrProductInAuction
			}
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"product_id":  product.ID,
			"start_price": money.FormatMinor(auction.StartPrice),
			"start_at":    auction.StartAt.Format(time.RFC3339),
			"end_at":      auction.EndAt.Format(time.RFC3339),
		})
		return s.audit.Log(ctx, tx, req.SellerID, "auction.created", "auction", auction.ID, string(data))
	})
	if err != nil {
		return models.Auction{}, err
	}
	if s.scheduler != nil {
		s.scheduler.Schedule(auction)
	}
	return auction, nil
}

// GetAuction reads a consistent snapshot and never changes state.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (models.AuctionView, error) {
	view, err := s.auctions.GetView(ctx, auctionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AuctionView{}, ErrNotFound
	}
	return view, err
}

func (s *AuctionService) ListAuctions(ctx context.Context, filter store.AuctionFilter) ([]models.AuctionView, error) {
	return s.auctions.ListViews(ctx, filter)
}

// ListBids returns the bid history of an auction, newest first.
func (s *AuctionService) ListBids(ctx context.Context, auctionID string) ([]models.BidView, error) {
	bids, err := s.bids.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if len(bids) > 0 {
		return bids, nil
	}
	exists, err := s.auctions.Exists(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return bids, nil
}

func (s *AuctionService) applyOpen(ctx context.Context, tx *sqlx.Tx, auction *models.Auction) (events.StatusChanged, error) {
	auction.Status = models.StatusRunning
	if err := s.auctions.Update(ctx, tx, *auction); err != nil {
		return events.StatusChanged{}, err
	}
	if err := s.audit.Log(ctx, tx, "", "auction.opened", "auction", auction.ID, "{}"); err != nil {
		return events.StatusChanged{}, err
	}
	return events.StatusChanged{AuctionID: auction.ID, Status: models.StatusRunning}, nil
}

// applyClose settles the leading bid, if any, and marks the auction closed.
func (s *AuctionService) applyClose(ctx context.Context, tx *sqlx.Tx, auction *models.Auction, now time.Time) (events.StatusChanged, error) {
	if auction.CurrentBidID != nil {
		bid, err := s.bids.GetByID(ctx, tx, *auction.CurrentBidID)
		if err != nil {
			return events.StatusChanged{}, err
		}
		if bid.Amount != auction.CurrentPrice {
			return events.StatusChanged{}, s.invariant(auction.ID, fmt.Errorf("%w: leading bid %s is %d, price is %d", ledger.ErrInvariantViolation, bid.ID, bid.Amount, auction.CurrentPrice))
		}
		if auction.WinnerID != nil && *auction.WinnerID != bid.BidderID {
			return events.StatusChanged{}, s.invariant(auction.ID, fmt.Errorf("%w: winner %s differs from leader %s", ledger.ErrInvariantViolation, *auction.WinnerID, bid.BidderID))
		}
		winner, err := s.users.GetForUpdate(ctx, tx, bid.BidderID)
		if err != nil {
			return events.StatusChanged{}, err
		}
		if err := ledger.Settle(&winner, bid.Amount); err != nil {
			return events.StatusChanged{}, s.invariant(auction.ID, err)
		}
		if err := s.users.UpdateFunds(ctx, tx, winner.ID, winner.Balance, winner.Held); err != nil {
			return events.StatusChanged{}, err
		}
		entry := ledger.Entry(ledger.KindSettle, winner.ID, auction.ID, bid.ID, bid.Amount, "auction won")
		if err := s.ledger.InsertEntries(ctx, tx, []store.LedgerEntryInput{entry}); err != nil {
			return events.StatusChanged{}, err
		}
		if err := s.purchases.Add(ctx, tx, models.Purchase{
			UserID:    winner.ID,
			ProductID: auction.ProductID,
			AuctionID: auction.ID,
			Amount:    bid.Amount,
			CreatedAt: now,
		}); err != nil {
			return events.StatusChanged{}, err
		}
		auction.WinnerID = &winner.ID
	}
	closedAt := now
	auction.Status = models.StatusClosed
	auction.ClosedAt = &closedAt
	if err := s.auctions.Update(ctx, tx, *auction); err != nil {
		return events.StatusChanged{}, err
	}
	data, _ := json.Marshal(map[string]any{
		"winner_id":   auction.WinnerID,
		"final_price": money.FormatMinor(auction.CurrentPrice),
	})
	if err := s.audit.Log(ctx, tx, "", "auction.closed", "auction", auction.ID, string(data)); err != nil {
		return events.StatusChanged{}, err
	}
	return events.StatusChanged{AuctionID: auction.ID, Status: models.StatusClosed, WinnerID: auction.WinnerID}, nil
}

func (s *AuctionService) invariant(auctionID string, err error) error {
	logger.Error("ledger invariant violated", map[string]any{
		"auction_id": auctionID,
		"error":      err.Error(),
	})
	return err
}

func (s *AuctionService) emitStatus(changed []events.StatusChanged) {
	for _, event := range changed {
		s.emitter.EmitStatusChanged(event)
	}
}

// lockBidders locks the bidder and the current leader in id order. leader is
// nil when there is no previous bid or the bidder already leads.
func lockBidders(ctx context.Context, tx store.Getter, users UserStore, bidderID, leaderID string) (*models.User, *models.User, error) {
	if leaderID == "" || leaderID == bidderID {
		bidder, err := users.GetForUpdate(ctx, tx, bidderID)
		if err != nil {
			return nil, nil, err
		}
		return &bidder, nil, nil
	}
	firstID, secondID := orderedIDs(bidderID, leaderID)
	first, err := users.GetForUpdate(ctx, tx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := users.GetForUpdate(ctx, tx, secondID)
	if err != nil {
		return nil, nil, err
	}
	if firstID == bidderID {
		return &first, &second, nil
	}
	return &second, &first, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}
