package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"auction/internal/db"
	"auction/internal/ledger"
	"auction/internal/models"
	"auction/internal/money"
	"auction/internal/store"

	"github.com/jmoiron/sqlx"
)

type LedgerReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]store.LedgerEntry, error)
}

type PurchasedProducts interface {
	ListPurchased(ctx context.Context, userID string) ([]models.Product, error)
}

// AccountService covers a user's own funds: credit, balance and purchases.
type AccountService struct {
	txRunner  db.TxRunner
	users     UserStore
	ledger    LedgerStore
	entries   LedgerReader
	purchased PurchasedProducts
	audit     AuditStore
	maxCredit int64
}

func NewAccountService(txRunner db.TxRunner, users UserStore, ledgerStore LedgerStore, entries LedgerReader, purchased PurchasedProducts, audit AuditStore, maxCredit int64) *AccountService {
	return &AccountService{
		txRunner:  txRunner,
		users:     users,
		ledger:    ledgerStore,
		entries:   entries,
		purchased: purchased,
		audit:     audit,
		maxCredit: maxCredit,
	}
}

// Credit adds amount to the user's balance and returns the updated user.
func (s *AccountService) Credit(ctx context.Context, userID string, amount int64) (models.User, error) {
	if amount <= 0 {
		return models.User{}, ErrInvalidAmount
	}
	if s.maxCredit > 0 && amount > s.maxCredit {
		return models.User{}, ErrCreditLimit
	}
	var updated models.User
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.users.GetForUpdate(ctx, tx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := ledger.Credit(&user, amount); err != nil {
			return err
		}
		if err := s.users.UpdateFunds(ctx, tx, user.ID, user.Balance, user.Held); err != nil {
			return err
		}
		entry := ledger.Entry(ledger.KindCredit, user.ID, "", "", amount, "account credit")
		if err := s.ledger.InsertEntries(ctx, tx, []store.LedgerEntryInput{entry}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"amount": money.FormatMinor(amount)})
		if err := s.audit.Log(ctx, tx, user.ID, "account.credit", "user", user.ID, string(data)); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

func (s *AccountService) Profile(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

func (s *AccountService) Purchases(ctx context.Context, userID string) ([]models.Product, error) {
	return s.purchased.ListPurchased(ctx, userID)
}

func (s *AccountService) Ledger(ctx context.Context, userID string, limit int) ([]store.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.entries.ListByUser(ctx, userID, limit)
}
