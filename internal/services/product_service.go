package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"auction/internal/db"
	"auction/internal/ids"
	"auction/internal/models"
	"auction/internal/store"

	"github.com/jmoiron/sqlx"
)

type CatalogStore interface {
	Create(ctx context.Context, tx store.Execer, product models.Product) error
	GetByID(ctx context.Context, productID string) (models.Product, error)
	GetForUpdate(ctx context.Context, tx store.Getter, productID string) (models.Product, error)
	AppendMedia(ctx context.Context, tx store.Execer, productID, reference string) error
	List(ctx context.Context, filter store.ProductFilter) ([]models.Product, error)
}

type CategoryStore interface {
	List(ctx context.Context) ([]store.Category, error)
	Exists(ctx context.Context, slug string) (bool, error)
}

type ProductAuctions interface {
	HasAnyForProduct(ctx context.Context, tx store.Getter, productID string) (bool, error)
}

type ProductService struct {
	txRunner   db.TxRunner
	products   CatalogStore
	categories CategoryStore
	auctions   ProductAuctions
	audit      AuditStore
	now        func() time.Time
}

func NewProductService(txRunner db.TxRunner, products CatalogStore, categories CategoryStore, auctions ProductAuctions, audit AuditStore) *ProductService {
	return &ProductService{
		txRunner:   txRunner,
		products:   products,
		categories: categories,
		auctions:   auctions,
		audit:      audit,
		now:        time.Now,
	}
}

type CreateProductRequest struct {
	OwnerID     string
	Title       string
	Description string
	Category    string
	Condition   string
	Media       []string
}

func (s *ProductService) CreateProduct(ctx context.Context, req CreateProductRequest) (models.Product, error) {
	if req.Condition != models.ConditionNew && req.Condition != models.ConditionUsed {
		return models.Product{}, ErrInvalidCondition
	}
	known, err := s.categories.Exists(ctx, req.Category)
	if err != nil {
		return models.Product{}, err
	}
	if !known {
		return models.Product{}, ErrUnknownCategory
	}
	media := req.Media
	if media == nil {
		media = []string{}
	}
	product := models.Product{
		ID:          ids.NewProduct(),
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Media:       media,
		CreatedAt:   s.now().UTC(),
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.products.Create(ctx, tx, product); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"title": product.Title, "category": product.Category})
		return s.audit.Log(ctx, tx, req.OwnerID, "product.created", "product", product.ID, string(data))
	})
	if err != nil {
		return models.Product{}, err
	}
	return product, nil
}

// AddMedia appends a media reference. Products already used by an auction are frozen.
func (s *ProductService) AddMedia(ctx context.Context, ownerID, productID, reference string) (models.Product, error) {
	var product models.Product
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.products.GetForUpdate(ctx, tx, productID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if current.OwnerID != ownerID {
			return ErrNotOwner
		}
		used, err := s.auctions.HasAnyForProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if used {
			return ErrProductLocked
		}
		if err := s.products.AppendMedia(ctx, tx, productID, reference); err != nil {
			return err
		}
		current.Media = append(current.Media, reference)
		product = current
		data, _ := json.Marshal(map[string]string{"reference": reference})
		return s.audit.Log(ctx, tx, ownerID, "product.media_added", "product", productID, string(data))
	})
	if err != nil {
		return models.Product{}, err
	}
	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrNotFound
	}
	return product, err
}

func (s *ProductService) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	return s.products.List(ctx, filter)
}

func (s *ProductService) Categories(ctx context.Context) ([]store.Category, error) {
	return s.categories.List(ctx)
}
