package store

import (
	"context"
	"time"

	"auction/internal/models"

	"github.com/lib/pq"
)

type ProductStore struct {
	db DB
}

type productRow struct {
	ID          string         `db:"id"`
	OwnerID     string         `db:"owner_id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Category    string         `db:"category"`
	Condition   string         `db:"condition"`
	Media       pq.StringArray `db:"media"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r productRow) model() models.Product {
	media := []string(r.Media)
	if media == nil {
		media = []string{}
	}
	return models.Product{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Condition:   r.Condition,
		Media:       media,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

// ProductFilter narrows List; empty fields match everything.
type ProductFilter struct {
	OwnerID  string
	Category string
	Search   string
}

const productColumns = `id, owner_id, title, description, category, condition, media, created_at`

func NewProductStore(db DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) Create(ctx context.Context, tx Execer, product models.Product) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO products (id, owner_id, title, description, category, condition, media)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, product.ID, product.OwnerID, product.Title, product.Description, product.Category, product.Condition, pq.Array(product.Media))
	return err
}

func (s *ProductStore) GetByID(ctx context.Context, productID string) (models.Product, error) {
	var row productRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID); err != nil {
		return models.Product{}, err
	}
	return row.model(), nil
}

// GetForUpdate locks the product row until the transaction ends.
func (s *ProductStore) GetForUpdate(ctx context.Context, tx Getter, productID string) (models.Product, error) {
	var row productRow
	if err := tx.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, productID); err != nil {
		return models.Product{}, err
	}
	return row.model(), nil
}

func (s *ProductStore) AppendMedia(ctx context.Context, tx Execer, productID, reference string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET media = array_append(media, $1)
		WHERE id = $2
	`, reference, productID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *ProductStore) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE TRUE`
	args := []any{}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		query += " AND owner_id = $" + itoa(len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += " AND category = $" + itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += " AND (title ILIKE $" + itoa(len(args)) + " OR description ILIKE $" + itoa(len(args)) + ")"
	}
	query += " ORDER BY created_at DESC, id DESC"
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return productRowsToModels(rows), nil
}

// ListPurchased returns the products a user has won, most recent first.
func (s *ProductStore) ListPurchased(ctx context.Context, userID string) ([]models.Product, error) {
	var rows []productRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.id, p.owner_id, p.title, p.description, p.category, p.condition, p.media, p.created_at
		FROM purchases pu
		JOIN products p ON p.id = pu.product_id
		WHERE pu.user_id = $1
		ORDER BY pu.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return productRowsToModels(rows), nil
}

func productRowsToModels(rows []productRow) []models.Product {
	products := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.model())
	}
	return products
}

// OwnerID reads the owner inside the caller's transaction without locking the product.
func (s *ProductStore) OwnerID(ctx context.Context, tx Getter, productID string) (string, error) {
	var ownerID string
	err := tx.GetContext(ctx, &ownerID, `SELECT owner_id FROM products WHERE id = $1`, productID)
	return ownerID, err
}
