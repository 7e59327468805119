package store

import (
	"context"

	"auction/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, username, email, password_hash, balance, held, created_at`

func (s *UserStore) Create(ctx context.Context, tx Execer, id, username, email, passwordHash string) error {
	query := `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, id, username, email, passwordHash)
	return err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetForUpdate locks the user row until the transaction ends.
func (s *UserStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.User, error) {
	var user models.User
	err := tx.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserStore) UpdateFunds(ctx context.Context, tx Execer, userID string, balance, held int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET balance = $1, held = $2, updated_at = NOW()
		WHERE id = $3
	`, balance, held, userID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
