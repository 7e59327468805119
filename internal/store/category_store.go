package store

import "context"

type Category struct {
	Slug  string `db:"slug" json:"slug"`
	Label string `db:"label" json:"label"`
}

type CategoryStore struct {
	db DB
}

func NewCategoryStore(db DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) List(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.db.SelectContext(ctx, &categories, `SELECT slug, label FROM categories ORDER BY position ASC, slug ASC`); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []Category{}
	}
	return categories, nil
}

func (s *CategoryStore) Exists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1)`, slug)
	return exists, err
}
