package handlers

import (
	"context"
	"net/http"
	"testing"

	"auction/internal/models"
	"auction/internal/services"
	"auction/internal/store"

	"github.com/stretchr/testify/require"
)

func TestCategories(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, Deps{Products: stubProductService{
		categoriesFn: func(context.Context) ([]store.Category, error) {
			return []store.Category{{Slug: "art", Label: "Art"}}, nil
		},
	}})
	rr := do(t, handler, http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var payload []store.Category
	decodeBody(t, rr, &payload)
	require.Equal(t, []store.Category{{Slug: "art", Label: "Art"}}, payload)
}

func TestListProductsPassesFilters(t *testing.T) {
	var got store.ProductFilter
	handler := newTestHandler(fakeTxRunner{}, Deps{Products: stubProductService{
		listFn: func(_ context.Context, filter store.ProductFilter) ([]models.Product, error) {
			got = filter
			return []models.Product{}, nil
		},
	}})
	rr := do(t, handler, http.MethodGet, "/products?owner=usr_1&category=art&q=lamp", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, store.ProductFilter{OwnerID: "usr_1", Category: "art", Search: "lamp"}, got)
}

func TestGetProduct(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, Deps{Products: stubProductService{
		getFn: func(_ context.Context, id string) (models.Product, error) {
			if id != "prd_1" {
				return models.Product{}, services.ErrNotFound
			}
			return models.Product{ID: id, Title: "Lamp", Media: []string{}}, nil
		},
	}})
	rr := do(t, handler, http.MethodGet, "/products/prd_1", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, handler, http.MethodGet, "/products/prd_2", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateProduct(t *testing.T) {
	var got services.CreateProductRequest
	handler := newTestHandler(fakeTxRunner{}, Deps{Products: stubProductService{
		createFn: func(_ context.Context, req services.CreateProductRequest) (models.Product, error) {
			got = req
			return models.Product{ID: "prd_1", OwnerID: req.OwnerID, Title: req.Title, Media: req.Media}, nil
		},
	}})

	rr := do(t, handler, http.MethodPost, "/products", "usr_1", map[string]any{
		"title":     "  Brass lamp ",
		"category":  "art",
		"condition": "used",
		"media":     []string{"https://cdn.example.com/lamp.jpg"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Equal(t, "usr_1", got.OwnerID)
	require.Equal(t, "Brass lamp", got.Title)
	require.Equal(t, "used", got.Condition)
}

func TestCreateProductValidation(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, Deps{Products: stubProductService{
		createFn: func(context.Context, services.CreateProductRequest) (models.Product, error) {
			return models.Product{}, services.ErrUnknownCategory
		},
	}})

	rr := do(t, handler, http.MethodPost, "/products", "usr_1", map[string]any{"title": "", "category": "art", "condition": "new"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, handler, http.MethodPost, "/products", "usr_1", map[string]any{"title": "Lamp", "category": "art", "condition": "mint"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, handler, http.MethodPost, "/products", "usr_1", map[string]any{"title": "Lamp", "category": "art", "condition": "new", "media": []string{"ftp://x/y"}})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, handler, http.MethodPost, "/products", "usr_1", map[string]any{"title": "Lamp", "category": "boats", "condition": "new"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var payload map[string]string
	decodeBody(t, rr, &payload)
	require.Equal(t, "unknown_category", payload["code"])

	rr = do(t, handler, http.MethodPost, "/products", "", map[string]any{"title": "Lamp", "category": "art", "condition": "new"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAddMedia(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "ok", status: http.StatusOK},
		{name: "not owner", err: services.ErrNotOwner, status: http.StatusForbidden},
		{name: "locked", err: services.ErrProductLocked, status: http.StatusConflict},
		{name: "missing", err: services.ErrNotFound, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(fakeTxRunner{}, Deps{Products: stubProductService{
				addMediaFn: func(_ context.Context, ownerID, productID, reference string) (models.Product, error) {
					require.Equal(t, "usr_1", ownerID)
					require.Equal(t, "prd_1", productID)
					require.Equal(t, "uploads/prd_1/a.jpg", reference)
					return models.Product{ID: productID, Media: []string{reference}}, tt.err
				},
			}})
			rr := do(t, handler, http.MethodPost, "/products/prd_1/media", "usr_1", map[string]string{"reference": "uploads/prd_1/a.jpg"})
			require.Equal(t, tt.status, rr.Code)
		})
	}
}
