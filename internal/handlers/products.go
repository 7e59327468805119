package handlers

import (
	"net/http"
	"strings"

	"auction/internal/services"
	"auction/internal/store"
	"auction/internal/validator"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.Categories(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "unable to load categories")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	products, err := h.products.ListProducts(r.Context(), store.ProductFilter{
		OwnerID:  strings.TrimSpace(query.Get("owner")),
		Category: strings.TrimSpace(query.Get("category")),
		Search:   strings.TrimSpace(query.Get("q")),
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to list products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "unable to load product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

type createProductRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Media       []string `json:"media"`
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateProduct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.products.CreateProduct(r.Context(), services.CreateProductRequest{
		OwnerID:     userID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Media:       req.Media,
	})
	if err != nil {
		respondServiceError(w, r, err, "unable to create product")
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func validateProduct(req createProductRequest) error {
	if err := validator.ValidateTitle(req.Title); err != nil {
		return err
	}
	if err := validator.ValidateDescription(req.Description); err != nil {
		return err
	}
	if err := validator.ValidateCondition(req.Condition); err != nil {
		return err
	}
	return validator.ValidateMedia(req.Media)
}

type addMediaRequest struct {
	Reference string `json:"reference"`
}

func (h *Handler) AddMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req addMediaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.ValidateMedia([]string{req.Reference}); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.products.AddMedia(r.Context(), userID, chi.URLParam(r, "id"), req.Reference)
	if err != nil {
		respondServiceError(w, r, err, "unable to add media")
		return
	}
	respondJSON(w, http.StatusOK, product)
}
