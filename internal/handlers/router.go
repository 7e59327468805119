package handlers

import (
	"net/http"
	"strings"

	"auction/internal/config"
	"auction/internal/db"
	"auction/internal/middleware"
	"auction/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	txRunner db.TxRunner
	cfg      config.Config
	users    UserStore
	audit    AuditStore
	auctions AuctionService
	accounts AccountService
	products ProductService
	hub      *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, deps Deps, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner: txRunner,
		cfg:      cfg,
		users:    deps.Users,
		audit:    deps.Audit,
		auctions: deps.Auctions,
		accounts: deps.Accounts,
		products: deps.Products,
		hub:      hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestLogger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(h.cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	requireAuth := middleware.Auth(h.cfg.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(requireAuth).Get("/me", h.Me)
	})
	router.Route("/me", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/credit", h.Credit)
		r.Get("/purchases", h.Purchases)
		r.Get("/ledger", h.Ledger)
	})
	router.Get("/categories", h.Categories)
	router.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.With(requireAuth).Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
		r.With(requireAuth).Post("/{id}/media", h.AddMedia)
	})
	router.Route("/auctions", func(r chi.Router) {
		r.Get("/", h.ListAuctions)
		r.With(requireAuth).Post("/", h.CreateAuction)
		r.Get("/{id}", h.GetAuction)
		r.Get("/{id}/bids", h.ListBids)
		r.With(requireAuth).Post("/{id}/bids", h.PlaceBid)
		r.With(requireAuth).Get("/{id}/audit", h.AuctionAudit)
	})
	router.Get("/ws/auctions", h.WSAllAuctions)
	router.Get("/ws/auctions/{id}", h.WSAuction)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}

// allowedOrigins splits a comma separated ALLOWED_ORIGINS value.
func allowedOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
