package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction/internal/broker"
	"auction/internal/config"
	"auction/internal/db"
	"auction/internal/events"
	"auction/internal/handlers"
	"auction/internal/logger"
	"auction/internal/scheduler"
	"auction/internal/services"
	"auction/internal/store"
	"auction/internal/websocket"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", map[string]any{"error": err.Error()})
	}
	defer database.Close()

	users := store.NewUserStore(database)
	products := store.NewProductStore(database)
	auctions := store.NewAuctionStore(database)
	bids := store.NewBidStore(database)
	ledgerStore := store.NewLedgerStore(database)
	purchases := store.NewPurchaseStore(database)
	categories := store.NewCategoryStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)

	hub := websocket.NewHub()
	emitters := events.Fanout{hub}
	var publisher *broker.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = broker.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatal("failed to connect broker", map[string]any{"error": err.Error()})
		}
		emitters = append(emitters, publisher)
	}

	auctionService := services.NewAuctionService(txRunner, services.AuctionStores{
		Auctions:  auctions,
		Products:  products,
		Bids:      bids,
		Users:     users,
		Ledger:    ledgerStore,
		Purchases: purchases,
		Audit:     audit,
	}, emitters)
	accountService := services.NewAccountService(txRunner, users, ledgerStore, ledgerStore, products, audit, cfg.MaxCreditMinor)
	productService := services.NewProductService(txRunner, products, categories, auctions, audit)

	sched := scheduler.New(auctionService, auctions, scheduler.WithRetry(cfg.SchedulerRetry, cfg.SchedulerRetries))
	auctionService.AttachScheduler(sched)
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	err = sched.Start(startCtx)
	cancelStart()
	if err != nil {
		logger.Fatal("scheduler catch-up failed", map[string]any{"error": err.Error()})
	}

	handler := handlers.New(txRunner, cfg, handlers.Deps{
		Users:    users,
		Audit:    audit,
		Auctions: auctionService,
		Accounts: accountService,
		Products: productService,
	}, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("auction API listening", map[string]any{"addr": server.Addr, "env": cfg.AppEnv})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", map[string]any{"error": err.Error()})
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", map[string]any{"error": err.Error()})
	}
	sched.Stop()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("broker close error", map[string]any{"error": err.Error()})
		}
	}
	logger.Info("auction API stopped", nil)
}
