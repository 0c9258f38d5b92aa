package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forumshop/internal/config"
	"forumshop/internal/db"
	"forumshop/internal/handlers"
	"forumshop/internal/imagehost"
	"forumshop/internal/logger"
	"forumshop/internal/services"
	"forumshop/internal/store"
	"forumshop/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.AppEnv,
	})

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close()

	categories := store.NewCategoryStore(database)
	items := store.NewItemStore(database)
	users := store.NewUserStore(database)
	inventory := store.NewInventoryStore(database)
	purchases := store.NewPurchaseStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database, cfg.TxMaxAttempts)
	hub := websocket.NewHub(cfg.Origins())

	userService := services.NewUserService(txRunner, users, inventory, audit, hub, cfg.StartingBalance())
	handler := handlers.New(cfg, handlers.Deps{
		Categories: services.NewCategoryService(txRunner, categories, items, audit),
		Items:      services.NewItemService(txRunner, items, categories, audit),
		Users:      userService,
		Purchases:  services.NewPurchaseService(txRunner, database, users, items, inventory, purchases, audit, hub, cfg.StrictPrices),
		Inventory:  services.NewInventoryService(txRunner, userService, inventory, audit, hub),
		Audit:      audit,
		Uploader:   imagehost.New(cfg.ImageHost, nil),
		Ping:       func(ctx context.Context) error { return db.Ping(ctx, database) },
		Hub:        hub,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("forum shop API listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
	}
	log.Info("server stopped")
}
