package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/splitledger/debtsync/internal/adapter/http/controller"
	"github.com/splitledger/debtsync/internal/adapter/http/middleware"
	"github.com/splitledger/debtsync/internal/adapter/http/router"
	"github.com/splitledger/debtsync/internal/adapter/repository/implementations"
	"github.com/splitledger/debtsync/internal/config"
	"github.com/splitledger/debtsync/internal/usecase/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := implementations.RunMigrations(ctx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	db, err := implementations.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	debtRepo := implementations.NewDebtRepository(db)
	intentionRepo := implementations.NewIntentionRepository(db)
	userRepo := implementations.NewUserRepository(db)
	receiptRepo := implementations.NewReceiptRepository(db)

	reconciler := services.NewReconcileService()
	batchService := services.NewBatchService(debtRepo, userRepo, receiptRepo, reconciler)
	intentionService := services.NewIntentionService(debtRepo, intentionRepo)
	userService := services.NewUserService(userRepo)

	authMiddleware := middleware.BasicAuth(cfg.ChannelID, cfg.ChannelKey)
	mux := router.New(
		controller.NewDebtController(batchService),
		controller.NewIntentionController(intentionService),
		controller.NewUserController(userService),
		authMiddleware,
	)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("debtsync listening on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("serve: %v", err)
	}
}
