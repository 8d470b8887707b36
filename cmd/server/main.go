package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assetledger/internal/api"
	"assetledger/internal/config"
	"assetledger/internal/database"
	"assetledger/internal/pricefeed"
	"assetledger/internal/repository"
	"assetledger/internal/scheduler"
	"assetledger/internal/secrets"
	"assetledger/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Apply schema migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Credential encryption
	box, err := secrets.NewBox(cfg.Security.FernetKey)
	if err != nil {
		log.Fatalf("Failed to load encryption key: %v", err)
	}

	// Create repositories
	operationRepo := repository.NewOperationRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	planRepo := repository.NewPlanRepository(db)
	custodianRepo := repository.NewCustodianRepository(db)

	// Create services
	systemService := service.NewSystemService(db)
	priceService := service.NewPriceService(priceRepo)
	positionService := service.NewPositionService(db, positionRepo, operationRepo, priceService)
	operationService := service.NewOperationService(db, operationRepo, priceService, positionService)
	planService := service.NewPlanService(planRepo, operationRepo, operationService, priceService)
	backfillService := service.NewBackfillService(planRepo, operationRepo, priceService, positionService, planService)
	custodianService := service.NewCustodianService(custodianRepo, box)

	syncService := pricefeed.NewSyncService(
		pricefeed.NewClient(),
		priceService,
		operationService,
		custodianService,
	)

	// Background jobs
	sched, err := scheduler.New(cfg.Scheduler, syncService, planService)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Create router
	router := api.NewRouter(api.Services{
		System:    systemService,
		Operation: operationService,
		Position:  positionService,
		Price:     priceService,
		Plan:      planService,
		Backfill:  backfillService,
		Custodian: custodianService,
		Sync:      syncService,
	}, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
