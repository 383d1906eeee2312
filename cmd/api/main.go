package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pharmsource/sourcing-api/docs"
	"github.com/pharmsource/sourcing-api/internal/auth"
	"github.com/pharmsource/sourcing-api/internal/config"
	"github.com/pharmsource/sourcing-api/internal/database"
	"github.com/pharmsource/sourcing-api/internal/fxwarehouse"
	"github.com/pharmsource/sourcing-api/internal/http/handler"
	"github.com/pharmsource/sourcing-api/internal/http/middleware"
	"github.com/pharmsource/sourcing-api/internal/http/router"
	"github.com/pharmsource/sourcing-api/internal/jobs"
	"github.com/pharmsource/sourcing-api/internal/logger"
	"github.com/pharmsource/sourcing-api/internal/repository"
	"github.com/pharmsource/sourcing-api/internal/service"
	"github.com/pharmsource/sourcing-api/internal/storage"
	"go.uber.org/zap"
)

// @title PharmSource Sourcing API
// @version 1.0
// @description Product sourcing pipeline API for opportunity, supplier and pricing management

// @contact.name API Support
// @contact.email support@pharmsource.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token
// @Security BearerAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Environment),
		zap.Int("port", cfg.App.Port),
	)

	// Configure Swagger host based on environment
	switch cfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "sourcing-api-staging.pharmsource.io"
	case "production":
		docs.SwaggerInfo.Host = "api.pharmsource.io"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", cfg.App.Port)
	}

	// Connect to database with retry logic
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Schema is managed by the migrate command; development falls back to
	// AutoMigrate so a fresh checkout runs without extra steps.
	if cfg.App.Environment == "development" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize import payload archival
	archiver, err := storage.NewArchiver(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Initialize the finance warehouse connection (optional, read-only).
	// The app continues without it when not configured.
	var warehouse *fxwarehouse.Client
	if cfg.FxWarehouse.Enabled {
		warehouse, err = fxwarehouse.NewClient(&cfg.FxWarehouse, log)
		if err != nil {
			log.Warn("FX warehouse connection failed, continuing without it",
				zap.Error(err),
			)
		} else if warehouse != nil {
			log.Info("FX warehouse connected successfully",
				zap.Int("max_open_conns", cfg.FxWarehouse.MaxOpenConns),
				zap.Int("query_timeout_seconds", cfg.FxWarehouse.QueryTimeout),
			)
		}
	} else {
		log.Info("FX warehouse not configured, skipping")
	}

	// Initialize repositories
	oppRepo := repository.NewOpportunityRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	historyRepo := repository.NewStageHistoryRepository(db)
	batchRepo := repository.NewImportBatchRepository(db)
	fxRateRepo := repository.NewFxRateRepository(db)

	// Initialize services
	opportunityService := service.NewOpportunityService(oppRepo, supplierRepo, historyRepo, log, db)
	supplierService := service.NewSupplierService(supplierRepo, oppRepo, log, db)
	importService := service.NewImportService(batchRepo, archiver, log, db)
	fxRateService := service.NewFxRateService(fxRateRepo, warehouse, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	opportunityHandler := handler.NewOpportunityHandler(opportunityService, log)
	supplierHandler := handler.NewSupplierHandler(supplierService, log)
	importHandler := handler.NewImportHandler(importService, log)
	pricingHandler := handler.NewPricingHandler(fxRateService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		warehouse,
		authMiddleware,
		rateLimiter,
		opportunityHandler,
		supplierHandler,
		importHandler,
		pricingHandler,
	)

	// Initialize and start scheduler for background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)

		sweep := jobs.NewConsistencySweepJob(supplierService, log, 10*time.Minute)
		if err := scheduler.AddJob(jobs.ConsistencySweepJobName, cfg.Jobs.ConsistencySweepCron, sweep.Run); err != nil {
			log.Error("Failed to register consistency sweep job", zap.Error(err))
		}

		if warehouse.IsEnabled() {
			fxSync := jobs.NewFxSyncJob(fxRateService, log, 5*time.Minute)
			if err := scheduler.AddJob(jobs.FxSyncJobName, cfg.Jobs.FxSyncCron, fxSync.Run); err != nil {
				log.Error("Failed to register fx sync job", zap.Error(err))
			}
		}

		scheduler.Start()
		log.Info("Scheduler started",
			zap.Strings("jobs", scheduler.GetJobNames()),
			zap.String("consistency_sweep_cron", cfg.Jobs.ConsistencySweepCron),
			zap.String("fx_sync_cron", cfg.Jobs.FxSyncCron),
		)
	} else {
		log.Info("Background jobs disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Stop scheduler if running
		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Close warehouse connection if initialized
		if warehouse != nil {
			if err := warehouse.Close(); err != nil {
				log.Warn("Error closing FX warehouse connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
