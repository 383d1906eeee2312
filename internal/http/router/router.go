package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pharmsource/sourcing-api/internal/auth"
	"github.com/pharmsource/sourcing-api/internal/config"
	"github.com/pharmsource/sourcing-api/internal/database"
	"github.com/pharmsource/sourcing-api/internal/fxwarehouse"
	"github.com/pharmsource/sourcing-api/internal/http/handler"
	"github.com/pharmsource/sourcing-api/internal/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/pharmsource/sourcing-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg                *config.Config
	logger             *zap.Logger
	db                 *gorm.DB
	warehouse          *fxwarehouse.Client
	authMiddleware     *auth.Middleware
	rateLimiter        *middleware.RateLimiter
	opportunityHandler *handler.OpportunityHandler
	supplierHandler    *handler.SupplierHandler
	importHandler      *handler.ImportHandler
	pricingHandler     *handler.PricingHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	warehouse *fxwarehouse.Client,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	opportunityHandler *handler.OpportunityHandler,
	supplierHandler *handler.SupplierHandler,
	importHandler *handler.ImportHandler,
	pricingHandler *handler.PricingHandler,
) *Router {
	return &Router{
		cfg:                cfg,
		logger:             logger,
		db:                 db,
		warehouse:          warehouse,
		authMiddleware:     authMiddleware,
		rateLimiter:        rateLimiter,
		opportunityHandler: opportunityHandler,
		supplierHandler:    supplierHandler,
		importHandler:      importHandler,
		pricingHandler:     pricingHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.authMiddleware.Identify)
	r.Use(rt.rateLimiter.Limit)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
				"max_idle_closed":      stats.MaxIdleClosed,
				"max_lifetime_closed":  stats.MaxLifetimeClosed,
			},
		})
	})

	// Combined readiness check. The FX warehouse is advisory and reported
	// but never fails readiness.
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		checks["fx_warehouse"] = rt.warehouse.HealthCheck(r.Context())

		w.Header().Set("Content-Type", "application/json")
		status := "healthy"
		code := http.StatusOK
		if !allHealthy {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Opportunities
		r.Route("/opportunities", func(r chi.Router) {
			r.Get("/", rt.opportunityHandler.List)
			r.Post("/", rt.opportunityHandler.Create)
			r.Get("/{id}", rt.opportunityHandler.GetByID)
			r.Put("/{id}", rt.opportunityHandler.Update)
			r.Delete("/{id}", rt.opportunityHandler.Delete)
			r.Put("/{id}/stage", rt.opportunityHandler.ChangeStage)
			r.Get("/{id}/history", rt.opportunityHandler.GetStageHistory)
		})

		// Suppliers
		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", rt.supplierHandler.List)
			r.Post("/", rt.supplierHandler.Create)
			r.Get("/by-product", rt.supplierHandler.ListByProduct)
			r.Delete("/by-name", rt.supplierHandler.DeleteByName)
			r.Get("/{id}", rt.supplierHandler.GetByID)
			r.Put("/{id}", rt.supplierHandler.Update)
			r.Delete("/{id}", rt.supplierHandler.Delete)
		})

		// Bulk import
		r.Route("/import", func(r chi.Router) {
			r.Post("/validate", rt.importHandler.Validate)
			r.Post("/commit", rt.importHandler.Commit)
			r.Get("/batches", rt.importHandler.ListBatches)
			r.Get("/batches/{id}", rt.importHandler.GetBatch)
		})

		// Pricing
		r.Post("/pricing/preview", rt.pricingHandler.Preview)
		r.Get("/fx-rates", rt.pricingHandler.ListFxRates)

		// Dashboard
		r.Get("/pipeline", rt.opportunityHandler.GetPipelineOverview)
		r.Get("/dashboard/summary", rt.opportunityHandler.GetDashboardSummary)
	})

	return r
}
