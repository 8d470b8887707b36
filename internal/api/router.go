package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"assetledger/internal/api/handlers"
	custommiddleware "assetledger/internal/api/middleware"
	"assetledger/internal/config"
	"assetledger/internal/pricefeed"
	"assetledger/internal/service"
)

// Services bundles everything the router needs wired in.
type Services struct {
	System    *service.SystemService
	Operation *service.OperationService
	Position  *service.PositionService
	Price     *service.PriceService
	Plan      *service.PlanService
	Backfill  *service.BackfillService
	Custodian *service.CustodianService
	Sync      *pricefeed.SyncService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/operation", func(r chi.Router) {
			operationHandler := handlers.NewOperationHandler(svc.Operation, svc.Position)
			r.Get("/", operationHandler.AllOperations)
			r.Post("/", operationHandler.CreateOperation)
			r.Post("/confirm-pending", operationHandler.ConfirmPending)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", operationHandler.GetOperation)
				r.Put("/", operationHandler.UpdateOperation)
				r.Delete("/", operationHandler.DeleteOperation)
			})
		})

		r.Route("/position", func(r chi.Router) {
			positionHandler := handlers.NewPositionHandler(svc.Position)
			r.Get("/", positionHandler.AllPositions)
			r.Get("/summary", positionHandler.Summary)
			r.Post("/rebuild", positionHandler.Rebuild)
		})

		r.Route("/price", func(r chi.Router) {
			priceHandler := handlers.NewPriceHandler(svc.Price)
			r.Post("/", priceHandler.UpsertPrice)
			r.Get("/{symbol}/latest", priceHandler.LatestPrice)
			r.Get("/{symbol}/history", priceHandler.PriceHistory)
			r.Get("/{symbol}/on/{date}", priceHandler.PriceOnDate)
		})

		r.Route("/plan", func(r chi.Router) {
			planHandler := handlers.NewPlanHandler(svc.Plan, svc.Backfill)
			r.Get("/", planHandler.AllPlans)
			r.Post("/", planHandler.CreatePlan)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", planHandler.GetPlan)
				r.Put("/", planHandler.UpdatePlan)
				r.Post("/pause", planHandler.Pause)
				r.Post("/resume", planHandler.Resume)
				r.Post("/stop", planHandler.Stop)
				r.Post("/execute", planHandler.Execute)
				r.Post("/backfill", planHandler.Backfill)
			})
		})

		// Custodian configuration carries credentials, so the namespace sits
		// behind the shared API key when one is configured.
		r.Route("/custodian", func(r chi.Router) {
			if cfg.Security.APIKey != "" {
				r.Use(custommiddleware.APIKeyMiddleware)
			}
			custodianHandler := handlers.NewCustodianHandler(svc.Custodian, svc.Sync)
			r.Get("/", custodianHandler.ListEnabled)
			r.Post("/", custodianHandler.Configure)
			r.Post("/sync", custodianHandler.Sync)
			r.Get("/{platform}", custodianHandler.GetConfig)
		})
	})

	return r
}
