package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/access"
	"github.com/bcnelson/oxidized-inventory-sync/internal/api/handler"
	"github.com/bcnelson/oxidized-inventory-sync/internal/api/middleware"
	"github.com/bcnelson/oxidized-inventory-sync/internal/metrics"
	"github.com/bcnelson/oxidized-inventory-sync/internal/service"
)

// Deps are the components the router serves.
type Deps struct {
	Lister      service.DeviceLister
	SyncService *service.SyncService
	AllowList   *access.AllowList
	SyncTimeout time.Duration
	APIToken    string
	Logger      *zap.Logger
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger.Named("http")))

	// Health check (no access filter)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Access(deps.AllowList, logger.Named("access")))

		r.Handle("/metrics", metrics.Handler())

		devicesHandler := handler.NewDevicesHandler(deps.Lister, logger.Named("devices"))
		r.Get("/devices.csv", devicesHandler.CSV)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.ContentType)

			syncHandler := handler.NewSyncHandler(deps.SyncService, deps.SyncTimeout)
			r.Get("/status", syncHandler.Status)
			r.With(middleware.Auth(deps.APIToken)).Post("/sync", syncHandler.Trigger)
			r.Get("/sync/runs", syncHandler.History)
		})
	})

	return r
}
