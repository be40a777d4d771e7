package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/leadgen-dispatch/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/leadgen-dispatch/internal/http/middleware"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	Dispatch         *handlers.DispatchHandler
	ErrorLog         *handlers.ErrorLogHandler
	Triage           *handlers.TriageHandler
	AuthJWTSecret    string
	MetricsHandler   http.Handler
	HealthDependency Pinger
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", healthHandler(cfg.HealthDependency))
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Group(func(protected chi.Router) {
		protected.Use(httpmiddleware.UserJWT(cfg.AuthJWTSecret))
		if cfg.Dispatch != nil {
			protected.Post("/campaigns/{campaignID}/dispatch", cfg.Dispatch.Dispatch)
		}
		if cfg.ErrorLog != nil {
			protected.Get("/campaigns/{campaignID}/errors", cfg.ErrorLog.List)
		}
		if cfg.Triage != nil {
			protected.Post("/inbound/triage", cfg.Triage.Trigger)
		}
	})

	return r
}

func healthHandler(dep Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if dep != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := dep.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
