// Package api wires the HTTP bridge between a browser map and the animation engine.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vehicletracker/vehicletracker/internal/api/handler"
	"github.com/vehicletracker/vehicletracker/internal/api/middleware"
	"github.com/vehicletracker/vehicletracker/internal/api/response"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string

	// Tracker is the engine driven by the intent endpoints (required).
	Tracker handler.Tracker
	// Providers reports upstream route provider health. Optional.
	Providers handler.HealthSource
	// RouteCache adds cache occupancy to /v1/ops/status and enables the clear endpoint. Optional.
	RouteCache handler.RouteCache

	// Metrics records OpenTelemetry HTTP metrics. Optional.
	Metrics *middleware.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler

	// DisableRateLimit turns off per-IP limits, for tests and trusted local use.
	DisableRateLimit bool
}

// NewRouter creates a chi router with all bridge routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "vehicle-tracker"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, methodNotAllowed(r))
	})

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Tracker, cfg.Providers)
	if cfg.RouteCache != nil {
		opsHandler.WithRouteCache(cfg.RouteCache)
	}
	trackerHandler := handler.NewTrackerHandler(cfg.Tracker, cfg.Logger)

	limit := func(rl middleware.RateLimitConfig) func(http.Handler) http.Handler {
		if cfg.DisableRateLimit {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RateLimitByIP(rl)
	}

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
			r.Post("/route-cache:clear", opsHandler.ClearRouteCache)
		})

		r.Route("/tracker", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(limit(middleware.ReadRateLimit))
				r.Get("/", trackerHandler.GetSnapshot)
				r.Get("/options", trackerHandler.ListOptions)
				r.Get("/stream", trackerHandler.Stream)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireJSON)
				r.Use(limit(middleware.IntentRateLimit))
				r.Put("/option", trackerHandler.SelectOption)
				r.Post("/playback:start", trackerHandler.StartPlayback)
				r.Post("/playback:stop", trackerHandler.StopPlayback)
			})

			r.With(limit(middleware.GenerateRateLimit)).Post("/route:generate", trackerHandler.GenerateRoute)
		})
	})

	return r
}
