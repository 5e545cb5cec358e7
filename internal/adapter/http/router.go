package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/ledgerimport/internal/adapter/http/handler"
	"github.com/iho/ledgerimport/internal/adapter/http/middleware"
	"github.com/iho/ledgerimport/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	RunHandler        *handler.RunHandler
	ArtifactHandler   *handler.ArtifactHandler
	EnterpriseHandler *handler.EnterpriseHandler
	HealthHandler     *handler.HealthHandler
	Logger            zerolog.Logger
	Metrics           *metrics.Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/enterprises", func(r chi.Router) {
			r.Get("/", cfg.EnterpriseHandler.List)
			r.Get("/{id}", cfg.EnterpriseHandler.Get)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", cfg.RunHandler.Create)
			r.Get("/{id}", cfg.RunHandler.Get)
		})

		r.Get("/artifacts/{id}", cfg.ArtifactHandler.Download)
	})

	return r
}
