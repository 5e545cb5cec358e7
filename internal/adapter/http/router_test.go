package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/ledgerimport/internal/adapter/http/handler"
	"github.com/iho/ledgerimport/internal/domain"
	"github.com/iho/ledgerimport/internal/infrastructure/metrics"
	"github.com/iho/ledgerimport/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_ReadinessReportsFailingBackend(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.HealthHandler = handler.NewHealthHandler(map[string]handler.HealthCheck{
			"redis": func(context.Context) error { return context.DeadlineExceeded },
		})
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected /ready to return 503, got %d", rec.Code)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /api/v1/enterprises/",
		"GET /api/v1/enterprises/{id}",
		"POST /api/v1/runs/",
		"GET /api/v1/runs/{id}",
		"GET /api/v1/artifacts/{id}",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func TestNewRouter_MetricsEndpointExposesHTTPCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)

	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Metrics = m
		cfg.Gatherer = registry
	}))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/runs/01HRUN", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /metrics to return 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `ledgerimport_http_requests_total{method="GET",path="/api/v1/runs/{id}",status="404"} 1`) {
		t.Fatalf("expected run lookup to be counted, got:\n%s", body)
	}
}

func TestNewRouter_RecoversFromPanics(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RunHandler = handler.NewRunHandler(panickingRunService{}, "", 1<<20, zerolog.Nop())
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/01HRUN", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		RunHandler:        handler.NewRunHandler(stubRunService{}, "", 1<<20, zerolog.Nop()),
		ArtifactHandler:   handler.NewArtifactHandler(stubArtifactService{}),
		EnterpriseHandler: handler.NewEnterpriseHandler(stubCatalog{}),
		HealthHandler:     handler.NewHealthHandler(nil),
		Logger:            zerolog.Nop(),
		Gatherer:          prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubRunService struct{}

func (stubRunService) Run(ctx context.Context, input usecase.RunInput) (*domain.RunResult, error) {
	return nil, domain.ErrUnknownEnterprise
}

func (stubRunService) GetRun(ctx context.Context, id string) (*domain.RunResult, error) {
	return nil, domain.ErrRunNotFound
}

type panickingRunService struct{ stubRunService }

func (panickingRunService) GetRun(ctx context.Context, id string) (*domain.RunResult, error) {
	panic("repository exploded")
}

type stubArtifactService struct{}

func (stubArtifactService) OpenArtifact(ctx context.Context, id string) (*domain.Artifact, []byte, error) {
	return nil, nil, domain.ErrArtifactNotFound
}

type stubCatalog struct{}

func (stubCatalog) Catalog() *domain.Catalog {
	catalog, _ := domain.NewCatalog("empty", nil)
	return catalog
}
