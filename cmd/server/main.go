package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iho/ledgerimport/internal/adapter/export"
	httpAdapter "github.com/iho/ledgerimport/internal/adapter/http"
	"github.com/iho/ledgerimport/internal/adapter/http/handler"
	"github.com/iho/ledgerimport/internal/adapter/repository/filesystem"
	postgresRepo "github.com/iho/ledgerimport/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/ledgerimport/internal/adapter/repository/redis"
	"github.com/iho/ledgerimport/internal/adapter/spreadsheet"
	"github.com/iho/ledgerimport/internal/infrastructure/config"
	"github.com/iho/ledgerimport/internal/infrastructure/logger"
	"github.com/iho/ledgerimport/internal/infrastructure/metrics"
	"github.com/iho/ledgerimport/internal/infrastructure/postgres"
	"github.com/iho/ledgerimport/internal/infrastructure/redis"
	"github.com/iho/ledgerimport/internal/infrastructure/rulecatalog"
	"github.com/iho/ledgerimport/internal/infrastructure/scheduler"
	"github.com/iho/ledgerimport/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))
	log.Logger = appLogger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("server failed")
	}
}

// app holds the wired components of the server.
type app struct {
	handler   http.Handler
	retention *scheduler.Retention
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	a, err := newApp(ctx, cfg, logger, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.retention.Start(cfg.RetentionSchedule); err != nil {
		return fmt.Errorf("failed to start retention job: %w", err)
	}
	defer a.retention.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

func newApp(
	ctx context.Context,
	cfg *config.Config,
	logger zerolog.Logger,
	reg prometheus.Registerer,
	gatherer prometheus.Gatherer,
) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	catalog, err := rulecatalog.Load(cfg.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule catalog: %w", err)
	}
	logger.Info().
		Str("catalog_version", catalog.Version).
		Int("enterprises", len(catalog.Enterprises())).
		Msg("rule catalog loaded")

	m := metrics.NewWithRegistry(reg)
	idGen := postgresRepo.NewULIDGenerator()
	checks := map[string]handler.HealthCheck{}

	var (
		pool *pgxpool.Pool
		opts []usecase.OrchestratorOption
	)

	// Connect to PostgreSQL
	if cfg.DatabaseURL != "" {
		if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, err
		}

		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		checks["postgres"] = pool.Ping
		logger.Info().Msg("connected to postgres")

		retrier := postgresRepo.NewRetrier(logger, m)
		opts = append(opts, usecase.WithRunRepository(postgresRepo.NewRunRepository(pool, retrier, m)))
	}

	// Connect to Redis
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Close() })
		checks["redis"] = redisPing(client)
		logger.Info().Msg("connected to redis")

		opts = append(opts,
			usecase.WithIdempotency(redisRepo.NewIdempotencyStore(client), cfg.IdempotencyTTL),
			usecase.WithCache(redisRepo.NewCache(client)),
		)
	}

	store, err := newArtifactStore(cfg, pool, idGen, logger, m)
	if err != nil {
		return nil, err
	}

	runner := usecase.NewRuleRunner(export.NewSerializer(), spreadsheet.NewExceptionWriter(), store, logger, m)
	opts = append(opts, usecase.WithMaxParallel(cfg.MaxParallelRules), usecase.WithMetrics(m))
	orchestrator := usecase.NewOrchestrator(catalog, spreadsheet.NewReader(), runner, idGen, logger, opts...)

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		RunHandler:        handler.NewRunHandler(orchestrator, cfg.UploadDir, cfg.MaxUploadSize, logger),
		ArtifactHandler:   handler.NewArtifactHandler(orchestrator),
		EnterpriseHandler: handler.NewEnterpriseHandler(orchestrator),
		HealthHandler:     handler.NewHealthHandler(checks),
		Logger:            logger,
		Metrics:           m,
		Gatherer:          gatherer,
	})
	a.retention = scheduler.NewRetention(orchestrator, cfg.RetentionPeriod, logger)

	ok = true
	return a, nil
}

func newArtifactStore(
	cfg *config.Config,
	pool *pgxpool.Pool,
	idGen usecase.IDGenerator,
	logger zerolog.Logger,
	m *metrics.Metrics,
) (usecase.ArtifactStore, error) {
	switch cfg.ArtifactBackend {
	case config.ArtifactBackendPostgres:
		if pool == nil {
			return nil, errors.New("postgres artifact backend needs DATABASE_URL")
		}
		return postgresRepo.NewArtifactStore(pool, idGen, postgresRepo.NewRetrier(logger, m), m), nil
	default:
		store, err := filesystem.NewArtifactStore(cfg.OutputDir, idGen)
		if err != nil {
			return nil, fmt.Errorf("failed to open output directory: %w", err)
		}
		return store, nil
	}
}

func redisPing(client *goredis.Client) handler.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
