// Package main is the entrypoint for the batchpulse API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/batchpulse/internal/api"
	"github.com/kiranshivaraju/batchpulse/internal/api/handler"
	mw "github.com/kiranshivaraju/batchpulse/internal/api/middleware"
	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/internal/cache"
	"github.com/kiranshivaraju/batchpulse/internal/config"
	"github.com/kiranshivaraju/batchpulse/internal/ingest"
	"github.com/kiranshivaraju/batchpulse/internal/metrics"
	"github.com/kiranshivaraju/batchpulse/internal/predict"
	"github.com/kiranshivaraju/batchpulse/internal/report"
	"github.com/kiranshivaraju/batchpulse/internal/sla"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/internal/upload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	// Fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel,
	})))
	slog.Info("config loaded", "env", cfg.Server.Env, "upload_dir", cfg.Upload.Dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	var (
		m              *metrics.Metrics
		metricsHandler http.Handler
	)
	if cfg.Server.MetricsEnabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		metricsHandler = promhttp.Handler()
	}

	pgStore := store.NewPostgresStore(pool)

	ingestSvc := ingest.NewService(pgStore, m)
	analyzer := sla.NewAnalyzer(pgStore, m)
	reportSvc := report.NewService(pgStore, redisCache, cfg.Summary.CacheTTL)
	uploadSvc := upload.NewService(pgStore, ingestSvc, analyzer, reportSvc, cfg.Upload.Dir)
	predictSvc := predict.NewService(pgStore, redisCache, m, predict.Options{
		LookbackDays: cfg.Predict.LookbackDays,
		MaxDaysAhead: cfg.Predict.MaxDaysAhead,
		DemoBackfill: cfg.Predict.DemoBackfill,
	})

	deps := api.Dependencies{
		Auth:           mw.NewAuth(pgStore),
		RateLimit:      mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute),
		Metrics:        m,
		MetricsHandler: metricsHandler,
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,

		HealthHandler: healthHandler(pgStore, redisCache),

		ListCustomers:    handler.NewListCustomersHandler(pgStore),
		GroupedCustomers: handler.NewGroupedCustomersHandler(reportSvc),
		CreateCustomer:   handler.NewCreateCustomerHandler(pgStore),

		UploadFile:  handler.NewUploadHandler(uploadSvc, cfg.Upload.MaxBytes),
		ListUploads: handler.NewListUploadsHandler(pgStore),

		ListJobs:            handler.NewListJobsHandler(pgStore),
		JobSummary:          handler.NewJobSummaryHandler(reportSvc),
		FailureAnalysis:     handler.NewFailureAnalysisHandler(reportSvc),
		LongRunningAnalysis: handler.NewLongRunningAnalysisHandler(reportSvc),

		ListVolumetrics:   handler.NewListVolumetricsHandler(pgStore),
		VolumetricSummary: handler.NewVolumetricSummaryHandler(reportSvc),

		ListSLADefinitions:  handler.NewListSLADefinitionsHandler(pgStore),
		UpsertSLADefinition: handler.NewUpsertSLADefinitionHandler(pgStore),
		ListSLARecords:      handler.NewListSLARecordsHandler(pgStore),
		SLASummary:          handler.NewSLASummaryHandler(reportSvc),
		AnalyzeSLA:          handler.NewAnalyzeSLAHandler(analyzer, reportSvc),

		ListSchedules: handler.NewListSchedulesHandler(pgStore),

		RunPredictions:      handler.NewRunPredictionsHandler(predictSvc, cfg.Predict.DefaultDaysAhead),
		ListPredictions:     handler.NewListPredictionsHandler(predictSvc),
		UpcomingPredictions: handler.NewUpcomingPredictionsHandler(predictSvc, cfg.Predict.MaxDaysAhead),
		HighRiskPredictions: handler.NewHighRiskPredictionsHandler(predictSvc),
		LatestPredictions:   handler.NewLatestPredictionsHandler(predictSvc),

		ListAlerts:       handler.NewListAlertsHandler(predictSvc),
		AcknowledgeAlert: handler.NewAcknowledgeAlertHandler(predictSvc),
		ResolveAlert:     handler.NewResolveAlertHandler(predictSvc),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and cache connectivity.
func healthHandler(db, c pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			slog.Warn("database health check failed", "error", err)
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			slog.Warn("cache health check failed", "error", err)
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
