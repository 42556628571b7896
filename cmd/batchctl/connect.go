package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/batchpulse/internal/cache"
	"github.com/kiranshivaraju/batchpulse/internal/config"
	"github.com/kiranshivaraju/batchpulse/internal/ingest"
	"github.com/kiranshivaraju/batchpulse/internal/predict"
	"github.com/kiranshivaraju/batchpulse/internal/report"
	"github.com/kiranshivaraju/batchpulse/internal/sla"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/internal/upload"
)

// connect builds the backend from the environment. Redis is optional; without
// it cached summaries are left to expire on their own.
func connect(ctx context.Context) (*backend, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadTool()
	if err != nil {
		return nil, err
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	pg := store.NewPostgresStore(pool)
	closers := []func(){pool.Close}

	b := &backend{
		analyzer:    sla.NewAnalyzer(pg, nil),
		definitions: pg,
		keys:        pg,
	}

	var (
		summaries upload.Invalidator
		runs      predict.Cache
	)
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })

		svc := report.NewService(pg, rc, cfg.Summary.CacheTTL)
		summaries, b.cache, runs = svc, svc, rc
	} else {
		slog.Warn("REDIS_URL not set; cached summaries will not be invalidated")
	}

	b.uploads = upload.NewService(pg, ingest.NewService(pg, nil), b.analyzer, summaries, cfg.Upload.Dir)
	b.predictor = predict.NewService(pg, runs, nil, predict.Options{
		LookbackDays: cfg.Predict.LookbackDays,
		MaxDaysAhead: cfg.Predict.MaxDaysAhead,
		DemoBackfill: cfg.Predict.DemoBackfill,
	})
	b.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return b, nil
}
