// Package report computes the read-side summaries behind the dashboard and
// caches them in Redis.
package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/cache"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const (
	kindJobs        = "jobs"
	kindVolumetrics = "volumetrics"
	kindSLA         = "sla"
	kindFailures    = "failures"
	kindLongRunning = "long-running"
	kindCustomers   = "customers-grouped"
)

// Repository is the part of the store reports read from.
type Repository interface {
	FindJobExecutions(ctx context.Context, filter store.JobFilter) ([]*models.JobExecution, error)
	FindVolumetrics(ctx context.Context, filter store.VolumetricFilter) ([]*models.VolumetricRecord, error)
	FindSLACompliance(ctx context.Context, filter store.SLAFilter) ([]*models.SLACompliance, error)
	ListCustomers(ctx context.Context) ([]*models.Customer, error)
	CustomerJobStats(ctx context.Context) (map[uuid.UUID]store.JobStats, error)
}

// Cache is where computed summaries are kept.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Filter narrows a report. Zero fields are open.
type Filter struct {
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	Product    models.Product  `json:"product,omitempty"`
	JobName    string          `json:"job_name,omitempty"`
	Month      string          `json:"month,omitempty"`
	DateRange  store.DateRange `json:"date_range"`
}

func (f Filter) jobFilter() store.JobFilter {
	return store.JobFilter{
		CustomerID: f.CustomerID,
		Product:    f.Product,
		JobName:    f.JobName,
		Month:      f.Month,
		DateRange:  f.DateRange,
	}
}

// Service computes reports with cache-aside reads. A nil cache disables
// caching.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
}

func NewService(repo Repository, c Cache, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl}
}

// Invalidate drops cached summaries for a customer and the unscoped ones
// that include its data.
func (s *Service) Invalidate(ctx context.Context, customerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	for _, prefix := range []string{cache.SummaryPrefix(&customerID), cache.SummaryPrefix(nil)} {
		if n, err := s.cache.DeletePrefix(ctx, prefix); err != nil {
			slog.Warn("invalidate summaries", "prefix", prefix, "error", err)
		} else if n > 0 {
			slog.Debug("invalidated summaries", "prefix", prefix, "keys", n)
		}
	}
}

// InvalidateAll drops every cached summary. Used after unscoped analysis runs.
func (s *Service) InvalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.DeletePrefix(ctx, cache.AllSummariesPrefix()); err != nil {
		slog.Warn("invalidate summaries", "prefix", cache.AllSummariesPrefix(), "error", err)
	}
}

func filterHash(kind string, f Filter) string {
	b, _ := json.Marshal(f)
	sum := sha256.Sum256(append([]byte(kind+"|"), b...))
	return hex.EncodeToString(sum[:8])
}

// cached returns the cached value for (kind, f) or computes and stores it.
// Cache failures fall through to compute.
func cached[T any](ctx context.Context, s *Service, kind string, f Filter, compute func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return compute(ctx)
	}
	key := cache.SummaryKey(f.CustomerID, kind, filterHash(kind, f))

	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("summary cache read", "key", key, "error", err)
	}
	if found {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		slog.Warn("summary cache decode", "key", key, "error", err)
	}

	v, err := compute(ctx)
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			slog.Warn("summary cache write", "key", key, "error", err)
		}
	}
	return v, nil
}

// timePeriod labels the window a report covers.
func timePeriod(month string, r store.DateRange) string {
	from, to := "", ""
	if !r.From.IsZero() {
		from = r.From.Format(time.DateOnly)
	}
	if !r.To.IsZero() {
		to = r.To.Format(time.DateOnly)
	}
	switch {
	case from != "" && to != "":
		return fmt.Sprintf("%s to %s", from, to)
	case from != "":
		return "From " + from
	case to != "":
		return "Until " + to
	case month != "":
		return month
	}
	return "All Time"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// agg accumulates the SQL-style aggregates the reports use. Missing values
// are skipped, so avg over no values is 0.
type agg struct {
	n        int
	sum      float64
	min, max float64
}

func (a *agg) add(v float64) {
	if a.n == 0 || v < a.min {
		a.min = v
	}
	if a.n == 0 || v > a.max {
		a.max = v
	}
	a.n++
	a.sum += v
}

func (a *agg) addPtr(v *float64) {
	if v != nil {
		a.add(*v)
	}
}

func (a agg) avg() float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum / float64(a.n)
}
