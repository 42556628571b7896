package sla

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/metrics"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// Repository is the part of the store the analyzer reads and writes.
type Repository interface {
	WithCustomerLock(ctx context.Context, customerID uuid.UUID, scope string, fn func(ctx context.Context) error) error
	FindJobExecutions(ctx context.Context, filter store.JobFilter) ([]*models.JobExecution, error)
	GetActiveSLADefinition(ctx context.Context, customerID uuid.UUID, product models.Product, jobName string) (*models.SLADefinition, error)
	UpsertSLACompliance(ctx context.Context, rec *models.SLACompliance) (bool, error)
}

// Filter narrows the runs analyzed. Zero values match everything.
type Filter struct {
	CustomerID *uuid.UUID
	Product    models.Product
	DateRange  store.DateRange
}

// Result is the aggregate outcome of one analysis pass.
type Result struct {
	Analyzed int    `json:"analyzed_count"`
	Created  int    `json:"created_count"`
	Updated  int    `json:"updated_count"`
	Message  string `json:"message"`
}

// Analyzer recomputes SLA compliance for completed runs.
type Analyzer struct {
	repo    Repository
	metrics *metrics.Metrics
}

// NewAnalyzer creates an Analyzer. m may be nil.
func NewAnalyzer(repo Repository, m *metrics.Metrics) *Analyzer {
	return &Analyzer{repo: repo, metrics: m}
}

// Analyze evaluates every completed run matching f against its active SLA
// definition and upserts one compliance record per run. Failures on a single
// run are logged and skipped. Scoped runs for the same customer are
// serialized through an advisory lock. An unscoped run takes a separate
// all-customers lock, so it only excludes other unscoped runs and may
// overlap a scoped one; the compliance upsert keeps that overlap safe.
func (a *Analyzer) Analyze(ctx context.Context, f Filter) (*Result, error) {
	lockID := uuid.Nil
	if f.CustomerID != nil {
		lockID = *f.CustomerID
	}

	var res *Result
	err := a.repo.WithCustomerLock(ctx, lockID, store.ScopeSLAAnalyze, func(ctx context.Context) error {
		var err error
		res, err = a.analyze(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Analyzer) analyze(ctx context.Context, f Filter) (*Result, error) {
	jobs, err := a.repo.FindJobExecutions(ctx, store.JobFilter{
		CustomerID: f.CustomerID,
		Product:    f.Product,
		Statuses:   models.CompletedStatuses,
		DateRange:  f.DateRange,
	})
	if err != nil {
		return nil, fmt.Errorf("load job executions: %w", err)
	}

	res := &Result{}
	defs := make(map[defKey]*models.SLADefinition)
	for _, job := range jobs {
		log := slog.With("job_id", job.ID, "job_name", job.JobName, "customer_id", job.CustomerID)

		def, err := a.definition(ctx, defs, job)
		if err != nil {
			log.Error("skipping sla analysis", "error", err)
			continue
		}

		rec := Evaluate(job, def)
		created, err := a.repo.UpsertSLACompliance(ctx, rec)
		if err != nil {
			log.Error("skipping sla analysis", "error", err)
			continue
		}
		res.Analyzed++
		if created {
			res.Created++
		} else {
			res.Updated++
		}
		a.metrics.SLARecord(string(rec.Status))
	}

	res.Message = fmt.Sprintf("Analyzed %d batch jobs: %d created, %d updated", res.Analyzed, res.Created, res.Updated)
	slog.Info("sla analysis complete", "analyzed", res.Analyzed, "created", res.Created, "updated", res.Updated)
	return res, nil
}

type defKey struct {
	customer uuid.UUID
	product  models.Product
	job      string
}

// definition looks up the active definition for job, memoized per pass. A
// missing definition is a nil result, not an error.
func (a *Analyzer) definition(ctx context.Context, cache map[defKey]*models.SLADefinition, job *models.JobExecution) (*models.SLADefinition, error) {
	key := defKey{job.CustomerID, job.Product, job.JobName}
	if def, ok := cache[key]; ok {
		return def, nil
	}
	def, err := a.repo.GetActiveSLADefinition(ctx, job.CustomerID, job.Product, job.JobName)
	if errors.Is(err, store.ErrNotFound) {
		def, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	cache[key] = def
	return def, nil
}
