package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/cache"
	"github.com/kiranshivaraju/batchpulse/internal/metrics"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidPredictionType = errors.New("invalid prediction type")
	ErrInvalidDaysAhead      = errors.New("invalid days ahead")
	ErrNoPredictionRun       = errors.New("no prediction run cached")
)

const allTypes = "all"

const (
	defaultModelLookback  = 30
	defaultModelThreshold = 0.7
	latestRunTTL          = 24 * time.Hour
)

// Repository is the part of the store the predictor reads and writes.
type Repository interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	WithCustomerLock(ctx context.Context, customerID uuid.UUID, scope string, fn func(ctx context.Context) error) error
	ExpireAlerts(ctx context.Context, now time.Time) (int, error)
	FindJobExecutions(ctx context.Context, filter store.JobFilter) ([]*models.JobExecution, error)
	FindVolumetrics(ctx context.Context, filter store.VolumetricFilter) ([]*models.VolumetricRecord, error)
	FindSLACompliance(ctx context.Context, filter store.SLAFilter) ([]*models.SLACompliance, error)
	GetOrCreatePredictionModel(ctx context.Context, m *models.PredictionModel) (*models.PredictionModel, error)
	UpsertPredictionResult(ctx context.Context, r *models.PredictionResult) error
	ListPredictions(ctx context.Context, filter store.PredictionFilter) ([]*models.PredictionResult, int, error)
	UpsertAlert(ctx context.Context, a *models.PredictionAlert) (bool, error)
	ListAlerts(ctx context.Context, filter store.AlertFilter) ([]*models.PredictionAlert, int, error)
	UpdateAlertStatus(ctx context.Context, id uuid.UUID, status models.AlertStatus, opts ...store.AlertUpdateOption) (*models.PredictionAlert, error)
}

// Cache holds the latest run per customer.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// Options tune the predictor.
type Options struct {
	LookbackDays int
	MaxDaysAhead int
	DemoBackfill bool
}

// Request asks for a forecast for one customer.
type Request struct {
	CustomerID uuid.UUID
	DaysAhead  int
	// Types holds "all" or group names such as "failures". Empty means all.
	Types []string
}

// Run is the outcome of one prediction pass, grouped by type.
type Run struct {
	CustomerID  uuid.UUID                             `json:"customer_id"`
	DaysAhead   int                                   `json:"days_ahead"`
	Predictions map[string][]*models.PredictionResult `json:"predictions"`
	Alerts      []*models.PredictionAlert             `json:"alerts"`
	Expired     int                                   `json:"expired_alerts"`
	GeneratedAt time.Time                             `json:"generated_at"`
}

// Service runs predictions and serves the persisted results.
type Service struct {
	repo    Repository
	cache   Cache
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time
}

// NewService creates a Service. cache and m may be nil.
func NewService(repo Repository, c Cache, m *metrics.Metrics, opts Options) *Service {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 90
	}
	if opts.MaxDaysAhead <= 0 {
		opts.MaxDaysAhead = 30
	}
	return &Service{repo: repo, cache: c, metrics: m, opts: opts, now: func() time.Time { return time.Now().UTC() }}
}

// ParseTypes resolves a type selection. It reports whether every type was
// requested.
func ParseTypes(groups []string) (mapset.Set[models.PredictionType], bool, error) {
	selected := mapset.NewThreadUnsafeSet[models.PredictionType]()
	if len(groups) == 0 {
		selected.Append(models.PredictionTypes...)
		return selected, true, nil
	}
	for _, g := range groups {
		g = strings.TrimSpace(strings.ToLower(g))
		if g == allTypes {
			selected.Append(models.PredictionTypes...)
			return selected, true, nil
		}
		t, ok := models.PredictionTypeFromGroup(g)
		if !ok {
			return nil, false, fmt.Errorf("%w: %q", ErrInvalidPredictionType, g)
		}
		selected.Add(t)
	}
	return selected, selected.Cardinality() == len(models.PredictionTypes), nil
}

// Predict expires stale alerts, forecasts the selected types over the next
// DaysAhead days, persists results and alerts, and caches the run. Runs for
// the same customer are serialized.
func (s *Service) Predict(ctx context.Context, req Request) (*Run, error) {
	if req.DaysAhead < 1 || req.DaysAhead > s.opts.MaxDaysAhead {
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidDaysAhead, s.opts.MaxDaysAhead)
	}
	selected, all, err := ParseTypes(req.Types)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCustomer(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	var run *Run
	err = s.repo.WithCustomerLock(ctx, req.CustomerID, store.ScopePredict, func(ctx context.Context) error {
		var err error
		run, err = s.predict(ctx, req, selected, all)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cacheRun(ctx, run)
	return run, nil
}

type history struct {
	jobs    []*models.JobExecution
	volumes []*models.VolumetricRecord
	sla     []*models.SLACompliance
}

func (s *Service) load(ctx context.Context, customerID uuid.UUID, since time.Time) (*history, error) {
	h := &history{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		h.jobs, err = s.repo.FindJobExecutions(ctx, store.JobFilter{CustomerID: &customerID, DateRange: store.DateRange{From: since}})
		return err
	})
	g.Go(func() error {
		var err error
		h.volumes, err = s.repo.FindVolumetrics(ctx, store.VolumetricFilter{CustomerID: &customerID, DateRange: store.DateRange{From: since}})
		return err
	})
	g.Go(func() error {
		var err error
		h.sla, err = s.repo.FindSLACompliance(ctx, store.SLAFilter{CustomerID: &customerID, DateRange: store.DateRange{From: since}})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return h, nil
}

func (s *Service) predict(ctx context.Context, req Request, selected mapset.Set[models.PredictionType], all bool) (*Run, error) {
	now := s.now()
	log := slog.With("customer_id", req.CustomerID)

	expired, err := s.repo.ExpireAlerts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("expire alerts: %w", err)
	}

	h, err := s.load(ctx, req.CustomerID, now.AddDate(0, 0, -s.opts.LookbackDays))
	if err != nil {
		return nil, err
	}

	runsByJob := map[string][]*models.JobExecution{}
	durations := map[string][]float64{}
	for _, j := range h.jobs {
		runsByJob[j.JobName] = append(runsByJob[j.JobName], j)
		if j.DurationMinutes != nil {
			durations[j.JobName] = append(durations[j.JobName], *j.DurationMinutes)
		}
	}
	slaByJob := map[string][]*models.SLACompliance{}
	for _, r := range h.sla {
		slaByJob[r.JobName] = append(slaByJob[r.JobName], r)
	}
	volByJob := map[string][]*models.VolumetricRecord{}
	for _, v := range h.volumes {
		volByJob[v.JobName] = append(volByJob[v.JobName], v)
	}

	dates := Horizon(now, req.DaysAhead)
	preds := map[models.PredictionType][]*models.PredictionResult{}
	longRunners := LongRunners(durations, dates)
	if selected.Contains(models.PredictFailure) {
		preds[models.PredictFailure] = Failures(runsByJob, dates)
	}
	if selected.Contains(models.PredictLongRunner) {
		preds[models.PredictLongRunner] = longRunners
	}
	if selected.Contains(models.PredictSLAMiss) {
		preds[models.PredictSLAMiss] = SLAMisses(slaByJob, longRunners, dates)
	}
	if selected.Contains(models.PredictVolumeSpike) {
		preds[models.PredictVolumeSpike] = VolumeSpikes(volByJob, dates)
	}

	if all && s.opts.DemoBackfill {
		if n := Backfill(preds, recentJobNames(h.jobs), now); n > 0 {
			log.Info("supplemented sparse predictions with synthetic examples", "added", n)
		}
	}

	trainingPoints := func(t models.PredictionType, job string) int {
		switch t {
		case models.PredictFailure:
			return len(runsByJob[job])
		case models.PredictLongRunner:
			return len(durations[job])
		case models.PredictSLAMiss:
			return len(slaByJob[job])
		default:
			return len(volByJob[job])
		}
	}

	var flat []*models.PredictionResult
	modelIDs := map[string]uuid.UUID{}
	for _, t := range models.PredictionTypes {
		for _, p := range preds[t] {
			key := string(t) + "|" + p.JobName
			id, ok := modelIDs[key]
			if !ok {
				m, err := s.repo.GetOrCreatePredictionModel(ctx, &models.PredictionModel{
					CustomerID:          req.CustomerID,
					PredictionType:      t,
					JobName:             p.JobName,
					LookbackDays:        defaultModelLookback,
					ConfidenceThreshold: defaultModelThreshold,
					IsActive:            true,
					TrainingDataPoints:  trainingPoints(t, p.JobName),
					LastTrainedAt:       &now,
				})
				if err != nil {
					return nil, err
				}
				id = m.ID
				modelIDs[key] = id
			}
			p.ModelID = id
			p.CustomerID = req.CustomerID
			if err := s.repo.UpsertPredictionResult(ctx, p); err != nil {
				return nil, err
			}
			s.metrics.Prediction(string(t), string(p.Source))
			flat = append(flat, p)
		}
	}

	alerts := GenerateAlerts(flat)
	for _, a := range alerts {
		if _, err := s.repo.UpsertAlert(ctx, a); err != nil {
			return nil, err
		}
		s.metrics.Alert(string(a.AlertType), string(a.Severity))
	}

	run := &Run{
		CustomerID:  req.CustomerID,
		DaysAhead:   req.DaysAhead,
		Predictions: map[string][]*models.PredictionResult{},
		Alerts:      alerts,
		Expired:     expired,
		GeneratedAt: now,
	}
	if run.Alerts == nil {
		run.Alerts = []*models.PredictionAlert{}
	}
	for _, t := range models.PredictionTypes {
		if !selected.Contains(t) {
			continue
		}
		ps := preds[t]
		if ps == nil {
			ps = []*models.PredictionResult{}
		}
		run.Predictions[t.Group()] = ps
	}
	log.Info("prediction run complete", "predictions", len(flat), "alerts", len(alerts), "expired_alerts", expired)
	return run, nil
}

// recentJobNames returns distinct job names, most recently started first.
func recentJobNames(jobs []*models.JobExecution) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var names []string
	for i := len(jobs) - 1; i >= 0 && len(names) < backfillJobNames; i-- {
		if seen.Add(jobs[i].JobName) {
			names = append(names, jobs[i].JobName)
		}
	}
	return names
}

func (s *Service) cacheRun(ctx context.Context, run *Run) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(run)
	if err != nil {
		slog.Error("encode prediction run", "error", err)
		return
	}
	if err := s.cache.Set(ctx, cache.PredictionRunKey(run.CustomerID), data, latestRunTTL); err != nil {
		slog.Warn("cache prediction run", "customer_id", run.CustomerID, "error", err)
	}
}

// Latest returns the most recent cached run for a customer.
func (s *Service) Latest(ctx context.Context, customerID uuid.UUID) (*Run, error) {
	if s.cache == nil {
		return nil, ErrNoPredictionRun
	}
	data, found, err := s.cache.Get(ctx, cache.PredictionRunKey(customerID))
	if err != nil {
		return nil, fmt.Errorf("read prediction run: %w", err)
	}
	if !found {
		return nil, ErrNoPredictionRun
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode prediction run: %w", err)
	}
	return &run, nil
}

// List returns persisted predictions matching f.
func (s *Service) List(ctx context.Context, f store.PredictionFilter) ([]*models.PredictionResult, int, error) {
	return s.repo.ListPredictions(ctx, f)
}

// Upcoming returns predictions dated from today through today+days.
func (s *Service) Upcoming(ctx context.Context, customerID uuid.UUID, days int, page store.Page) ([]*models.PredictionResult, int, error) {
	today := s.now()
	return s.repo.ListPredictions(ctx, store.PredictionFilter{
		CustomerID: customerID,
		DateRange:  store.DateRange{From: today, To: today.AddDate(0, 0, days)},
		Page:       page,
	})
}

// HighRisk returns HIGH and CRITICAL predictions dated today or later.
func (s *Service) HighRisk(ctx context.Context, customerID uuid.UUID, page store.Page) ([]*models.PredictionResult, int, error) {
	return s.repo.ListPredictions(ctx, store.PredictionFilter{
		CustomerID: customerID,
		RiskLevels: []models.RiskLevel{models.RiskHigh, models.RiskCritical},
		DateRange:  store.DateRange{From: s.now()},
		Page:       page,
	})
}

func (s *Service) ListAlerts(ctx context.Context, f store.AlertFilter) ([]*models.PredictionAlert, int, error) {
	return s.repo.ListAlerts(ctx, f)
}

// AcknowledgeAlert moves an ACTIVE alert to ACKNOWLEDGED.
func (s *Service) AcknowledgeAlert(ctx context.Context, id uuid.UUID, actor string) (*models.PredictionAlert, error) {
	return s.repo.UpdateAlertStatus(ctx, id, models.AlertAcknowledged, store.WithAcknowledgedBy(actor))
}

// ResolveAlert moves an ACKNOWLEDGED alert to RESOLVED.
func (s *Service) ResolveAlert(ctx context.Context, id uuid.UUID, notes string) (*models.PredictionAlert, error) {
	return s.repo.UpdateAlertStatus(ctx, id, models.AlertResolved, store.WithResolutionNotes(notes))
}
