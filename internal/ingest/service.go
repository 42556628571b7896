package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/metrics"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// Repository is the part of the store ingestion writes through.
type Repository interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	CreateJobExecution(ctx context.Context, job *models.JobExecution) error
	UpsertVolumetric(ctx context.Context, rec *models.VolumetricRecord) (bool, error)
	UpsertSLACompliance(ctx context.Context, rec *models.SLACompliance) (bool, error)
	CreateSchedule(ctx context.Context, s *models.Schedule) error
}

// Request describes one file to ingest.
type Request struct {
	FileType     models.FileType
	FileName     string
	Body         io.Reader
	CustomerID   uuid.UUID
	Product      models.Product
	FileUploadID *uuid.UUID
}

// Result is the aggregate outcome of one file. Success is false only for
// file-level failures; skipped rows never flip it.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
}

func failed(err error) *Result {
	return &Result{Success: false, Message: err.Error()}
}

// Service ingests spreadsheets for one customer and product at a time.
type Service struct {
	repo    Repository
	metrics *metrics.Metrics
}

// NewService creates a Service. m may be nil.
func NewService(repo Repository, m *metrics.Metrics) *Service {
	return &Service{repo: repo, metrics: m}
}

// Ingest reads, validates and stores one file. File-level problems come back
// as an unsuccessful Result; the error return is reserved for the store
// becoming unusable.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	log := slog.With("customer_id", req.CustomerID, "product", req.Product, "file_type", req.FileType)

	res, err := s.ingest(ctx, req)
	if err != nil {
		log.Error("ingestion failed", "error", err)
		s.metrics.IngestFile(string(req.FileType), false)
		return nil, err
	}
	if !res.Success {
		log.Warn("file rejected", "reason", res.Message)
	} else {
		log.Info("file ingested", "created", res.Created, "updated", res.Updated, "skipped", res.Skipped)
	}
	s.metrics.IngestFile(string(req.FileType), res.Success)
	s.metrics.IngestRows(string(req.FileType), "created", res.Created+res.Updated)
	s.metrics.IngestRows(string(req.FileType), "skipped", res.Skipped)
	return res, nil
}

func (s *Service) ingest(ctx context.Context, req Request) (*Result, error) {
	if !req.FileType.Valid() {
		return failed(fmt.Errorf("invalid file type %q", req.FileType)), nil
	}
	if _, err := s.repo.GetCustomer(ctx, req.CustomerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failed(fmt.Errorf("%w: %s", ErrCustomerNotFound, req.CustomerID)), nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	table, err := ReadTable(req.FileName, req.Body)
	if err != nil {
		return failed(err), nil
	}

	switch req.FileType {
	case models.FileBatchPerformance:
		return s.ingestJobs(ctx, table, req)
	case models.FileVolumetrics:
		return s.ingestVolumetrics(ctx, table, req)
	case models.FileSLATracking:
		return s.ingestSLATracking(ctx, table, req)
	default:
		if isTidal(table.Headers) {
			return s.ingestTidal(ctx, table, req)
		}
		return s.ingestLegacySchedules(ctx, table, req)
	}
}

func (s *Service) ingestJobs(ctx context.Context, t *Table, req Request) (*Result, error) {
	cols, err := batchSchema.Resolve(t.Headers)
	if err != nil {
		return failed(err), nil
	}
	res := &Result{}
	recs := collect(t, cols, res, func(r Row) (*models.JobExecution, error) { return parseJobRow(r, req) })
	err = persist(ctx, res, recs, func(ctx context.Context, j *models.JobExecution) (bool, error) {
		return true, s.repo.CreateJobExecution(ctx, j)
	})
	if err != nil {
		return nil, fmt.Errorf("store job executions: %w", err)
	}
	return succeeded(res, "Successfully processed %d batch job records"), nil
}

func (s *Service) ingestVolumetrics(ctx context.Context, t *Table, req Request) (*Result, error) {
	cols, err := volumetricSchema.Resolve(t.Headers)
	if err != nil {
		return failed(err), nil
	}
	res := &Result{}
	recs := collect(t, cols, res, func(r Row) (*models.VolumetricRecord, error) { return parseVolumetricRow(r, req) })
	if err := persist(ctx, res, recs, s.repo.UpsertVolumetric); err != nil {
		return nil, fmt.Errorf("store volumetrics: %w", err)
	}
	return succeeded(res, "Successfully processed %d volumetric records"), nil
}

func (s *Service) ingestSLATracking(ctx context.Context, t *Table, req Request) (*Result, error) {
	cols, err := slaTrackingSchema.Resolve(t.Headers)
	if err != nil {
		return failed(err), nil
	}
	res := &Result{}
	recs := collect(t, cols, res, func(r Row) (*models.SLACompliance, error) { return parseSLATrackingRow(r, req) })
	if err := persist(ctx, res, recs, s.repo.UpsertSLACompliance); err != nil {
		return nil, fmt.Errorf("store sla records: %w", err)
	}
	return succeeded(res, "Successfully processed %d SLA records"), nil
}

func (s *Service) ingestLegacySchedules(ctx context.Context, t *Table, req Request) (*Result, error) {
	cols, err := legacyScheduleSchema.Resolve(t.Headers)
	if err != nil {
		return failed(err), nil
	}
	res := &Result{}
	recs := collect(t, cols, res, func(r Row) (*models.Schedule, error) { return parseLegacyScheduleRow(r, req) })
	if err := persist(ctx, res, recs, s.createSchedule); err != nil {
		return nil, fmt.Errorf("store schedules: %w", err)
	}
	return succeeded(res, "Successfully processed %d schedule records"), nil
}

func (s *Service) ingestTidal(ctx context.Context, t *Table, req Request) (*Result, error) {
	cols, err := tidalSchema.Resolve(t.Headers)
	if err != nil {
		return failed(err), nil
	}
	res := &Result{}
	recs := collect(t, cols, res, func(r Row) (*models.Schedule, error) { return parseTidalRow(r, req) })
	classifySchedules(records(recs))
	if err := persist(ctx, res, recs, s.createSchedule); err != nil {
		return nil, fmt.Errorf("store schedules: %w", err)
	}
	return succeeded(res, "Successfully processed %d EMB schedule records"), nil
}

func (s *Service) createSchedule(ctx context.Context, sched *models.Schedule) (bool, error) {
	return true, s.repo.CreateSchedule(ctx, sched)
}

func succeeded(res *Result, format string) *Result {
	res.Success = true
	res.Message = fmt.Sprintf(format, res.Created+res.Updated)
	return res
}

// parsed is a record together with the source row it came from.
type parsed[T any] struct {
	row int
	rec *T
}

func records[T any](ps []parsed[T]) []*T {
	out := make([]*T, len(ps))
	for i, p := range ps {
		out[i] = p.rec
	}
	return out
}

// collect parses every row. Rows that fail are logged and counted as
// skipped; a nil record with no error is dropped silently.
func collect[T any](t *Table, cols Columns, res *Result, parse func(Row) (*T, error)) []parsed[T] {
	recs := make([]parsed[T], 0, len(t.Records))
	for i := range t.Records {
		row := t.Row(i, cols)
		rec, err := parse(row)
		if err != nil {
			slog.Error("skipping row", "row", row.Index, "error", err)
			res.Skipped++
			continue
		}
		if rec == nil {
			continue
		}
		recs = append(recs, parsed[T]{row: row.Index, rec: rec})
	}
	return recs
}

// persist writes records one at a time. A failed write skips that record;
// only when every write fails is the last store error returned.
func persist[T any](ctx context.Context, res *Result, recs []parsed[T], write func(context.Context, *T) (bool, error)) error {
	var lastErr error
	stored := 0
	for _, p := range recs {
		created, err := write(ctx, p.rec)
		if err != nil {
			slog.Error("skipping row", "row", p.row, "error", err)
			res.Skipped++
			lastErr = err
			continue
		}
		stored++
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	if stored == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// truncate cuts s to maxBytes without splitting UTF-8 runes.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
