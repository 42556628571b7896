// Package upload stores operator spreadsheets on disk, records them, and
// hands them to the ingestion pipeline.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/ingest"
	"github.com/kiranshivaraju/batchpulse/internal/sla"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// Repository is the subset of the store uploads need.
type Repository interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	CreateFileUpload(ctx context.Context, u *models.FileUpload) error
	MarkFileUploadProcessed(ctx context.Context, id uuid.UUID, success bool, log string) error
}

type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, f sla.Filter) (*sla.Result, error)
}

// Invalidator drops cached summaries for a customer.
type Invalidator interface {
	Invalidate(ctx context.Context, customerID uuid.UUID)
}

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Request is one uploaded file with its form fields, unparsed.
type Request struct {
	CustomerID string
	Product    string
	FileType   string
	FileName   string
	Body       io.Reader
}

// Result is returned to the uploader whether or not ingestion succeeded.
type Result struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	FileUploadID uuid.UUID      `json:"file_upload_id"`
	FileName     string         `json:"file_name"`
	FileSize     int64          `json:"file_size"`
	Product      models.Product `json:"product"`
}

// Service orchestrates one upload end to end.
type Service struct {
	repo     Repository
	ingester Ingester
	analyzer Analyzer
	cache    Invalidator
	dir      string
	now      func() time.Time
}

// NewService creates a Service that saves files under dir. cache may be nil.
func NewService(repo Repository, ing Ingester, an Analyzer, cache Invalidator, dir string) *Service {
	return &Service{
		repo:     repo,
		ingester: ing,
		analyzer: an,
		cache:    cache,
		dir:      dir,
		now:      time.Now,
	}
}

// Upload validates the request, saves the file, records it and ingests it.
// Validation failures return *ValidationError; an unknown customer returns
// ingest.ErrCustomerNotFound. A file that fails ingestion is not an error:
// the Result carries Success=false and the reason.
func (s *Service) Upload(ctx context.Context, req Request) (*Result, error) {
	customer, product, fileType, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	path, size, err := s.save(customer.Code, fileType, req)
	if err != nil {
		return nil, err
	}

	rec := &models.FileUpload{
		ID:         uuid.New(),
		CustomerID: customer.ID,
		FileType:   fileType,
		Product:    product,
		FileName:   req.FileName,
		FilePath:   path,
		FileSize:   size,
		UploadedAt: s.now().UTC(),
	}
	if err := s.repo.CreateFileUpload(ctx, rec); err != nil {
		if rerr := os.Remove(path); rerr != nil {
			slog.Warn("remove unrecorded upload", "path", path, "error", rerr)
		}
		return nil, fmt.Errorf("record upload: %w", err)
	}

	log := slog.With("customer_id", customer.ID, "product", product, "file_type", fileType, "file_upload_id", rec.ID)

	res, err := s.process(ctx, rec)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkFileUploadProcessed(ctx, rec.ID, res.Success, res.Message); err != nil {
		return nil, fmt.Errorf("mark upload processed: %w", err)
	}
	if res.Success && s.cache != nil {
		s.cache.Invalidate(ctx, customer.ID)
	}
	log.Info("upload processed", "success", res.Success, "file_size", size)

	return &Result{
		Success:      res.Success,
		Message:      res.Message,
		FileUploadID: rec.ID,
		FileName:     req.FileName,
		FileSize:     size,
		Product:      product,
	}, nil
}

func (s *Service) validate(ctx context.Context, req Request) (*models.Customer, models.Product, models.FileType, error) {
	if req.Body == nil || req.FileName == "" || req.CustomerID == "" || req.Product == "" || req.FileType == "" {
		return nil, "", "", &ValidationError{Field: "file", Message: "file, customer_id, product, and file_type are required"}
	}
	if err := ingest.CheckExtension(req.FileName); err != nil {
		return nil, "", "", &ValidationError{Field: "file", Message: err.Error()}
	}

	id, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, "", "", &ValidationError{Field: "customer_id", Message: "customer_id must be a UUID"}
	}
	customer, err := s.repo.GetCustomer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", "", fmt.Errorf("%w: %s", ingest.ErrCustomerNotFound, id)
	}
	if err != nil {
		return nil, "", "", fmt.Errorf("get customer: %w", err)
	}

	product := models.Product(req.Product)
	if !product.Valid() {
		return nil, "", "", &ValidationError{Field: "product",
			Message: "invalid product, must be one of: " + joinProducts()}
	}
	fileType := models.FileType(req.FileType)
	if !fileType.Valid() {
		return nil, "", "", &ValidationError{Field: "file_type",
			Message: "invalid file type, supported types: BATCH_PERFORMANCE, VOLUMETRICS, SLA_TRACKING, BATCH_SCHEDULE"}
	}
	return customer, product, fileType, nil
}

func joinProducts() string {
	names := make([]string, len(models.Products))
	for i, p := range models.Products {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// save writes the body to <dir>/<customer code>/<file type>/<timestamp>_<8 hex><ext>.
func (s *Service) save(code string, fileType models.FileType, req Request) (string, int64, error) {
	dir := filepath.Join(s.dir, code, strings.ToLower(string(fileType)))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s%s",
		s.now().Format("20060102_150405"),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		filepath.Ext(req.FileName))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}
	size, err := io.Copy(f, req.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("save upload: %w", err)
	}
	return path, size, nil
}

func (s *Service) process(ctx context.Context, rec *models.FileUpload) (*ingest.Result, error) {
	f, err := os.Open(rec.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open saved upload: %w", err)
	}
	defer f.Close()

	res, err := s.ingester.Ingest(ctx, ingest.Request{
		FileType:     rec.FileType,
		FileName:     rec.FileName,
		Body:         f,
		CustomerID:   rec.CustomerID,
		Product:      rec.Product,
		FileUploadID: &rec.ID,
	})
	if err != nil {
		return nil, err
	}

	if res.Success && rec.FileType == models.FileBatchPerformance {
		customerID := rec.CustomerID
		analysis, err := s.analyzer.Analyze(ctx, sla.Filter{CustomerID: &customerID, Product: rec.Product})
		if err != nil {
			slog.Warn("post-upload sla analysis failed", "customer_id", customerID, "error", err)
			res.Message += " | SLA Analysis Warning: " + err.Error()
		} else {
			res.Message += " | SLA Analysis: " + analysis.Message
		}
	}
	return res, nil
}
