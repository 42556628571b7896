package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/internal/ingest"
	"github.com/kiranshivaraju/batchpulse/internal/sla"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

type SLADefinitionStore interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	UpsertSLADefinition(ctx context.Context, def *models.SLADefinition) (bool, error)
	ListSLADefinitions(ctx context.Context, filter store.SLADefinitionFilter) ([]*models.SLADefinition, error)
}

type SLARecordLister interface {
	ListSLACompliance(ctx context.Context, filter store.SLAFilter) ([]*models.SLACompliance, int, error)
}

type SLAAnalyzer interface {
	Analyze(ctx context.Context, f sla.Filter) (*sla.Result, error)
}

// SummaryInvalidator drops cached reports after compliance data changes.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, customerID uuid.UUID)
	InvalidateAll(ctx context.Context)
}

// NewListSLADefinitionsHandler returns an http.HandlerFunc for GET /api/v1/sla/definitions.
func NewListSLADefinitionsHandler(s SLADefinitionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		f := store.SLADefinitionFilter{
			CustomerID: q.uuid("customer_id"),
			Product:    q.product("product"),
			ActiveOnly: q.str("active") == "true",
		}
		if !q.valid(w) {
			return
		}

		defs, err := s.ListSLADefinitions(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if defs == nil {
			defs = []*models.SLADefinition{}
		}
		response.JSON(w, defs)
	}
}

type upsertSLADefinitionRequest struct {
	CustomerID  uuid.UUID `json:"customer_id" validate:"required"`
	Product     string    `json:"product"     validate:"required,product"`
	JobName     string    `json:"job_name"    validate:"required,max=255"`
	TargetTime  string    `json:"target_time" validate:"required,clock"`
	Description string    `json:"description" validate:"max=2000"`
	IsActive    *bool     `json:"is_active"`
}

// NewUpsertSLADefinitionHandler returns an http.HandlerFunc for PUT /api/v1/sla/definitions.
// It answers 201 when the (customer, product, job_name) triple is new and 200
// when an existing definition was replaced.
func NewUpsertSLADefinitionHandler(s SLADefinitionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req upsertSLADefinitionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if _, err := s.GetCustomer(r.Context(), req.CustomerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = fmt.Errorf("%w: %s", ingest.ErrCustomerNotFound, req.CustomerID)
			}
			writeError(w, r, err)
			return
		}

		target, _ := models.ParseClock(req.TargetTime)
		def := &models.SLADefinition{
			CustomerID:  req.CustomerID,
			Product:     models.Product(req.Product),
			JobName:     strings.TrimSpace(req.JobName),
			TargetTime:  target,
			Description: req.Description,
			IsActive:    req.IsActive == nil || *req.IsActive,
		}
		created, err := s.UpsertSLADefinition(r.Context(), def)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if created {
			response.Created(w, def)
			return
		}
		response.JSON(w, def)
	}
}

// NewListSLARecordsHandler returns an http.HandlerFunc for GET /api/v1/sla/records.
func NewListSLARecordsHandler(s SLARecordLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		f := store.SLAFilter{
			CustomerID: q.uuid("customer_id"),
			Product:    q.product("product"),
			JobName:    q.str("job_name"),
			Status: models.SLAStatus(q.oneOf("status",
				string(models.SLAMet), string(models.SLAMissed), string(models.SLAAtRisk), string(models.SLANoSLA))),
			DateRange: q.dateRange(),
			Page:      q.page(),
		}
		if !q.valid(w) {
			return
		}

		items, total, err := s.ListSLACompliance(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writePage(w, items, total, f.Page)
	}
}

type analyzeSLARequest struct {
	CustomerID *uuid.UUID `json:"customer_id"`
	Product    string     `json:"product"   validate:"omitempty,product"`
	DateFrom   string     `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo     string     `json:"date_to"   validate:"omitempty,datetime=2006-01-02"`
}

// NewAnalyzeSLAHandler returns an http.HandlerFunc for POST /api/v1/sla/analyze.
// An empty body analyzes every customer.
func NewAnalyzeSLAHandler(a SLAAnalyzer, inv SummaryInvalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeSLARequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		f := sla.Filter{CustomerID: req.CustomerID, Product: models.Product(req.Product)}
		f.DateRange.From, _ = time.Parse(time.DateOnly, req.DateFrom)
		f.DateRange.To, _ = time.Parse(time.DateOnly, req.DateTo)

		res, err := a.Analyze(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if req.CustomerID != nil {
			inv.Invalidate(r.Context(), *req.CustomerID)
		} else {
			inv.InvalidateAll(r.Context())
		}
		response.JSON(w, res)
	}
}
