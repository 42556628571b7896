package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/internal/ingest"
	"github.com/kiranshivaraju/batchpulse/internal/predict"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// Predictor runs forecasts and serves persisted predictions and alerts.
type Predictor interface {
	Predict(ctx context.Context, req predict.Request) (*predict.Run, error)
	Latest(ctx context.Context, customerID uuid.UUID) (*predict.Run, error)
	List(ctx context.Context, f store.PredictionFilter) ([]*models.PredictionResult, int, error)
	Upcoming(ctx context.Context, customerID uuid.UUID, days int, page store.Page) ([]*models.PredictionResult, int, error)
	HighRisk(ctx context.Context, customerID uuid.UUID, page store.Page) ([]*models.PredictionResult, int, error)
	ListAlerts(ctx context.Context, f store.AlertFilter) ([]*models.PredictionAlert, int, error)
	AcknowledgeAlert(ctx context.Context, id uuid.UUID, actor string) (*models.PredictionAlert, error)
	ResolveAlert(ctx context.Context, id uuid.UUID, notes string) (*models.PredictionAlert, error)
}

type runPredictionsRequest struct {
	CustomerID      uuid.UUID `json:"customer_id"      validate:"required"`
	DaysAhead       int       `json:"days_ahead"       validate:"gte=0"`
	PredictionTypes []string  `json:"prediction_types" validate:"omitempty,dive,oneof=all failures long_runners sla_misses volume_spikes"`
}

// NewRunPredictionsHandler returns an http.HandlerFunc for POST /api/v1/predictions/run.
func NewRunPredictionsHandler(p Predictor, defaultDays int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req runPredictionsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		days := req.DaysAhead
		if days == 0 {
			days = defaultDays
		}

		run, err := p.Predict(r.Context(), predict.Request{
			CustomerID: req.CustomerID,
			DaysAhead:  days,
			Types:      req.PredictionTypes,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = fmt.Errorf("%w: %s", ingest.ErrCustomerNotFound, req.CustomerID)
			}
			writeError(w, r, err)
			return
		}
		response.JSON(w, run)
	}
}

func predictionTypeNames() []string {
	names := make([]string, len(models.PredictionTypes))
	for i, t := range models.PredictionTypes {
		names[i] = string(t)
	}
	return names
}

// NewListPredictionsHandler returns an http.HandlerFunc for GET /api/v1/predictions.
func NewListPredictionsHandler(p Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		f := store.PredictionFilter{
			CustomerID: q.requiredUUID("customer_id"),
			Type:       models.PredictionType(q.oneOf("type", predictionTypeNames()...)),
			DateRange:  q.dateRange(),
			Page:       q.page(),
		}
		if risk := q.oneOf("risk_level", string(models.RiskLow), string(models.RiskMedium),
			string(models.RiskHigh), string(models.RiskCritical)); risk != "" {
			f.RiskLevels = []models.RiskLevel{models.RiskLevel(risk)}
		}
		if !q.valid(w) {
			return
		}

		items, total, err := p.List(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writePage(w, items, total, f.Page)
	}
}

// NewUpcomingPredictionsHandler returns an http.HandlerFunc for GET /api/v1/predictions/upcoming.
func NewUpcomingPredictionsHandler(p Predictor, maxDays int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		customerID := q.requiredUUID("customer_id")
		days := q.intRange("days", 7, 1, maxDays)
		page := q.page()
		if !q.valid(w) {
			return
		}

		items, total, err := p.Upcoming(r.Context(), customerID, days, page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writePage(w, items, total, page)
	}
}

// NewHighRiskPredictionsHandler returns an http.HandlerFunc for GET /api/v1/predictions/high-risk.
func NewHighRiskPredictionsHandler(p Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		customerID := q.requiredUUID("customer_id")
		page := q.page()
		if !q.valid(w) {
			return
		}

		items, total, err := p.HighRisk(r.Context(), customerID, page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writePage(w, items, total, page)
	}
}

// NewLatestPredictionsHandler returns an http.HandlerFunc for GET /api/v1/predictions/latest.
func NewLatestPredictionsHandler(p Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		customerID := q.requiredUUID("customer_id")
		if !q.valid(w) {
			return
		}

		run, err := p.Latest(r.Context(), customerID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, run)
	}
}
