package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/batchpulse/internal/api/middleware"
	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// NewListAlertsHandler returns an http.HandlerFunc for GET /api/v1/alerts.
func NewListAlertsHandler(p Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		f := store.AlertFilter{
			CustomerID: q.requiredUUID("customer_id"),
			Status: models.AlertStatus(q.oneOf("status", string(models.AlertActive),
				string(models.AlertAcknowledged), string(models.AlertResolved), string(models.AlertExpired))),
			Page: q.page(),
		}
		if !q.valid(w) {
			return
		}

		items, total, err := p.ListAlerts(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writePage(w, items, total, f.Page)
	}
}

func alertID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "alertID must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// NewAcknowledgeAlertHandler returns an http.HandlerFunc for
// POST /api/v1/alerts/{alertID}/acknowledge. The acting key's name is
// recorded as acknowledged_by.
func NewAcknowledgeAlertHandler(p Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := alertID(w, r)
		if !ok {
			return
		}
		actor := mw.GetAPIKeyName(r)
		if actor == "" {
			actor = "api"
		}

		alert, err := p.AcknowledgeAlert(r.Context(), id, actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, alert)
	}
}

type resolveAlertRequest struct {
	ResolutionNotes string `json:"resolution_notes" validate:"max=4000"`
}

// NewResolveAlertHandler returns an http.HandlerFunc for
// POST /api/v1/alerts/{alertID}/resolve.
func NewResolveAlertHandler(p Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := alertID(w, r)
		if !ok {
			return
		}
		var req resolveAlertRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		alert, err := p.ResolveAlert(r.Context(), id, req.ResolutionNotes)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, alert)
	}
}
