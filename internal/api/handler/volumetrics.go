package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

type VolumetricLister interface {
	ListVolumetrics(ctx context.Context, filter store.VolumetricFilter) ([]*models.VolumetricRecord, int, error)
}

// NewListVolumetricsHandler returns an http.HandlerFunc for GET /api/v1/volumetrics.
func NewListVolumetricsHandler(s VolumetricLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		f := store.VolumetricFilter{
			CustomerID: q.uuid("customer_id"),
			JobName:    q.str("job_name"),
			DateRange:  q.dateRange(),
			Page:       q.page(),
		}
		if !q.valid(w) {
			return
		}

		items, total, err := s.ListVolumetrics(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writePage(w, items, total, f.Page)
	}
}
