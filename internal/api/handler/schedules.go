package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

type ScheduleLister interface {
	ListSchedules(ctx context.Context, filter store.ScheduleFilter) ([]*models.Schedule, int, error)
}

// NewListSchedulesHandler returns an http.HandlerFunc for GET /api/v1/schedules.
func NewListSchedulesHandler(s ScheduleLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		f := store.ScheduleFilter{
			CustomerID: q.uuid("customer_id"),
			JobType: models.JobType(q.oneOf("job_type",
				string(models.JobTypeIndividual), string(models.JobTypeGroup), string(models.JobTypeFolder),
				string(models.JobTypeCondition), string(models.JobTypeResource))),
			Status: strings.ToUpper(q.str("status")),
			Page:   q.page(),
		}
		if !q.valid(w) {
			return
		}

		items, total, err := s.ListSchedules(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writePage(w, items, total, f.Page)
	}
}
