package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

type JobLister interface {
	ListJobExecutions(ctx context.Context, filter store.JobFilter) ([]*models.JobExecution, int, error)
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
// status accepts a comma-separated list of normalized statuses.
func NewListJobsHandler(s JobLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		f := store.JobFilter{
			CustomerID: q.uuid("customer_id"),
			Product:    q.product("product"),
			JobName:    q.str("job_name"),
			Statuses:   q.statuses("status"),
			Month:      q.month("month"),
			DateRange:  q.dateRange(),
			Page:       q.page(),
		}
		if !q.valid(w) {
			return
		}

		items, total, err := s.ListJobExecutions(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writePage(w, items, total, f.Page)
	}
}

func (q *query) statuses(name string) []models.JobStatus {
	v := q.str(name)
	if v == "" {
		return nil
	}
	var out []models.JobStatus
	for _, part := range strings.Split(v, ",") {
		s := models.JobStatus(strings.ToUpper(strings.TrimSpace(part)))
		known := false
		for _, ok := range models.JobStatuses {
			if s == ok {
				known = true
				break
			}
		}
		if !known {
			q.fail(name, "unknown status %q", part)
			continue
		}
		out = append(out, s)
	}
	return out
}
