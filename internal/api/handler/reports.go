package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/internal/report"
)

// Reporter serves the cached dashboard summaries.
type Reporter interface {
	JobSummary(ctx context.Context, f report.Filter) (*report.JobSummary, error)
	FailureAnalysis(ctx context.Context, f report.Filter) (*report.FailureAnalysis, error)
	LongRunningAnalysis(ctx context.Context, f report.Filter) (*report.LongRunningAnalysis, error)
	VolumetricSummary(ctx context.Context, f report.Filter) (*report.VolumetricSummary, error)
	SLASummary(ctx context.Context, f report.Filter) (*report.SLASummary, error)
}

// summaryHandler reads the shared filter parameters and renders one report.
func summaryHandler[T any](compute func(context.Context, report.Filter) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		f := q.reportFilter()
		if !q.valid(w) {
			return
		}

		out, err := compute(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, out)
	}
}

// NewJobSummaryHandler returns an http.HandlerFunc for GET /api/v1/jobs/summary.
func NewJobSummaryHandler(rep Reporter) http.HandlerFunc {
	return summaryHandler(rep.JobSummary)
}

// NewFailureAnalysisHandler returns an http.HandlerFunc for GET /api/v1/jobs/failure-analysis.
func NewFailureAnalysisHandler(rep Reporter) http.HandlerFunc {
	return summaryHandler(rep.FailureAnalysis)
}

// NewLongRunningAnalysisHandler returns an http.HandlerFunc for GET /api/v1/jobs/long-running-analysis.
func NewLongRunningAnalysisHandler(rep Reporter) http.HandlerFunc {
	return summaryHandler(rep.LongRunningAnalysis)
}

// NewVolumetricSummaryHandler returns an http.HandlerFunc for GET /api/v1/volumetrics/summary.
func NewVolumetricSummaryHandler(rep Reporter) http.HandlerFunc {
	return summaryHandler(rep.VolumetricSummary)
}

// NewSLASummaryHandler returns an http.HandlerFunc for GET /api/v1/sla/summary.
func NewSLASummaryHandler(rep Reporter) http.HandlerFunc {
	return summaryHandler(rep.SLASummary)
}
