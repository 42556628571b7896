package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryHandlers_PassFilter(t *testing.T) {
	customerID := uuid.New()
	target := "?customer_id=" + customerID.String() + "&product=TMS&month=2024-02"

	handlers := map[string]func(Reporter) http.HandlerFunc{
		"jobs":         NewJobSummaryHandler,
		"failures":     NewFailureAnalysisHandler,
		"long-running": NewLongRunningAnalysisHandler,
		"volumetrics":  NewVolumetricSummaryHandler,
		"sla":          NewSLASummaryHandler,
	}

	for name, newHandler := range handlers {
		t.Run(name, func(t *testing.T) {
			b := &backend{}
			w := serve(newHandler(b), httptest.NewRequest("GET", "/summary"+target, nil))

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			require.Len(t, b.reportCalls, 1)
			f := b.reportCalls[0]
			assert.Equal(t, customerID, *f.CustomerID)
			assert.Equal(t, models.ProductTMS, f.Product)
			assert.Equal(t, "2024-02", f.Month)
		})
	}
}

func TestSummaryHandler_InvalidFilter(t *testing.T) {
	b := &backend{}
	w := serve(NewJobSummaryHandler(b), httptest.NewRequest("GET", "/api/v1/jobs/summary?date_from=yesterday-ish", nil))

	expectError(t, w, http.StatusBadRequest, "INVALID_REQUEST")
	assert.Empty(t, b.reportCalls)
}

func TestSummaryHandler_ServiceError(t *testing.T) {
	w := serve(NewSLASummaryHandler(&backend{err: errors.New("boom")}), httptest.NewRequest("GET", "/api/v1/sla/summary", nil))

	env := expectError(t, w, http.StatusInternalServerError, "INTERNAL_ERROR")
	assert.NotContains(t, env.Error.Message, "boom")
}

func TestListJobs(t *testing.T) {
	b := &backend{}
	w := serve(NewListJobsHandler(b), httptest.NewRequest("GET",
		"/api/v1/jobs?status=FAILED,completed_abnormal&job_name=CLAIMS&date_from=2024-01-01&date_to=2024-01-31&limit=20&page=2", nil))

	var got []models.JobExecution
	env := dataInto(t, w, &got)

	assert.Len(t, got, 1)
	assert.Equal(t, []models.JobStatus{models.StatusFailed, models.StatusCompletedAbnormal}, b.jobFilter.Statuses)
	assert.Equal(t, "CLAIMS", b.jobFilter.JobName)
	assert.Equal(t, 2024, b.jobFilter.DateRange.To.Year())
	assert.Equal(t, float64(45), env.Meta["total"])
	assert.Equal(t, true, env.Meta["has_next"])
}

func TestListVolumetrics(t *testing.T) {
	b := &backend{}
	w := serve(NewListVolumetricsHandler(b), httptest.NewRequest("GET", "/api/v1/volumetrics?job_name=ELIG", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ELIG", b.volFilter.JobName)
	assert.Equal(t, 20, b.volFilter.Page.Limit)
}

func TestListSchedules(t *testing.T) {
	b := &backend{}
	w := serve(NewListSchedulesHandler(b), httptest.NewRequest("GET", "/api/v1/schedules?job_type=job_group&status=enabled", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.JobTypeGroup, b.schedFilter.JobType)
	assert.Equal(t, "ENABLED", b.schedFilter.Status)

	w = serve(NewListSchedulesHandler(b), httptest.NewRequest("GET", "/api/v1/schedules?job_type=cron", nil))
	expectError(t, w, http.StatusBadRequest, "INVALID_REQUEST")
}
