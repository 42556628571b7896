package sla

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(start time.Time, end *time.Time) *models.JobExecution {
	return &models.JobExecution{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Product:    models.ProductFacets,
		JobName:    "NIGHTLY_CLAIMS",
		Status:     models.StatusCompletedNormal,
		StartTime:  start,
		EndTime:    end,
	}
}

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(t time.Time) *time.Time { return &t }

func def(hour, minute int) *models.SLADefinition {
	return &models.SLADefinition{TargetTime: models.TimeOfDay{Hour: hour, Minute: minute}, IsActive: true}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		job          *models.JobExecution
		def          *models.SLADefinition
		wantStatus   models.SLAStatus
		wantTarget   float64
		wantActual   float64
		wantVariance float64
		wantNextDay  bool
		wantDaysLate int
		wantImpact   string
	}{
		{
			name:         "cross day completion is a miss",
			job:          run(at("2024-01-01 23:00:00"), ptr(at("2024-01-02 00:10:00"))),
			def:          def(23, 50),
			wantStatus:   models.SLAMissed,
			wantTarget:   1430,
			wantActual:   1450,
			wantVariance: 20,
			wantNextDay:  true,
			wantDaysLate: 1,
			wantImpact:   "Job completed 1 day(s) late",
		},
		{
			name:         "early completion",
			job:          run(at("2024-01-01 01:00:00"), ptr(at("2024-01-01 05:30:00"))),
			def:          def(6, 0),
			wantStatus:   models.SLAMet,
			wantTarget:   360,
			wantActual:   330,
			wantVariance: -30,
			wantImpact:   "Job completed 30.0 minutes early",
		},
		{
			name:         "exactly on target",
			job:          run(at("2024-01-01 01:00:00"), ptr(at("2024-01-01 06:00:00"))),
			def:          def(6, 0),
			wantStatus:   models.SLAMet,
			wantTarget:   360,
			wantActual:   360,
			wantImpact:   "Job completed 0.0 minutes early",
		},
		{
			name:         "late same day",
			job:          run(at("2024-01-01 01:00:00"), ptr(at("2024-01-01 06:45:30"))),
			def:          def(6, 0),
			wantStatus:   models.SLAMissed,
			wantTarget:   360,
			wantActual:   405.5,
			wantVariance: 45.5,
			wantImpact:   "Job completed 45.5 minutes late",
		},
		{
			name:       "incomplete with definition is at risk",
			job:        run(at("2024-01-01 01:00:00"), nil),
			def:        def(6, 0),
			wantStatus: models.SLAAtRisk,
			wantTarget: 360,
			wantImpact: "Job not completed yet",
		},
		{
			name:       "no definition is met",
			job:        run(at("2024-01-01 01:00:00"), ptr(at("2024-01-01 02:00:00"))),
			wantStatus: models.SLAMet,
			wantActual: 120,
			wantImpact: "No SLA defined - considered compliant by default",
		},
		{
			name:         "no definition keeps rollover",
			job:          run(at("2024-01-01 22:00:00"), ptr(at("2024-01-03 01:00:00"))),
			wantStatus:   models.SLAMet,
			wantActual:   2*1440 + 60,
			wantNextDay:  true,
			wantDaysLate: 2,
			wantImpact:   "No SLA defined - considered compliant by default",
		},
		{
			name:       "no definition and incomplete",
			job:        run(at("2024-01-01 01:00:00"), nil),
			wantStatus: models.SLAMet,
			wantImpact: "No SLA defined - considered compliant by default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Evaluate(tt.job, tt.def)
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.InDelta(t, tt.wantTarget, rec.TargetMinutes, 1e-9)
			assert.InDelta(t, tt.wantActual, rec.ActualMinutes, 1e-9)
			assert.InDelta(t, tt.wantVariance, rec.VarianceMinutes, 1e-9)
			assert.Equal(t, tt.wantNextDay, rec.CompletedNextDay)
			assert.Equal(t, tt.wantDaysLate, rec.DaysLate)
			assert.Equal(t, tt.wantImpact, rec.BusinessImpact)
			require.NotNil(t, rec.BatchJobID)
			assert.Equal(t, tt.job.ID, *rec.BatchJobID)
		})
	}
}

func TestEvaluate_VariancePercentage(t *testing.T) {
	rec := Evaluate(run(at("2024-01-01 01:00:00"), ptr(at("2024-01-01 06:36:00"))), def(6, 0))
	assert.InDelta(t, 10.0, rec.VariancePercentage, 1e-9)

	// Midnight target has no percentage.
	rec = Evaluate(run(at("2024-01-01 00:00:00"), ptr(at("2024-01-01 00:30:00"))), def(0, 0))
	assert.Equal(t, models.SLAMissed, rec.Status)
	assert.Zero(t, rec.VariancePercentage)
}

func TestEvaluate_DateIsStartDay(t *testing.T) {
	rec := Evaluate(run(at("2024-03-09 23:30:00"), ptr(at("2024-03-10 01:00:00"))), def(23, 59))
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), rec.Date)
}
