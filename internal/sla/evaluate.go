// Package sla derives SLA compliance records from job executions.
package sla

import (
	"fmt"
	"math"
	"time"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const minutesPerDay = 24 * 60

const (
	impactNoSLA      = "No SLA defined - considered compliant by default"
	impactIncomplete = "Job not completed yet"
)

// Evaluate computes the compliance record for one run. def may be nil, in
// which case the run is compliant by default. The returned record has no ID.
func Evaluate(job *models.JobExecution, def *models.SLADefinition) *models.SLACompliance {
	start := job.StartTime.UTC()
	rec := &models.SLACompliance{
		CustomerID: job.CustomerID,
		Product:    job.Product,
		JobName:    job.JobName,
		Date:       time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		BatchJobID: &job.ID,
	}

	if def == nil {
		if job.EndTime != nil {
			rec.ActualMinutes, rec.DaysLate = completion(start, job.EndTime.UTC())
			rec.CompletedNextDay = rec.DaysLate > 0
		}
		rec.Status = models.SLAMet
		rec.BusinessImpact = impactNoSLA
		return rec
	}

	rec.TargetMinutes = def.TargetTime.Minutes()
	if job.EndTime == nil {
		rec.Status = models.SLAAtRisk
		rec.BusinessImpact = impactIncomplete
		return rec
	}

	rec.ActualMinutes, rec.DaysLate = completion(start, job.EndTime.UTC())
	rec.CompletedNextDay = rec.DaysLate > 0
	rec.VarianceMinutes = rec.ActualMinutes - rec.TargetMinutes
	if rec.TargetMinutes > 0 {
		rec.VariancePercentage = rec.VarianceMinutes / rec.TargetMinutes * 100
	}

	switch {
	case rec.CompletedNextDay || rec.DaysLate > 0:
		rec.Status = models.SLAMissed
		rec.BusinessImpact = fmt.Sprintf("Job completed %d day(s) late", rec.DaysLate)
	case rec.VarianceMinutes <= 0:
		rec.Status = models.SLAMet
		rec.BusinessImpact = fmt.Sprintf("Job completed %.1f minutes early", math.Abs(rec.VarianceMinutes))
	default:
		rec.Status = models.SLAMissed
		rec.BusinessImpact = fmt.Sprintf("Job completed %.1f minutes late", rec.VarianceMinutes)
	}
	return rec
}

// completion returns the end time as minutes from the start day's midnight,
// extended by a full day per calendar day crossed, and the days crossed.
func completion(start, end time.Time) (minutes float64, daysLate int) {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	daysLate = int(endDay.Sub(startDay).Hours() / 24)
	if daysLate < 0 {
		daysLate = 0
	}
	minutes = float64(end.Hour()*60+end.Minute()) + float64(end.Second())/60
	minutes += float64(daysLate * minutesPerDay)
	return minutes, daysLate
}
