package report

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// SLASummary counts compliance records by status.
type SLASummary struct {
	TotalJobs                 int     `json:"total_jobs"`
	SLAMet                    int     `json:"sla_met"`
	SLAMissed                 int     `json:"sla_missed"`
	AtRisk                    int     `json:"at_risk"`
	NoSLA                     int     `json:"no_sla"`
	ComplianceRate            float64 `json:"sla_compliance_rate"`
	AverageVariancePercentage float64 `json:"average_variance_percentage"`
	AvgTargetMinutes          float64 `json:"avg_sla_target_minutes"`
	AvgActualMinutes          float64 `json:"avg_actual_runtime_minutes"`
	TimePeriod                string  `json:"time_period"`
}

func (s *Service) SLASummary(ctx context.Context, f Filter) (*SLASummary, error) {
	return cached(ctx, s, kindSLA, f, func(ctx context.Context) (*SLASummary, error) {
		recs, err := s.repo.FindSLACompliance(ctx, store.SLAFilter{
			CustomerID: f.CustomerID,
			Product:    f.Product,
			JobName:    f.JobName,
			DateRange:  f.DateRange,
		})
		if err != nil {
			return nil, fmt.Errorf("sla summary: %w", err)
		}
		return summarizeSLA(recs, f), nil
	})
}

func summarizeSLA(recs []*models.SLACompliance, f Filter) *SLASummary {
	sum := &SLASummary{TotalJobs: len(recs), TimePeriod: timePeriod(f.Month, f.DateRange)}
	var variance, target, actual agg
	for _, r := range recs {
		switch r.Status {
		case models.SLAMet:
			sum.SLAMet++
		case models.SLAMissed:
			sum.SLAMissed++
		case models.SLAAtRisk:
			sum.AtRisk++
		case models.SLANoSLA:
			sum.NoSLA++
		}
		variance.add(r.VariancePercentage)
		target.add(r.TargetMinutes)
		actual.add(r.ActualMinutes)
	}
	sum.ComplianceRate = round2(percent(sum.SLAMet, sum.TotalJobs))
	sum.AverageVariancePercentage = round2(variance.avg())
	sum.AvgTargetMinutes = round2(target.avg())
	sum.AvgActualMinutes = round2(actual.avg())
	return sum
}
