package report

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// VolumetricSummary aggregates daily volume records.
type VolumetricSummary struct {
	TotalVolume       int64   `json:"total_volume"`
	AverageVolume     float64 `json:"average_volume"`
	PeakVolume        int64   `json:"peak_volume"`
	TotalRuntime      float64 `json:"total_runtime"`
	AverageRuntime    float64 `json:"average_runtime"`
	PeakRuntime       float64 `json:"peak_runtime"`
	AverageEfficiency float64 `json:"average_efficiency"`
	AvgPerformance    float64 `json:"avg_performance"`
	MinPerformance    float64 `json:"min_performance"`
	MaxPerformance    float64 `json:"max_performance"`
	JobName           string  `json:"job_name"`
	TimePeriod        string  `json:"time_period"`
}

func (s *Service) VolumetricSummary(ctx context.Context, f Filter) (*VolumetricSummary, error) {
	return cached(ctx, s, kindVolumetrics, f, func(ctx context.Context) (*VolumetricSummary, error) {
		recs, err := s.repo.FindVolumetrics(ctx, store.VolumetricFilter{
			CustomerID: f.CustomerID,
			JobName:    f.JobName,
			DateRange:  f.DateRange,
		})
		if err != nil {
			return nil, fmt.Errorf("volumetric summary: %w", err)
		}
		return summarizeVolumetrics(recs, f), nil
	})
}

func summarizeVolumetrics(recs []*models.VolumetricRecord, f Filter) *VolumetricSummary {
	sum := &VolumetricSummary{JobName: f.JobName, TimePeriod: timePeriod("", f.DateRange)}
	if sum.JobName == "" {
		sum.JobName = "All Jobs"
	}
	var volume, runtime, peakRuntime, efficiency, rpm, minPerf, maxPerf agg
	for _, r := range recs {
		sum.TotalVolume += r.TotalVolume
		volume.add(float64(r.TotalVolume))
		if r.PeakVolume != nil && *r.PeakVolume > sum.PeakVolume {
			sum.PeakVolume = *r.PeakVolume
		}
		runtime.add(r.TotalRuntime)
		peakRuntime.addPtr(r.PeakRuntime)
		efficiency.addPtr(r.ProcessingEfficiency)
		rpm.add(r.RecordsPerMinute)
		minPerf.addPtr(r.MinPerformance)
		maxPerf.addPtr(r.MaxPerformance)
	}
	sum.AverageVolume = round2(volume.avg())
	sum.TotalRuntime = round2(runtime.sum)
	sum.AverageRuntime = round2(runtime.avg())
	sum.PeakRuntime = round2(peakRuntime.max)
	sum.AverageEfficiency = round2(efficiency.avg())
	sum.AvgPerformance = round2(rpm.avg())
	sum.MinPerformance = round2(minPerf.min)
	sum.MaxPerformance = round2(maxPerf.max)
	return sum
}
