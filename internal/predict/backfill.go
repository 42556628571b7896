package predict

import (
	"math"
	"time"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const (
	backfillMinTotal   = 5
	backfillMinPerType = 2
	backfillPerType    = 2
	backfillJobNames   = 10
)

var defaultDemoJobs = []string{"DemoJob_01", "DemoJob_02", "DemoJob_03"}

// Backfill tops up sparse prediction sets with synthetic entries built from
// the customer's recent job names. It only acts when fewer than five
// predictions exist in total, and then only for types holding fewer than
// two. Synthetic entries are tagged SourceSynthetic and never replace a
// statistical prediction for the same job and date.
func Backfill(preds map[models.PredictionType][]*models.PredictionResult, recentJobs []string, today time.Time) int {
	total := 0
	for _, ps := range preds {
		total += len(ps)
	}
	if total >= backfillMinTotal {
		return 0
	}

	jobs := recentJobs
	if len(jobs) > backfillJobNames {
		jobs = jobs[:backfillJobNames]
	}
	if len(jobs) == 0 {
		jobs = defaultDemoJobs
	}
	demo := demoPredictions(jobs, today)

	added := 0
	for _, t := range models.PredictionTypes {
		if len(preds[t]) >= backfillMinPerType {
			continue
		}
		taken := map[string]bool{}
		for _, p := range preds[t] {
			taken[p.JobName+"|"+p.PredictedDate.Format(time.DateOnly)] = true
		}
		n := 0
		for _, p := range demo[t] {
			if n == backfillPerType {
				break
			}
			if taken[p.JobName+"|"+p.PredictedDate.Format(time.DateOnly)] {
				continue
			}
			preds[t] = append(preds[t], p)
			n++
		}
		added += n
	}
	return added
}

func synthetic(t models.PredictionType, job string, date time.Time, p, confidence float64, factors map[string]any) *models.PredictionResult {
	return &models.PredictionResult{
		PredictionType: t,
		JobName:        job,
		PredictedDate:  date,
		Probability:    p,
		Confidence:     confidence,
		RiskLevel:      models.RiskFor(p),
		Factors:        factors,
		Source:         models.SourceSynthetic,
	}
}

func demoPredictions(jobs []string, today time.Time) map[models.PredictionType][]*models.PredictionResult {
	day := func(offset int) time.Time {
		return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}
	out := map[models.PredictionType][]*models.PredictionResult{}

	for i, job := range jobs[:min(3, len(jobs))] {
		for _, off := range []int{1, 3, 5} {
			raw := 0.3 + float64(i)*0.1 + float64(off)*0.05
			p := math.Min(0.85, raw)
			out[models.PredictFailure] = append(out[models.PredictFailure], synthetic(
				models.PredictFailure, job, day(off), p, math.Min(0.9, raw+0.2),
				map[string]any{"recent_failures": 2, "performance_degradation": true, "dependency_issues": false}))
		}
	}

	for i, job := range jobs[:min(2, len(jobs))] {
		for _, off := range []int{2, 4} {
			pred := synthetic(models.PredictLongRunner, job, day(off), 0.6+float64(i)*0.1, 0.8, map[string]any{})
			pred.PredictedDuration = f64(float64(120 + i*30 + off*10))
			pred.NormalDuration = f64(float64(60 + i*15))
			out[models.PredictLongRunner] = append(out[models.PredictLongRunner], pred)
		}
	}

	for i, job := range jobs[:min(2, len(jobs))] {
		pred := synthetic(models.PredictSLAMiss, job, day(i+1), 0.4+float64(i)*0.2, 0.75,
			map[string]any{"sla_target": "23:30"})
		pred.PredictedCompletion = "23:45"
		out[models.PredictSLAMiss] = append(out[models.PredictSLAMiss], pred)
	}

	pred := synthetic(models.PredictVolumeSpike, jobs[0], day(2), 0.7, 0.8, map[string]any{})
	pred.PredictedVolume = i64(15000)
	pred.NormalVolume = i64(8000)
	pred.VolumeThreshold = f64(12000)
	out[models.PredictVolumeSpike] = append(out[models.PredictVolumeSpike], pred)
	return out
}
