// Package predict turns job, volumetric and SLA history into rule-based
// risk forecasts and alerts.
package predict

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const (
	minFailureRuns     = 3
	minDurations       = 5
	minSLARecords      = 3
	minVolumeObs       = 10
	recentFailureRuns  = 7
	recentDurationRuns = 10

	failureFloor     = 0.15
	failureGate      = 0.1
	failureEmit      = 0.2
	longRunnerGate   = 0.2
	longRunnerEmit   = 0.3
	longRunnerCap    = 0.9
	slaBaseEmit      = 0.4
	volumeEmit       = 0.4
	volumeCap        = 0.9
	probabilityCap   = 0.95
	assumedStartHour = 9
)

// dayFactors are indexed Monday first.
var dayFactors = [7]float64{1.1, 1.0, 1.0, 1.0, 0.9, 0.7, 0.7}

// weekday returns 0 for Monday through 6 for Sunday.
func weekday(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// AdjustForDay scales p by the weekday factor of d, capped at 0.95.
func AdjustForDay(p float64, d time.Time) float64 {
	return math.Min(probabilityCap, p*dayFactors[weekday(d)])
}

// Horizon returns the forecast dates today+1 through today+days.
func Horizon(today time.Time, days int) []time.Time {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 0, days)
	for i := 1; i <= days; i++ {
		dates = append(dates, start.AddDate(0, 0, i))
	}
	return dates
}

func statistical(t models.PredictionType, job string, date time.Time, p, confidence float64) *models.PredictionResult {
	return &models.PredictionResult{
		PredictionType: t,
		JobName:        job,
		PredictedDate:  date,
		Probability:    p,
		Confidence:     confidence,
		RiskLevel:      models.RiskFor(p),
		Source:         models.SourceStatistical,
	}
}

// FailureRate blends the overall and trailing failure rates of runs, which
// must be in start order.
func FailureRate(runs []*models.JobExecution) float64 {
	if len(runs) == 0 {
		return 0
	}
	failures := countFailures(runs)
	recent := runs[max(0, len(runs)-recentFailureRuns):]
	base := float64(failures) / float64(len(runs))
	recentRate := float64(countFailures(recent)) / float64(len(recent))

	rate := base*0.6 + recentRate*0.4
	if failures > 0 {
		rate = math.Max(failureFloor, rate)
	}
	return math.Min(probabilityCap, rate)
}

func countFailures(runs []*models.JobExecution) int {
	n := 0
	for _, r := range runs {
		if r.IsFailure() {
			n++
		}
	}
	return n
}

// Failures predicts per-day failure risk for every job with enough runs.
func Failures(history map[string][]*models.JobExecution, dates []time.Time) []*models.PredictionResult {
	var out []*models.PredictionResult
	for _, job := range sortedKeys(history) {
		runs := history[job]
		if len(runs) < minFailureRuns {
			continue
		}
		rate := FailureRate(runs)
		if rate <= failureGate {
			continue
		}
		recent := runs[max(0, len(runs)-recentFailureRuns):]
		factors := map[string]any{
			"total_failures":     countFailures(runs),
			"recent_failures":    countFailures(recent),
			"failure_rate":       float64(countFailures(runs)) / float64(len(runs)),
			"has_recent_pattern": countFailures(recent) > 0,
		}
		for _, d := range dates {
			p := AdjustForDay(rate, d)
			if p <= failureEmit {
				continue
			}
			pred := statistical(models.PredictFailure, job, d, p, math.Min(probabilityCap, p+0.1))
			pred.Factors = factors
			out = append(out, pred)
		}
	}
	sortByProbability(out)
	return out
}

type durationStats struct {
	count     int
	mean      float64
	std       float64
	threshold float64
	recent    []float64
}

func newDurationStats(durations []float64) durationStats {
	mean, std := meanStd(durations)
	return durationStats{
		count:     len(durations),
		mean:      mean,
		std:       std,
		threshold: mean + 2*std,
		recent:    durations[max(0, len(durations)-recentDurationRuns):],
	}
}

// probability is the trailing exceedance rate scaled down when recent runs
// are shorter than the overall mean.
func (s durationStats) probability() float64 {
	if len(s.recent) == 0 || s.mean == 0 {
		return 0
	}
	recentMean, _ := meanStd(s.recent)
	trend := math.Min(1, recentMean/s.mean)
	exceed := 0
	for _, d := range s.recent {
		if d > s.threshold {
			exceed++
		}
	}
	return math.Min(longRunnerCap, float64(exceed)/float64(len(s.recent))*trend)
}

// LongRunners predicts per-day risk of a run exceeding mean + 2 stddev.
func LongRunners(durations map[string][]float64, dates []time.Time) []*models.PredictionResult {
	var out []*models.PredictionResult
	for _, job := range sortedKeys(durations) {
		if len(durations[job]) < minDurations {
			continue
		}
		st := newDurationStats(durations[job])
		p := st.probability()
		if p <= longRunnerGate {
			continue
		}
		for _, d := range dates {
			daily := math.Min(longRunnerCap, AdjustForDay(p, d))
			if daily <= longRunnerEmit {
				continue
			}
			pred := statistical(models.PredictLongRunner, job, d, daily, math.Min(longRunnerCap, daily+0.1))
			pred.PredictedDuration = f64(st.threshold)
			pred.NormalDuration = f64(st.mean)
			pred.Factors = map[string]any{
				"runs":         st.count,
				"std_duration": st.std,
			}
			out = append(out, pred)
		}
	}
	sortByProbability(out)
	return out
}

type slaStats struct {
	total       int
	missRate    float64
	target      float64
	avgVariance float64
}

func newSLAStats(records []*models.SLACompliance) slaStats {
	misses := 0
	variances := make([]float64, len(records))
	for i, r := range records {
		if r.Status == models.SLAMissed {
			misses++
		}
		variances[i] = r.VarianceMinutes
	}
	avg, _ := meanStd(variances)
	s := slaStats{total: len(records), avgVariance: avg}
	if len(records) > 0 {
		s.missRate = float64(misses) / float64(len(records))
		s.target = records[0].TargetMinutes
	}
	return s
}

func (s slaStats) probability() float64 {
	if s.total < minSLARecords {
		return 0
	}
	factor := 1.0
	if s.avgVariance > 0 {
		factor = math.Min(1.5, 1+s.avgVariance/60)
	}
	return math.Min(probabilityCap, s.missRate*factor)
}

// SLAMisses predicts SLA misses from the miss history of each job, raised
// where a long-runner prediction exists for the same job and date. One
// prediction is kept per job and date, the more likely one.
func SLAMisses(history map[string][]*models.SLACompliance, longRunners []*models.PredictionResult, dates []time.Time) []*models.PredictionResult {
	byKey := map[string]*models.PredictionResult{}
	var order []string
	keep := func(p *models.PredictionResult) {
		key := p.JobName + "|" + p.PredictedDate.Format(time.DateOnly)
		cur, ok := byKey[key]
		if !ok {
			order = append(order, key)
		}
		if !ok || p.Probability > cur.Probability {
			byKey[key] = p
		}
	}

	for _, job := range sortedKeys(history) {
		st := newSLAStats(history[job])
		if st.total < minSLARecords || st.target == 0 {
			continue
		}
		base := st.probability()

		for _, lr := range longRunners {
			if lr.JobName != job {
				continue
			}
			p := math.Min(probabilityCap, base+lr.Probability*0.3)
			pred := statistical(models.PredictSLAMiss, job, lr.PredictedDate, p, math.Min(0.9, p))
			if lr.PredictedDuration != nil {
				pred.PredictedCompletion = EstimateCompletion(*lr.PredictedDuration)
			}
			pred.Factors = map[string]any{
				"sla_target_minutes":    st.target,
				"long_running_risk":     lr.Probability,
				"historical_sla_misses": st.missRate,
			}
			keep(pred)
		}

		if base > slaBaseEmit {
			for _, d := range dates {
				pred := statistical(models.PredictSLAMiss, job, d, base, math.Min(0.8, base+0.1))
				pred.Factors = map[string]any{
					"sla_target_minutes":    st.target,
					"historical_sla_misses": st.missRate,
				}
				keep(pred)
			}
		}
	}

	out := make([]*models.PredictionResult, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	sortByProbability(out)
	return out
}

// EstimateCompletion projects a completion clock time for a run of the given
// minutes starting at 09:00.
func EstimateCompletion(durationMinutes float64) string {
	hour := assumedStartHour + durationMinutes/60
	prefix := ""
	if hour >= 24 {
		hour -= 24
		prefix = "Next day "
	}
	whole := math.Floor(hour)
	return fmt.Sprintf("%s%02d:%02d", prefix, int(whole), int((hour-whole)*60))
}

type volumePattern struct {
	mean      float64
	std       float64
	weekly    map[int]float64
	monthly   map[int]float64
	spikeFreq float64
}

func newVolumePattern(records []*models.VolumetricRecord) volumePattern {
	volumes := make([]float64, len(records))
	for i, r := range records {
		volumes[i] = float64(r.TotalVolume)
	}
	mean, std := meanStd(volumes)
	vp := volumePattern{mean: mean, std: std, weekly: map[int]float64{}, monthly: map[int]float64{}}

	weekly := map[int][]float64{}
	monthly := map[int][]float64{}
	for i, r := range records {
		weekly[weekday(r.Date)] = append(weekly[weekday(r.Date)], volumes[i])
		monthly[r.Date.Day()] = append(monthly[r.Date.Day()], volumes[i])
	}
	factor := func(vs []float64) float64 {
		if mean <= 0 {
			return 1
		}
		m, _ := meanStd(vs)
		return m / mean
	}
	for d, vs := range weekly {
		vp.weekly[d] = factor(vs)
	}
	for d, vs := range monthly {
		vp.monthly[d] = factor(vs)
	}

	spikeAt := mean + 1.5*std
	spikes := 0
	for _, v := range volumes {
		if v > spikeAt {
			spikes++
		}
	}
	if len(volumes) > 0 {
		vp.spikeFreq = float64(spikes) / float64(len(volumes))
	}
	return vp
}

func (vp volumePattern) factors(d time.Time) (weekly, monthly float64) {
	weekly, monthly = 1, 1
	if f, ok := vp.weekly[weekday(d)]; ok {
		weekly = f
	}
	if f, ok := vp.monthly[d.Day()]; ok {
		monthly = f
	}
	return weekly, monthly
}

// VolumeSpikes predicts days with unusually high volume for jobs with at
// least ten observations.
func VolumeSpikes(history map[string][]*models.VolumetricRecord, dates []time.Time) []*models.PredictionResult {
	var out []*models.PredictionResult
	for _, job := range sortedKeys(history) {
		if len(history[job]) < minVolumeObs {
			continue
		}
		vp := newVolumePattern(history[job])
		for _, d := range dates {
			wf, mf := vp.factors(d)
			p := math.Min(volumeCap, vp.spikeFreq*wf*mf)
			if p <= volumeEmit {
				continue
			}
			estimate := vp.mean * wf * mf
			if wf > 1.2 || mf > 1.2 {
				estimate += vp.std
			}
			pred := statistical(models.PredictVolumeSpike, job, d, p, math.Min(0.85, p+0.1))
			pred.PredictedVolume = i64(int64(estimate))
			pred.NormalVolume = i64(int64(vp.mean))
			pred.VolumeThreshold = f64(vp.mean + 2*vp.std)
			pred.Factors = map[string]any{
				"weekday_factor":      wf,
				"day_of_month_factor": mf,
				"spike_frequency":     vp.spikeFreq,
			}
			out = append(out, pred)
		}
	}
	sortByProbability(out)
	return out
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(std / float64(len(xs)))
}

func sortByProbability(ps []*models.PredictionResult) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Probability != ps[j].Probability {
			return ps[i].Probability > ps[j].Probability
		}
		if !ps[i].PredictedDate.Equal(ps[j].PredictedDate) {
			return ps[i].PredictedDate.Before(ps[j].PredictedDate)
		}
		return ps[i].JobName < ps[j].JobName
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }
