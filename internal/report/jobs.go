package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kiranshivaraju/batchpulse/internal/analysis"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const topSignatures = 3

// JobSummary counts runs by status.
type JobSummary struct {
	TotalJobs           int     `json:"total_jobs"`
	CompletedNormal     int     `json:"completed_normal"`
	CompletedAbnormal   int     `json:"completed_abnormal"`
	CompletedNormalStar int     `json:"completed_normal_star"`
	LongRunning         int     `json:"long_running"`
	Failed              int     `json:"failed"`
	Pending             int     `json:"pending"`
	SuccessRate         float64 `json:"success_rate"`
	AverageDuration     float64 `json:"average_duration"`
	TimePeriod          string  `json:"time_period"`
	Product             string  `json:"product"`
}

func productLabel(p models.Product) string {
	if p == "" {
		return "All Products"
	}
	return string(p)
}

// JobSummary reports status counts and the success rate for runs matching f.
// Long running is the larger of the LONG_RUNNING status count and the
// is_long_running flag count.
func (s *Service) JobSummary(ctx context.Context, f Filter) (*JobSummary, error) {
	return cached(ctx, s, kindJobs, f, func(ctx context.Context) (*JobSummary, error) {
		jobs, err := s.repo.FindJobExecutions(ctx, f.jobFilter())
		if err != nil {
			return nil, fmt.Errorf("job summary: %w", err)
		}
		return summarizeJobs(jobs, f), nil
	})
}

func summarizeJobs(jobs []*models.JobExecution, f Filter) *JobSummary {
	sum := &JobSummary{
		TotalJobs:  len(jobs),
		TimePeriod: timePeriod(f.Month, f.DateRange),
		Product:    productLabel(f.Product),
	}
	var duration agg
	flagged := 0
	for _, j := range jobs {
		switch j.Status {
		case models.StatusCompletedNormal:
			sum.CompletedNormal++
		case models.StatusCompletedAbnormal:
			sum.CompletedAbnormal++
		case models.StatusCompletedNormalStar:
			sum.CompletedNormalStar++
		case models.StatusLongRunning:
			sum.LongRunning++
		case models.StatusFailed:
			sum.Failed++
		case models.StatusPending:
			sum.Pending++
		}
		if j.IsLongRunning {
			flagged++
		}
		duration.addPtr(j.DurationMinutes)
	}
	sum.LongRunning = max(sum.LongRunning, flagged)
	sum.SuccessRate = round2(percent(sum.CompletedNormal+sum.CompletedNormalStar, sum.TotalJobs))
	sum.AverageDuration = round2(duration.avg())
	return sum
}

// JobFailure is the failure profile of one job.
type JobFailure struct {
	JobName              string                  `json:"job_name"`
	TotalRuns            int                     `json:"total_runs"`
	FailedRuns           int                     `json:"failed_runs"`
	AbnormalRuns         int                     `json:"abnormal_runs"`
	TotalFailures        int                     `json:"total_failures"`
	SuccessfulRuns       int                     `json:"successful_runs"`
	FailureRate          float64                 `json:"failure_rate"`
	SuccessRate          float64                 `json:"success_rate"`
	AvgDuration          float64                 `json:"avg_duration"`
	MaxDuration          float64                 `json:"max_duration"`
	MinDuration          float64                 `json:"min_duration"`
	RecentFailureTime    *time.Time              `json:"recent_failure_time"`
	RecentFailureMessage string                  `json:"recent_failure_message,omitempty"`
	ImpactLevel          string                  `json:"impact_level"`
	Signatures           []models.ErrorSignature `json:"error_signatures"`
}

type FailureSummary struct {
	TotalJobs          int     `json:"total_jobs"`
	TotalFailed        int     `json:"total_failed"`
	TotalAbnormal      int     `json:"total_abnormal"`
	TotalFailures      int     `json:"total_failures"`
	OverallFailureRate float64 `json:"overall_failure_rate"`
	JobsWithFailures   int     `json:"jobs_with_failures"`
}

type FailureAnalysis struct {
	Jobs    []*JobFailure  `json:"failure_analysis"`
	Summary FailureSummary `json:"summary"`
}

// FailureAnalysis profiles failures per job, worst first.
func (s *Service) FailureAnalysis(ctx context.Context, f Filter) (*FailureAnalysis, error) {
	return cached(ctx, s, kindFailures, f, func(ctx context.Context) (*FailureAnalysis, error) {
		jobs, err := s.repo.FindJobExecutions(ctx, f.jobFilter())
		if err != nil {
			return nil, fmt.Errorf("failure analysis: %w", err)
		}
		return analyzeFailures(jobs), nil
	})
}

func failureImpact(rate float64) string {
	switch {
	case rate > 50:
		return "High"
	case rate > 10:
		return "Medium"
	}
	return "Low"
}

// groupByJob keeps runs in input order, which is start order.
func groupByJob(jobs []*models.JobExecution) map[string][]*models.JobExecution {
	out := map[string][]*models.JobExecution{}
	for _, j := range jobs {
		out[j.JobName] = append(out[j.JobName], j)
	}
	return out
}

func analyzeFailures(jobs []*models.JobExecution) *FailureAnalysis {
	res := &FailureAnalysis{Jobs: []*JobFailure{}}
	for name, runs := range groupByJob(jobs) {
		jf := &JobFailure{JobName: name, TotalRuns: len(runs)}
		var duration agg
		var recent *models.JobExecution
		for _, r := range runs {
			switch r.Status {
			case models.StatusFailed:
				jf.FailedRuns++
			case models.StatusCompletedAbnormal:
				jf.AbnormalRuns++
			case models.StatusCompletedNormal, models.StatusCompletedNormalStar:
				jf.SuccessfulRuns++
			}
			if r.IsFailure() && (recent == nil || r.StartTime.After(recent.StartTime)) {
				recent = r
			}
			duration.addPtr(r.DurationMinutes)
		}
		jf.TotalFailures = jf.FailedRuns + jf.AbnormalRuns
		rate := percent(jf.TotalFailures, jf.TotalRuns)
		jf.FailureRate = round2(rate)
		jf.SuccessRate = round2(percent(jf.SuccessfulRuns, jf.TotalRuns))
		jf.AvgDuration = round2(duration.avg())
		jf.MaxDuration = round2(duration.max)
		jf.MinDuration = round2(duration.min)
		jf.ImpactLevel = failureImpact(rate)
		if recent != nil {
			t := recent.StartTime
			jf.RecentFailureTime = &t
			jf.RecentFailureMessage = recent.ErrorMessage
		}
		jf.Signatures = analysis.Signatures(runs, topSignatures)
		res.Jobs = append(res.Jobs, jf)

		res.Summary.TotalFailed += jf.FailedRuns
		res.Summary.TotalAbnormal += jf.AbnormalRuns
		if jf.TotalFailures > 0 {
			res.Summary.JobsWithFailures++
		}
	}

	sort.Slice(res.Jobs, func(i, j int) bool {
		a, b := res.Jobs[i], res.Jobs[j]
		if a.FailedRuns != b.FailedRuns {
			return a.FailedRuns > b.FailedRuns
		}
		if a.AbnormalRuns != b.AbnormalRuns {
			return a.AbnormalRuns > b.AbnormalRuns
		}
		return a.JobName < b.JobName
	})

	res.Summary.TotalJobs = len(jobs)
	res.Summary.TotalFailures = res.Summary.TotalFailed + res.Summary.TotalAbnormal
	res.Summary.OverallFailureRate = round2(percent(res.Summary.TotalFailures, len(jobs)))
	return res
}

// JobLongRunning is the runtime profile of one job.
type JobLongRunning struct {
	JobName                   string     `json:"job_name"`
	TotalRuns                 int        `json:"total_runs"`
	LongRunningCount          int        `json:"long_running_count"`
	LongRunningRate           float64    `json:"long_running_rate"`
	AvgDuration               float64    `json:"avg_duration"`
	MaxDuration               float64    `json:"max_duration"`
	MinDuration               float64    `json:"min_duration"`
	DurationVariability       float64    `json:"duration_variability"`
	RecentLongRunningTime     *time.Time `json:"recent_long_running_time"`
	RecentLongRunningDuration *float64   `json:"recent_long_running_duration"`
	ImpactLevel               string     `json:"impact_level"`
	PerformanceScore          float64    `json:"performance_score"`

	byStatus, byFlag int
}

type LongRunningSummary struct {
	TotalJobs                 int     `json:"total_jobs"`
	TotalLongRunning          int     `json:"total_long_running"`
	OverallLongRunningRate    float64 `json:"overall_long_running_rate"`
	OverallAvgDuration        float64 `json:"overall_avg_duration"`
	JobsWithPerformanceIssues int     `json:"jobs_with_performance_issues"`
}

type LongRunningAnalysis struct {
	Jobs    []*JobLongRunning  `json:"long_running_analysis"`
	Summary LongRunningSummary `json:"summary"`
}

// LongRunningAnalysis profiles runtimes per job. A run counts as long
// running by status or by flag, whichever count is larger.
func (s *Service) LongRunningAnalysis(ctx context.Context, f Filter) (*LongRunningAnalysis, error) {
	return cached(ctx, s, kindLongRunning, f, func(ctx context.Context) (*LongRunningAnalysis, error) {
		jobs, err := s.repo.FindJobExecutions(ctx, f.jobFilter())
		if err != nil {
			return nil, fmt.Errorf("long running analysis: %w", err)
		}
		return analyzeLongRunning(jobs), nil
	})
}

func longRunningImpact(rate, avgDuration float64) string {
	switch {
	case rate > 30 || avgDuration > 120:
		return "High"
	case rate > 10 || avgDuration > 60:
		return "Medium"
	}
	return "Low"
}

func analyzeLongRunning(jobs []*models.JobExecution) *LongRunningAnalysis {
	res := &LongRunningAnalysis{Jobs: []*JobLongRunning{}}
	var overall agg
	totalByStatus, totalByFlag := 0, 0

	for name, runs := range groupByJob(jobs) {
		jl := &JobLongRunning{JobName: name, TotalRuns: len(runs)}
		var duration agg
		var recent *models.JobExecution
		for _, r := range runs {
			byStatus := r.Status == models.StatusLongRunning
			if byStatus {
				jl.byStatus++
			}
			if r.IsLongRunning {
				jl.byFlag++
			}
			if (byStatus || r.IsLongRunning) && (recent == nil || r.StartTime.After(recent.StartTime)) {
				recent = r
			}
			duration.addPtr(r.DurationMinutes)
			overall.addPtr(r.DurationMinutes)
		}
		totalByStatus += jl.byStatus
		totalByFlag += jl.byFlag

		jl.LongRunningCount = max(jl.byStatus, jl.byFlag)
		rate := percent(jl.LongRunningCount, jl.TotalRuns)
		avg := duration.avg()
		jl.LongRunningRate = round2(rate)
		jl.AvgDuration = round2(avg)
		jl.MaxDuration = round2(duration.max)
		jl.MinDuration = round2(duration.min)
		if duration.max != 0 && duration.min != 0 {
			jl.DurationVariability = round2(duration.max - duration.min)
		}
		if recent != nil {
			t := recent.StartTime
			jl.RecentLongRunningTime = &t
			jl.RecentLongRunningDuration = recent.DurationMinutes
		}
		jl.ImpactLevel = longRunningImpact(rate, avg)
		jl.PerformanceScore = round2(100 - rate)
		if jl.LongRunningCount > 0 {
			res.Summary.JobsWithPerformanceIssues++
		}
		res.Jobs = append(res.Jobs, jl)
	}

	sort.Slice(res.Jobs, func(i, j int) bool {
		a, b := res.Jobs[i], res.Jobs[j]
		if a.byStatus != b.byStatus {
			return a.byStatus > b.byStatus
		}
		if a.byFlag != b.byFlag {
			return a.byFlag > b.byFlag
		}
		return a.JobName < b.JobName
	})

	res.Summary.TotalJobs = len(jobs)
	res.Summary.TotalLongRunning = max(totalByStatus, totalByFlag)
	res.Summary.OverallLongRunningRate = round2(percent(res.Summary.TotalLongRunning, len(jobs)))
	res.Summary.OverallAvgDuration = round2(overall.avg())
	return res
}
