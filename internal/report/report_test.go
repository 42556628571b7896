package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	jobs      []*models.JobExecution
	volumes   []*models.VolumetricRecord
	sla       []*models.SLACompliance
	customers []*models.Customer
	stats     map[uuid.UUID]store.JobStats
	err       error
	jobCalls  int
}

var _ Repository = (*fakeRepo)(nil)

func (f *fakeRepo) FindJobExecutions(context.Context, store.JobFilter) ([]*models.JobExecution, error) {
	f.jobCalls++
	return f.jobs, f.err
}

func (f *fakeRepo) FindVolumetrics(context.Context, store.VolumetricFilter) ([]*models.VolumetricRecord, error) {
	return f.volumes, f.err
}

func (f *fakeRepo) FindSLACompliance(context.Context, store.SLAFilter) ([]*models.SLACompliance, error) {
	return f.sla, f.err
}

func (f *fakeRepo) ListCustomers(context.Context) ([]*models.Customer, error) {
	return f.customers, f.err
}

func (f *fakeRepo) CustomerJobStats(context.Context) (map[uuid.UUID]store.JobStats, error) {
	return f.stats, f.err
}

type memCache struct {
	data map[string][]byte
}

var _ Cache = (*memCache)(nil)

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

var day1 = time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)

func job(name string, status models.JobStatus, duration float64, offset int) *models.JobExecution {
	j := &models.JobExecution{
		ID:        uuid.New(),
		JobName:   name,
		Status:    status,
		StartTime: day1.AddDate(0, 0, offset),
	}
	if duration > 0 {
		j.DurationMinutes = &duration
	}
	return j
}

func flagged(j *models.JobExecution) *models.JobExecution {
	j.IsLongRunning = true
	return j
}

func failedWith(j *models.JobExecution, msg string) *models.JobExecution {
	j.ErrorMessage = msg
	return j
}

func TestTimePeriod(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		month string
		r     store.DateRange
		want  string
	}{
		{"open", "", store.DateRange{}, "All Time"},
		{"month", "2024-03", store.DateRange{}, "2024-03"},
		{"both ends", "2024-03", store.DateRange{From: from, To: to}, "2024-03-01 to 2024-03-31"},
		{"from only", "", store.DateRange{From: from}, "From 2024-03-01"},
		{"to only", "", store.DateRange{To: to}, "Until 2024-03-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timePeriod(tt.month, tt.r))
		})
	}
}

func TestJobSummary(t *testing.T) {
	repo := &fakeRepo{jobs: []*models.JobExecution{
		job("A", models.StatusCompletedNormal, 10, 0),
		job("A", models.StatusCompletedNormal, 20, 1),
		job("A", models.StatusCompletedNormalStar, 30, 2),
		job("B", models.StatusCompletedAbnormal, 0, 0),
		job("B", models.StatusFailed, 40, 1),
		flagged(job("C", models.StatusLongRunning, 300, 0)),
		flagged(job("C", models.StatusCompletedNormal, 250, 1)),
	}}
	sum, err := NewService(repo, nil, time.Minute).JobSummary(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 7, sum.TotalJobs)
	assert.Equal(t, 3, sum.CompletedNormal)
	assert.Equal(t, 1, sum.CompletedNormalStar)
	assert.Equal(t, 1, sum.CompletedAbnormal)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.LongRunning)
	assert.Equal(t, 57.14, sum.SuccessRate)
	assert.Equal(t, 108.33, sum.AverageDuration)
	assert.Equal(t, "All Time", sum.TimePeriod)
	assert.Equal(t, "All Products", sum.Product)
}

func TestJobSummary_Empty(t *testing.T) {
	sum, err := NewService(&fakeRepo{}, nil, time.Minute).JobSummary(context.Background(), Filter{Product: models.ProductQNXT})
	require.NoError(t, err)
	assert.Zero(t, sum.TotalJobs)
	assert.Zero(t, sum.SuccessRate)
	assert.Equal(t, "QNXT", sum.Product)
}

func TestJobSummary_RepoError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewService(&fakeRepo{err: boom}, newMemCache(), time.Minute).JobSummary(context.Background(), Filter{})
	assert.ErrorIs(t, err, boom)
}

func TestFailureAnalysis(t *testing.T) {
	jobs := []*models.JobExecution{
		job("A", models.StatusCompletedNormal, 10, 0),
		job("A", models.StatusCompletedNormal, 20, 1),
		job("A", models.StatusCompletedNormal, 30, 2),
		failedWith(job("B", models.StatusFailed, 5, 0), "lock timeout in run 1"),
		failedWith(job("B", models.StatusCompletedAbnormal, 15, 1), "lock timeout in run 2"),
		job("B", models.StatusCompletedNormal, 25, 2),
		failedWith(job("D", models.StatusFailed, 0, 0), "disk full"),
	}
	for i := 1; i <= 9; i++ {
		jobs = append(jobs, job("D", models.StatusCompletedNormal, 0, i))
	}

	res, err := NewService(&fakeRepo{jobs: jobs}, nil, time.Minute).FailureAnalysis(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 3)
	assert.Equal(t, "B", res.Jobs[0].JobName)
	assert.Equal(t, "D", res.Jobs[1].JobName)
	assert.Equal(t, "A", res.Jobs[2].JobName)

	b := res.Jobs[0]
	assert.Equal(t, 3, b.TotalRuns)
	assert.Equal(t, 2, b.TotalFailures)
	assert.Equal(t, 1, b.SuccessfulRuns)
	assert.Equal(t, 66.67, b.FailureRate)
	assert.Equal(t, 33.33, b.SuccessRate)
	assert.Equal(t, 15.0, b.AvgDuration)
	assert.Equal(t, 25.0, b.MaxDuration)
	assert.Equal(t, 5.0, b.MinDuration)
	assert.Equal(t, "High", b.ImpactLevel)
	require.NotNil(t, b.RecentFailureTime)
	assert.Equal(t, day1.AddDate(0, 0, 1), *b.RecentFailureTime)
	assert.Equal(t, "lock timeout in run 2", b.RecentFailureMessage)
	require.Len(t, b.Signatures, 1)
	assert.Equal(t, 2, b.Signatures[0].Count)

	// Exactly 10% is not above the Medium threshold.
	assert.Equal(t, "Low", res.Jobs[1].ImpactLevel)
	assert.Nil(t, res.Jobs[2].RecentFailureTime)
	assert.Empty(t, res.Jobs[2].Signatures)

	assert.Equal(t, FailureSummary{
		TotalJobs:          16,
		TotalFailed:        2,
		TotalAbnormal:      1,
		TotalFailures:      3,
		OverallFailureRate: 18.75,
		JobsWithFailures:   2,
	}, res.Summary)
}

func TestLongRunningAnalysis(t *testing.T) {
	latest := flagged(job("E", models.StatusCompletedNormal, 300, 3))
	repo := &fakeRepo{jobs: []*models.JobExecution{
		job("E", models.StatusCompletedNormal, 100, 0),
		job("E", models.StatusCompletedNormal, 100, 1),
		flagged(job("E", models.StatusLongRunning, 300, 2)),
		latest,
		job("F", models.StatusCompletedNormal, 30, 0),
		job("F", models.StatusCompletedNormal, 40, 1),
	}}

	res, err := NewService(repo, nil, time.Minute).LongRunningAnalysis(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 2)

	e := res.Jobs[0]
	assert.Equal(t, "E", e.JobName)
	assert.Equal(t, 2, e.LongRunningCount)
	assert.Equal(t, 50.0, e.LongRunningRate)
	assert.Equal(t, 200.0, e.AvgDuration)
	assert.Equal(t, 200.0, e.DurationVariability)
	assert.Equal(t, "High", e.ImpactLevel)
	assert.Equal(t, 50.0, e.PerformanceScore)
	require.NotNil(t, e.RecentLongRunningTime)
	assert.Equal(t, latest.StartTime, *e.RecentLongRunningTime)

	f := res.Jobs[1]
	assert.Equal(t, "Low", f.ImpactLevel)
	assert.Equal(t, 100.0, f.PerformanceScore)
	assert.Equal(t, 35.0, f.AvgDuration)
	assert.Nil(t, f.RecentLongRunningTime)

	assert.Equal(t, LongRunningSummary{
		TotalJobs:                 6,
		TotalLongRunning:          2,
		OverallLongRunningRate:    33.33,
		OverallAvgDuration:        145,
		JobsWithPerformanceIssues: 1,
	}, res.Summary)
}

func TestLongRunningImpact(t *testing.T) {
	tests := []struct {
		rate, avg float64
		want      string
	}{
		{31, 10, "High"},
		{0, 121, "High"},
		{11, 10, "Medium"},
		{0, 61, "Medium"},
		{10, 60, "Low"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, longRunningImpact(tt.rate, tt.avg), "rate=%v avg=%v", tt.rate, tt.avg)
	}
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }

func TestVolumetricSummary(t *testing.T) {
	repo := &fakeRepo{volumes: []*models.VolumetricRecord{
		{
			JobName: "ELIG", TotalVolume: 1000, PeakVolume: ptrI(600), TotalRuntime: 10, PeakRuntime: ptrF(8),
			ProcessingEfficiency: ptrF(50), RecordsPerMinute: 100, MinPerformance: ptrF(80), MaxPerformance: ptrF(120),
		},
		{
			JobName: "ELIG", TotalVolume: 3000, TotalRuntime: 20, RecordsPerMinute: 150, MinPerformance: ptrF(60),
		},
	}}
	sum, err := NewService(repo, nil, time.Minute).VolumetricSummary(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, &VolumetricSummary{
		TotalVolume:       4000,
		AverageVolume:     2000,
		PeakVolume:        600,
		TotalRuntime:      30,
		AverageRuntime:    15,
		PeakRuntime:       8,
		AverageEfficiency: 50,
		AvgPerformance:    125,
		MinPerformance:    60,
		MaxPerformance:    120,
		JobName:           "All Jobs",
		TimePeriod:        "All Time",
	}, sum)
}

func TestSLASummary(t *testing.T) {
	repo := &fakeRepo{sla: []*models.SLACompliance{
		{Status: models.SLAMet, VariancePercentage: -5, TargetMinutes: 100, ActualMinutes: 95},
		{Status: models.SLAMissed, VariancePercentage: 20, TargetMinutes: 100, ActualMinutes: 120},
		{Status: models.SLAAtRisk, TargetMinutes: 100},
	}}
	sum, err := NewService(repo, nil, time.Minute).SLASummary(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.TotalJobs)
	assert.Equal(t, 1, sum.SLAMet)
	assert.Equal(t, 1, sum.SLAMissed)
	assert.Equal(t, 1, sum.AtRisk)
	assert.Equal(t, 33.33, sum.ComplianceRate)
	assert.Equal(t, 5.0, sum.AverageVariancePercentage)
	assert.Equal(t, 100.0, sum.AvgTargetMinutes)
	assert.Equal(t, 71.67, sum.AvgActualMinutes)
}

func TestGroupedCustomers(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	acmeFacets := &models.Customer{ID: uuid.New(), Name: "Acme", Code: "ACM", Product: models.ProductFacets,
		Description: "claims", CreatedAt: created.AddDate(0, 1, 0), UpdatedAt: created.AddDate(0, 1, 0)}
	acmeQNXT := &models.Customer{ID: uuid.New(), Name: "Acme", Code: "ACM", Product: models.ProductQNXT,
		Description: "enrollment", IsActive: true, CreatedAt: created, UpdatedAt: created.AddDate(0, 2, 0)}
	beta := &models.Customer{ID: uuid.New(), Name: "Beta", Code: "BET", Product: models.ProductFacets, CreatedAt: created, UpdatedAt: created}

	t1, t2 := day1, day1.AddDate(0, 0, 5)
	repo := &fakeRepo{
		customers: []*models.Customer{acmeFacets, acmeQNXT, beta},
		stats: map[uuid.UUID]store.JobStats{
			acmeFacets.ID: {TotalJobs: 3, LastActivity: &t2},
			acmeQNXT.ID:   {TotalJobs: 2, LastActivity: &t1},
		},
	}

	groups, err := NewService(repo, nil, time.Minute).GroupedCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	acme := groups[0]
	assert.Equal(t, "Acme", acme.Name)
	assert.Equal(t, []models.Product{models.ProductFacets, models.ProductQNXT}, acme.Products)
	assert.Equal(t, []uuid.UUID{acmeFacets.ID, acmeQNXT.ID}, acme.CustomerIDs)
	assert.Equal(t, "enrollment", acme.Descriptions[models.ProductQNXT])
	assert.True(t, acme.IsActive)
	assert.Equal(t, created, acme.CreatedAt)
	assert.Equal(t, created.AddDate(0, 2, 0), acme.UpdatedAt)
	assert.Equal(t, 5, acme.TotalJobs)
	require.NotNil(t, acme.LastActivity)
	assert.Equal(t, t2, *acme.LastActivity)

	assert.False(t, groups[1].IsActive)
	assert.Zero(t, groups[1].TotalJobs)
	assert.Nil(t, groups[1].LastActivity)
}

func TestCaching(t *testing.T) {
	customerID := uuid.New()
	other := uuid.New()
	repo := &fakeRepo{jobs: []*models.JobExecution{job("A", models.StatusCompletedNormal, 10, 0)}}
	c := newMemCache()
	svc := NewService(repo, c, time.Minute)
	ctx := context.Background()

	f := Filter{CustomerID: &customerID}
	first, err := svc.JobSummary(ctx, f)
	require.NoError(t, err)
	second, err := svc.JobSummary(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.jobCalls)

	_, err = svc.JobSummary(ctx, Filter{CustomerID: &customerID, Product: models.ProductCAE})
	require.NoError(t, err)
	_, err = svc.JobSummary(ctx, Filter{})
	require.NoError(t, err)
	_, err = svc.JobSummary(ctx, Filter{CustomerID: &other})
	require.NoError(t, err)
	assert.Equal(t, 4, repo.jobCalls)
	assert.Len(t, c.data, 4)

	// Invalidation clears the customer's keys and the unscoped ones only.
	svc.Invalidate(ctx, customerID)
	assert.Len(t, c.data, 1)

	_, err = svc.JobSummary(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 5, repo.jobCalls)

	svc.InvalidateAll(ctx)
	assert.Empty(t, c.data)
}
