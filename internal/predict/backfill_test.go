package predict

import (
	"testing"
	"time"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfill_EmptySet(t *testing.T) {
	preds := map[models.PredictionType][]*models.PredictionResult{}
	added := Backfill(preds, []string{"CLAIMS", "ELIG"}, sunday)

	assert.Equal(t, 7, added)
	assert.Len(t, preds[models.PredictFailure], 2)
	assert.Len(t, preds[models.PredictLongRunner], 2)
	assert.Len(t, preds[models.PredictSLAMiss], 2)
	assert.Len(t, preds[models.PredictVolumeSpike], 1)

	for _, ps := range preds {
		for _, p := range ps {
			assert.Equal(t, models.SourceSynthetic, p.Source)
			assert.True(t, p.PredictedDate.After(sunday))
		}
	}

	f := preds[models.PredictFailure][0]
	assert.Equal(t, "CLAIMS", f.JobName)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), f.PredictedDate)
	assert.InDelta(t, 0.35, f.Probability, 1e-9)
	assert.InDelta(t, 0.55, f.Confidence, 1e-9)
	assert.Equal(t, models.RiskLow, f.RiskLevel)

	v := preds[models.PredictVolumeSpike][0]
	require.NotNil(t, v.PredictedVolume)
	assert.Equal(t, int64(15000), *v.PredictedVolume)
}

func TestBackfill_EnoughPredictions(t *testing.T) {
	preds := map[models.PredictionType][]*models.PredictionResult{}
	for i := 0; i < 5; i++ {
		preds[models.PredictFailure] = append(preds[models.PredictFailure],
			statistical(models.PredictFailure, "JOB", sunday.AddDate(0, 0, i+1), 0.5, 0.6))
	}
	assert.Zero(t, Backfill(preds, []string{"JOB"}, sunday))
	assert.Empty(t, preds[models.PredictVolumeSpike])
}

func TestBackfill_KeepsStatisticalEntries(t *testing.T) {
	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	stat := statistical(models.PredictFailure, "CLAIMS", monday, 0.5, 0.6)
	preds := map[models.PredictionType][]*models.PredictionResult{
		models.PredictFailure: {stat},
		models.PredictLongRunner: {
			statistical(models.PredictLongRunner, "CLAIMS", monday, 0.5, 0.6),
			statistical(models.PredictLongRunner, "CLAIMS", monday.AddDate(0, 0, 1), 0.5, 0.6),
		},
	}
	Backfill(preds, []string{"CLAIMS"}, sunday)

	failures := preds[models.PredictFailure]
	require.Len(t, failures, 3)
	assert.Same(t, stat, failures[0])
	for _, p := range failures[1:] {
		assert.Equal(t, models.SourceSynthetic, p.Source)
		assert.NotEqual(t, monday, p.PredictedDate)
	}
	// Types that already hold two entries are left alone.
	assert.Len(t, preds[models.PredictLongRunner], 2)
}

func TestBackfill_DefaultJobNames(t *testing.T) {
	preds := map[models.PredictionType][]*models.PredictionResult{}
	Backfill(preds, nil, sunday)
	require.NotEmpty(t, preds[models.PredictSLAMiss])
	assert.Equal(t, "DemoJob_01", preds[models.PredictSLAMiss][0].JobName)
	assert.Equal(t, "23:45", preds[models.PredictSLAMiss][0].PredictedCompletion)
}
