package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const modelColumns = `id, customer_id, prediction_type, job_name, lookback_days, confidence_threshold, is_active,
	training_data_points, accuracy, last_trained_at, created_at, updated_at`

func scanModel(row pgx.Row) (*models.PredictionModel, error) {
	var m models.PredictionModel
	err := row.Scan(&m.ID, &m.CustomerID, &m.PredictionType, &m.JobName, &m.LookbackDays,
		&m.ConfidenceThreshold, &m.IsActive, &m.TrainingDataPoints, &m.Accuracy, &m.LastTrainedAt,
		&m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

// GetOrCreatePredictionModel returns the model for (customer, type, job),
// creating it from m when absent. Training stats on an existing model are
// refreshed from m; its lookback and threshold are kept.
func (s *PostgresStore) GetOrCreatePredictionModel(ctx context.Context, m *models.PredictionModel) (*models.PredictionModel, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	out, err := scanModel(s.pool.QueryRow(ctx,
		`INSERT INTO prediction_models (id, customer_id, prediction_type, job_name, lookback_days,
		   confidence_threshold, is_active, training_data_points, last_trained_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8, NOW(), NOW())
		 ON CONFLICT (customer_id, prediction_type, job_name) DO UPDATE SET
		   training_data_points = EXCLUDED.training_data_points,
		   last_trained_at = EXCLUDED.last_trained_at,
		   updated_at = NOW()
		 RETURNING `+modelColumns,
		m.ID, m.CustomerID, m.PredictionType, m.JobName, m.LookbackDays, m.ConfidenceThreshold,
		m.TrainingDataPoints, m.LastTrainedAt))
	if err != nil {
		return nil, fmt.Errorf("get or create prediction model: %w", err)
	}
	return out, nil
}

const resultColumns = `id, model_id, customer_id, prediction_type, job_name, predicted_date, probability, confidence,
	risk_level, predicted_duration, normal_duration, predicted_volume, normal_volume, volume_threshold,
	predicted_completion, factors, source, created_at`

func scanResult(row pgx.Row) (*models.PredictionResult, error) {
	var r models.PredictionResult
	err := row.Scan(&r.ID, &r.ModelID, &r.CustomerID, &r.PredictionType, &r.JobName, &r.PredictedDate,
		&r.Probability, &r.Confidence, &r.RiskLevel, &r.PredictedDuration, &r.NormalDuration,
		&r.PredictedVolume, &r.NormalVolume, &r.VolumeThreshold, &r.PredictedCompletion, &r.Factors,
		&r.Source, &r.CreatedAt)
	return &r, err
}

// UpsertPredictionResult stores r keyed by (model, job, date). On return r.ID
// is the id of the stored row, which may predate this call.
func (s *PostgresStore) UpsertPredictionResult(ctx context.Context, r *models.PredictionResult) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	factors := r.Factors
	if factors == nil {
		factors = map[string]any{}
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO prediction_results (`+resultColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		 ON CONFLICT (model_id, job_name, predicted_date) DO UPDATE SET
		   probability = EXCLUDED.probability,
		   confidence = EXCLUDED.confidence,
		   risk_level = EXCLUDED.risk_level,
		   predicted_duration = EXCLUDED.predicted_duration,
		   normal_duration = EXCLUDED.normal_duration,
		   predicted_volume = EXCLUDED.predicted_volume,
		   normal_volume = EXCLUDED.normal_volume,
		   volume_threshold = EXCLUDED.volume_threshold,
		   predicted_completion = EXCLUDED.predicted_completion,
		   factors = EXCLUDED.factors,
		   source = EXCLUDED.source
		 RETURNING id, created_at`,
		r.ID, r.ModelID, r.CustomerID, r.PredictionType, r.JobName, dayStart(r.PredictedDate), r.Probability,
		r.Confidence, r.RiskLevel, r.PredictedDuration, r.NormalDuration, r.PredictedVolume, r.NormalVolume,
		r.VolumeThreshold, r.PredictedCompletion, factors, r.Source,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert prediction result: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPredictions(ctx context.Context, f PredictionFilter) ([]*models.PredictionResult, int, error) {
	w := &where{}
	w.add("customer_id = $%d", f.CustomerID)
	if f.Type != "" {
		w.add("prediction_type = $%d", f.Type)
	}
	if len(f.RiskLevels) > 0 {
		levels := make([]string, len(f.RiskLevels))
		for i, l := range f.RiskLevels {
			levels[i] = string(l)
		}
		w.add("risk_level = ANY($%d)", levels)
	}
	w.dates("predicted_date", f.DateRange)
	return paged(ctx, s, "prediction_results", resultColumns, w, "predicted_date, probability DESC", f.Page, scanResult)
}
