package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const volumetricColumns = `id, customer_id, file_upload_id, job_name, date, total_volume, peak_volume, average_volume,
	total_runtime, peak_runtime, average_runtime, min_performance, max_performance, records_per_minute,
	processing_efficiency, created_at, updated_at`

func scanVolumetric(row pgx.Row) (*models.VolumetricRecord, error) {
	var v models.VolumetricRecord
	err := row.Scan(&v.ID, &v.CustomerID, &v.FileUploadID, &v.JobName, &v.Date, &v.TotalVolume, &v.PeakVolume,
		&v.AverageVolume, &v.TotalRuntime, &v.PeakRuntime, &v.AverageRuntime, &v.MinPerformance,
		&v.MaxPerformance, &v.RecordsPerMinute, &v.ProcessingEfficiency, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

// UpsertVolumetric inserts or replaces the record for (customer, job, date).
// It reports whether a new row was created.
func (s *PostgresStore) UpsertVolumetric(ctx context.Context, v *models.VolumetricRecord) (bool, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO volumetric_records (id, customer_id, file_upload_id, job_name, date, total_volume, peak_volume,
		   average_volume, total_runtime, peak_runtime, average_runtime, min_performance, max_performance,
		   records_per_minute, processing_efficiency, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		 ON CONFLICT (customer_id, job_name, date) DO UPDATE SET
		   file_upload_id = EXCLUDED.file_upload_id,
		   total_volume = EXCLUDED.total_volume,
		   peak_volume = EXCLUDED.peak_volume,
		   average_volume = EXCLUDED.average_volume,
		   total_runtime = EXCLUDED.total_runtime,
		   peak_runtime = EXCLUDED.peak_runtime,
		   average_runtime = EXCLUDED.average_runtime,
		   min_performance = EXCLUDED.min_performance,
		   max_performance = EXCLUDED.max_performance,
		   records_per_minute = EXCLUDED.records_per_minute,
		   processing_efficiency = EXCLUDED.processing_efficiency,
		   updated_at = NOW()
		 RETURNING id, (xmax = 0)`,
		v.ID, v.CustomerID, v.FileUploadID, v.JobName, v.Date, v.TotalVolume, v.PeakVolume, v.AverageVolume,
		v.TotalRuntime, v.PeakRuntime, v.AverageRuntime, v.MinPerformance, v.MaxPerformance,
		v.RecordsPerMinute, v.ProcessingEfficiency,
	).Scan(&v.ID, &created)
	if err != nil {
		return false, fmt.Errorf("upsert volumetric: %w", err)
	}
	return created, nil
}

func volumetricWhere(f VolumetricFilter) *where {
	w := &where{}
	w.customer(f.CustomerID)
	if f.JobName != "" {
		w.add("job_name = $%d", f.JobName)
	}
	w.dates("date", f.DateRange)
	return w
}

func (s *PostgresStore) ListVolumetrics(ctx context.Context, f VolumetricFilter) ([]*models.VolumetricRecord, int, error) {
	return paged(ctx, s, "volumetric_records", volumetricColumns, volumetricWhere(f), "date DESC, job_name", f.Page, scanVolumetric)
}

func (s *PostgresStore) FindVolumetrics(ctx context.Context, f VolumetricFilter) ([]*models.VolumetricRecord, error) {
	return all(ctx, s, "volumetric_records", volumetricColumns, volumetricWhere(f), "date, job_name", scanVolumetric)
}
