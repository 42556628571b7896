package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const jobColumns = `id, customer_id, file_upload_id, job_name, run_id, status, product, start_time, end_time,
	duration_minutes, exit_code, error_message, machine_name, is_long_running, month, year, created_at`

func scanJob(row pgx.Row) (*models.JobExecution, error) {
	var j models.JobExecution
	err := row.Scan(&j.ID, &j.CustomerID, &j.FileUploadID, &j.JobName, &j.RunID, &j.Status, &j.Product,
		&j.StartTime, &j.EndTime, &j.DurationMinutes, &j.ExitCode, &j.ErrorMessage, &j.MachineName,
		&j.IsLongRunning, &j.Month, &j.Year, &j.CreatedAt)
	return &j, err
}

// CreateJobExecution inserts one run. Runs are append-only.
func (s *PostgresStore) CreateJobExecution(ctx context.Context, j *models.JobExecution) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_executions (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())`,
		j.ID, j.CustomerID, j.FileUploadID, j.JobName, j.RunID, j.Status, j.Product, j.StartTime, j.EndTime,
		j.DurationMinutes, j.ExitCode, j.ErrorMessage, j.MachineName, j.IsLongRunning, j.Month, j.Year)
	if err != nil {
		return fmt.Errorf("create job execution: %w", err)
	}
	return nil
}

func jobWhere(f JobFilter) *where {
	w := &where{}
	w.customer(f.CustomerID)
	if f.Product != "" {
		w.add("product = $%d", f.Product)
	}
	if f.JobName != "" {
		w.add("job_name = $%d", f.JobName)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		w.add("status = ANY($%d)", statuses)
	}
	if f.Month != "" {
		w.add("month = $%d", f.Month)
	}
	w.dates("start_time", f.DateRange)
	return w
}

func (s *PostgresStore) ListJobExecutions(ctx context.Context, f JobFilter) ([]*models.JobExecution, int, error) {
	return paged(ctx, s, "job_executions", jobColumns, jobWhere(f), "start_time DESC", f.Page, scanJob)
}

// FindJobExecutions returns every matching run ordered by start time.
func (s *PostgresStore) FindJobExecutions(ctx context.Context, f JobFilter) ([]*models.JobExecution, error) {
	return all(ctx, s, "job_executions", jobColumns, jobWhere(f), "start_time, id", scanJob)
}
