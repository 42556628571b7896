package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const scheduleColumns = `id, customer_id, file_upload_id, format, schedule_name, job_name, pattern, next_run_time,
	last_run_time, status, priority, dependencies, job_type, external_id, category, parent_group, calendar,
	calendar_offset, time_zone, start_time, until_time, agent, class, owner, last_modified, created_at`

func scanSchedule(row pgx.Row) (*models.Schedule, error) {
	var sc models.Schedule
	err := row.Scan(&sc.ID, &sc.CustomerID, &sc.FileUploadID, &sc.Format, &sc.ScheduleName, &sc.JobName,
		&sc.Pattern, &sc.NextRunTime, &sc.LastRunTime, &sc.Status, &sc.Priority, &sc.Dependencies,
		&sc.JobType, &sc.ExternalID, &sc.Category, &sc.ParentGroup, &sc.Calendar, &sc.CalendarOffset,
		&sc.TimeZone, &sc.StartTime, &sc.UntilTime, &sc.Agent, &sc.Class, &sc.Owner, &sc.LastModified,
		&sc.CreatedAt)
	return &sc, err
}

func (s *PostgresStore) CreateSchedule(ctx context.Context, sc *models.Schedule) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO schedules (`+scheduleColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		         $21, $22, $23, $24, $25, NOW())`,
		sc.ID, sc.CustomerID, sc.FileUploadID, sc.Format, sc.ScheduleName, sc.JobName, sc.Pattern,
		sc.NextRunTime, sc.LastRunTime, sc.Status, sc.Priority, sc.Dependencies, sc.JobType, sc.ExternalID,
		sc.Category, sc.ParentGroup, sc.Calendar, sc.CalendarOffset, sc.TimeZone, sc.StartTime,
		sc.UntilTime, sc.Agent, sc.Class, sc.Owner, sc.LastModified)
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSchedules(ctx context.Context, f ScheduleFilter) ([]*models.Schedule, int, error) {
	w := &where{}
	w.customer(f.CustomerID)
	if f.JobType != "" {
		w.add("job_type = $%d", f.JobType)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	return paged(ctx, s, "schedules", scheduleColumns, w, "job_name, created_at", f.Page, scanSchedule)
}
