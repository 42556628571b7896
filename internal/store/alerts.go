package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const alertColumns = `id, result_id, customer_id, alert_type, severity, title, message, recommendations, job_name,
	predicted_date, status, expiry_date, acknowledged_by, acknowledged_at, resolved_at, resolution_notes,
	created_at, updated_at`

func scanAlert(row pgx.Row) (*models.PredictionAlert, error) {
	var a models.PredictionAlert
	err := row.Scan(&a.ID, &a.ResultID, &a.CustomerID, &a.AlertType, &a.Severity, &a.Title, &a.Message,
		&a.Recommendations, &a.JobName, &a.PredictedDate, &a.Status, &a.ExpiryDate, &a.AcknowledgedBy,
		&a.AcknowledgedAt, &a.ResolvedAt, &a.ResolutionNotes, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

// validAlertTransitions defines allowed alert status changes.
var validAlertTransitions = map[models.AlertStatus][]models.AlertStatus{
	models.AlertActive:       {models.AlertAcknowledged, models.AlertExpired},
	models.AlertAcknowledged: {models.AlertResolved, models.AlertExpired},
	models.AlertResolved:     {models.AlertExpired},
}

func canTransition(from, to models.AlertStatus) bool {
	for _, allowed := range validAlertTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UpsertAlert writes the alert for (result, type). Content is refreshed on
// conflict but the lifecycle status an operator set is kept.
func (s *PostgresStore) UpsertAlert(ctx context.Context, a *models.PredictionAlert) (bool, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.AlertActive
	}
	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO prediction_alerts (id, result_id, customer_id, alert_type, severity, title, message,
		   recommendations, job_name, predicted_date, status, expiry_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		 ON CONFLICT (result_id, alert_type) DO UPDATE SET
		   severity = EXCLUDED.severity,
		   title = EXCLUDED.title,
		   message = EXCLUDED.message,
		   recommendations = EXCLUDED.recommendations,
		   expiry_date = EXCLUDED.expiry_date,
		   updated_at = NOW()
		 RETURNING id, status, created_at, updated_at, (xmax = 0)`,
		a.ID, a.ResultID, a.CustomerID, a.AlertType, a.Severity, a.Title, a.Message, a.Recommendations,
		a.JobName, dayStart(a.PredictedDate), a.Status, a.ExpiryDate,
	).Scan(&a.ID, &a.Status, &a.CreatedAt, &a.UpdatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("upsert alert: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetAlert(ctx context.Context, id uuid.UUID) (*models.PredictionAlert, error) {
	a, err := scanAlert(s.pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM prediction_alerts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get alert")
	}
	return a, nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, f AlertFilter) ([]*models.PredictionAlert, int, error) {
	w := &where{}
	w.add("customer_id = $%d", f.CustomerID)
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	return paged(ctx, s, "prediction_alerts", alertColumns, w,
		"CASE severity WHEN 'CRITICAL' THEN 0 ELSE 1 END, predicted_date, created_at DESC", f.Page, scanAlert)
}

// UpdateAlertStatus moves an alert to status, validating the transition
// against the row's current status under a row lock.
func (s *PostgresStore) UpdateAlertStatus(ctx context.Context, id uuid.UUID, status models.AlertStatus, opts ...AlertUpdateOption) (*models.PredictionAlert, error) {
	params := &alertUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var current models.AlertStatus
	err = tx.QueryRow(ctx, `SELECT status FROM prediction_alerts WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		return nil, notFound(err, "get alert status")
	}
	if !canTransition(current, status) {
		return nil, &TransitionError{From: current, To: status}
	}

	setClauses := "status = $2, updated_at = NOW()"
	args := []any{id, status}
	argIdx := 3

	switch status {
	case models.AlertAcknowledged:
		setClauses += ", acknowledged_at = NOW()"
		if params.AcknowledgedBy != nil {
			setClauses += fmt.Sprintf(", acknowledged_by = $%d", argIdx)
			args = append(args, *params.AcknowledgedBy)
			argIdx++
		}
	case models.AlertResolved:
		setClauses += ", resolved_at = NOW()"
		if params.ResolutionNotes != nil {
			setClauses += fmt.Sprintf(", resolution_notes = $%d", argIdx)
			args = append(args, *params.ResolutionNotes)
		}
	}

	a, err := scanAlert(tx.QueryRow(ctx,
		`UPDATE prediction_alerts SET `+setClauses+` WHERE id = $1 RETURNING `+alertColumns, args...))
	if err != nil {
		return nil, fmt.Errorf("update alert status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit alert status: %w", err)
	}
	return a, nil
}

// ExpireAlerts marks every alert whose expiry has passed as EXPIRED,
// resolved ones included.
func (s *PostgresStore) ExpireAlerts(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE prediction_alerts SET status = $1, updated_at = NOW()
		 WHERE status <> $1 AND expiry_date < $2`,
		models.AlertExpired, now)
	if err != nil {
		return 0, fmt.Errorf("expire alerts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
