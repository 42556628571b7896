package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const slaDefinitionColumns = `id, customer_id, product, job_name, target_time, description, is_active, created_at, updated_at`

func scanSLADefinition(row pgx.Row) (*models.SLADefinition, error) {
	var d models.SLADefinition
	var target pgtype.Time
	err := row.Scan(&d.ID, &d.CustomerID, &d.Product, &d.JobName, &target, &d.Description,
		&d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	d.TargetTime = fromPGTime(target)
	return &d, err
}

// UpsertSLADefinition creates or replaces the target for (customer, product, job).
func (s *PostgresStore) UpsertSLADefinition(ctx context.Context, d *models.SLADefinition) (bool, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sla_definitions (id, customer_id, product, job_name, target_time, description, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 ON CONFLICT (customer_id, product, job_name) DO UPDATE SET
		   target_time = EXCLUDED.target_time,
		   description = EXCLUDED.description,
		   is_active = EXCLUDED.is_active,
		   updated_at = NOW()
		 RETURNING id, created_at, updated_at, (xmax = 0)`,
		d.ID, d.CustomerID, d.Product, d.JobName, toPGTime(d.TargetTime), d.Description, d.IsActive,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("upsert sla definition: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetActiveSLADefinition(ctx context.Context, customerID uuid.UUID, product models.Product, jobName string) (*models.SLADefinition, error) {
	d, err := scanSLADefinition(s.pool.QueryRow(ctx,
		`SELECT `+slaDefinitionColumns+` FROM sla_definitions
		 WHERE customer_id = $1 AND product = $2 AND job_name = $3 AND is_active`,
		customerID, product, jobName))
	if err != nil {
		return nil, notFound(err, "get sla definition")
	}
	return d, nil
}

func (s *PostgresStore) ListSLADefinitions(ctx context.Context, f SLADefinitionFilter) ([]*models.SLADefinition, error) {
	w := &where{}
	w.customer(f.CustomerID)
	if f.Product != "" {
		w.add("product = $%d", f.Product)
	}
	if f.ActiveOnly {
		w.add("is_active = $%d", true)
	}
	return all(ctx, s, "sla_definitions", slaDefinitionColumns, w, "product, job_name", scanSLADefinition)
}

const slaComplianceColumns = `id, customer_id, product, job_name, date, batch_job_id, target_minutes, actual_minutes,
	variance_minutes, variance_percentage, completed_next_day, days_late, status, business_impact, created_at, updated_at`

func scanSLACompliance(row pgx.Row) (*models.SLACompliance, error) {
	var c models.SLACompliance
	err := row.Scan(&c.ID, &c.CustomerID, &c.Product, &c.JobName, &c.Date, &c.BatchJobID, &c.TargetMinutes,
		&c.ActualMinutes, &c.VarianceMinutes, &c.VariancePercentage, &c.CompletedNextDay, &c.DaysLate,
		&c.Status, &c.BusinessImpact, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

// UpsertSLACompliance writes one compliance row keyed by (customer, product,
// job, date, batch job). It reports whether the row was new.
func (s *PostgresStore) UpsertSLACompliance(ctx context.Context, c *models.SLACompliance) (bool, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sla_compliance (id, customer_id, product, job_name, date, batch_job_id, target_minutes,
		   actual_minutes, variance_minutes, variance_percentage, completed_next_day, days_late, status,
		   business_impact, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		 ON CONFLICT ON CONSTRAINT sla_compliance_natural_key DO UPDATE SET
		   target_minutes = EXCLUDED.target_minutes,
		   actual_minutes = EXCLUDED.actual_minutes,
		   variance_minutes = EXCLUDED.variance_minutes,
		   variance_percentage = EXCLUDED.variance_percentage,
		   completed_next_day = EXCLUDED.completed_next_day,
		   days_late = EXCLUDED.days_late,
		   status = EXCLUDED.status,
		   business_impact = EXCLUDED.business_impact,
		   updated_at = NOW()
		 RETURNING id, created_at, updated_at, (xmax = 0)`,
		c.ID, c.CustomerID, c.Product, c.JobName, dayStart(c.Date), c.BatchJobID, c.TargetMinutes,
		c.ActualMinutes, c.VarianceMinutes, c.VariancePercentage, c.CompletedNextDay, c.DaysLate,
		c.Status, c.BusinessImpact,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("upsert sla compliance: %w", err)
	}
	return created, nil
}

func slaWhere(f SLAFilter) *where {
	w := &where{}
	w.customer(f.CustomerID)
	if f.Product != "" {
		w.add("product = $%d", f.Product)
	}
	if f.JobName != "" {
		w.add("job_name = $%d", f.JobName)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	w.dates("date", f.DateRange)
	return w
}

func (s *PostgresStore) ListSLACompliance(ctx context.Context, f SLAFilter) ([]*models.SLACompliance, int, error) {
	return paged(ctx, s, "sla_compliance", slaComplianceColumns, slaWhere(f), "date DESC, job_name", f.Page, scanSLACompliance)
}

func (s *PostgresStore) FindSLACompliance(ctx context.Context, f SLAFilter) ([]*models.SLACompliance, error) {
	return all(ctx, s, "sla_compliance", slaComplianceColumns, slaWhere(f), "date, job_name", scanSLACompliance)
}
