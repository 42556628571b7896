package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const customerColumns = `id, name, code, product, description, is_active, created_at, updated_at`

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Product, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO customers (`+customerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Name, c.Code, c.Product, c.Description, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get customer")
	}
	return c, nil
}

func (s *PostgresStore) ListCustomers(ctx context.Context) ([]*models.Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name, code, product`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return collectRows(rows, scanCustomer, "scan customer")
}

// CustomerJobStats returns job counts and the latest job start per customer.
func (s *PostgresStore) CustomerJobStats(ctx context.Context) (map[uuid.UUID]JobStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT customer_id, COUNT(*), MAX(start_time) FROM job_executions GROUP BY customer_id`)
	if err != nil {
		return nil, fmt.Errorf("customer job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[uuid.UUID]JobStats)
	for rows.Next() {
		var id uuid.UUID
		var count int
		var last *time.Time
		if err := rows.Scan(&id, &count, &last); err != nil {
			return nil, fmt.Errorf("scan customer job stats: %w", err)
		}
		stats[id] = JobStats{TotalJobs: count, LastActivity: last}
	}
	return stats, rows.Err()
}
