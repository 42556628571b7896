package store

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"

	"github.com/google/uuid"
)

// Lock scopes.
const (
	ScopeSLAAnalyze = "sla-analyze"
	ScopePredict    = "predict"
)

func lockKey(customerID uuid.UUID, scope string) int64 {
	return int64(crc32.ChecksumIEEE([]byte(scope + ":" + customerID.String())))
}

// WithCustomerLock runs fn while holding a session advisory lock for
// (scope, customer). uuid.Nil locks the all-customers scope. The lock is
// held on a dedicated connection and released when fn returns.
func (s *PostgresStore) WithCustomerLock(ctx context.Context, customerID uuid.UUID, scope string, fn func(ctx context.Context) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock connection: %w", err)
	}
	defer conn.Release()

	key := lockKey(customerID, scope)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	defer func() {
		// ctx may already be cancelled; unlock must still run.
		if _, err := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, key); err != nil {
			slog.Error("release advisory lock", "scope", scope, "customer_id", customerID, "error", err)
		}
	}()

	return fn(ctx)
}
