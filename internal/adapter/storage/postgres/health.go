package postgres

import (
	"context"
	"fmt"
)

// HealthCheck implements ports.HealthChecker for PostgreSQL.
type HealthCheck struct {
	q Querier
}

// NewHealthCheck creates a PostgreSQL health checker.
func NewHealthCheck(q Querier) *HealthCheck {
	return &HealthCheck{q: q}
}

// Ping fails when the database is unreachable or the ledger tables are
// missing, e.g. auto_migrate is off and nobody applied schema.sql.
func (h *HealthCheck) Ping(ctx context.Context) error {
	var missing int
	err := h.q.QueryRow(ctx, `
		SELECT count(*) FROM unnest($1::text[]) AS t(name)
		WHERE to_regclass(t.name) IS NULL`,
		ledgerTables,
	).Scan(&missing)
	if err != nil {
		return fmt.Errorf("postgres health: %w", err)
	}
	if missing > 0 {
		return fmt.Errorf("postgres health: %d ledger tables missing", missing)
	}
	return nil
}

func (h *HealthCheck) Name() string { return "postgresql" }
