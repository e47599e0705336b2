package postgres

import (
	"context"
	"fmt"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
)

const insertAuditSQL = `INSERT INTO audit_logs
 (id, signer, operator, action, resource_type, resource_id, details, ip_address, created_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// auditRepo appends to audit_logs outside any ledger transaction; an
// audit row never rolls back with a failed payment.
type auditRepo struct {
	pool Querier
}

func NewAuditRepository(pool Querier) ports.AuditRepository {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	var signer []byte
	if log.Signer != nil {
		signer = log.Signer[:]
	}
	if _, err := r.pool.Exec(ctx, insertAuditSQL,
		log.ID, signer, log.Operator, string(log.Action), log.ResourceType,
		log.ResourceID, log.Details, log.IPAddress, log.CreatedAt,
	); err != nil {
		return fmt.Errorf("inserting audit entry %s: %w", log.ID, err)
	}
	return nil
}
