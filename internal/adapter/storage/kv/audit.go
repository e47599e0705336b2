package kv

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"

	"github.com/syndtr/goleveldb/leveldb/util"
)

const prefixAudit = "audit/"

// auditKey orders entries by creation time, the id breaking ties.
func auditKey(entry *domain.AuditLog) []byte {
	k := make([]byte, 0, len(prefixAudit)+8+16)
	k = append(k, prefixAudit...)
	k = binary.BigEndian.AppendUint64(k, uint64(entry.CreatedAt.UnixNano()))
	return append(k, entry.ID[:]...)
}

type auditRepo struct {
	store *Store
}

// NewAuditRepository stores audit entries next to the ledger. Entries are
// written directly, never through a unit.
func NewAuditRepository(store *Store) ports.AuditRepository {
	return &auditRepo{store: store}
}

func (r *auditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	if err := r.store.db.Put(auditKey(entry), raw, r.store.wo); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// AuditEntries returns up to limit audit entries, oldest first.
func (s *Store) AuditEntries(limit int) ([]domain.AuditLog, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixAudit)), nil)
	defer iter.Release()

	out := make([]domain.AuditLog, 0)
	for iter.Next() && len(out) < limit {
		var entry domain.AuditLog
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, iter.Error()
}
