package postgres

import (
	"context"
	"errors"
	"fmt"

	"settlement-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// RecordRepo implements ports.RecordStore.
type RecordRepo struct {
	q        Querier
	readOnly bool
}

// NewRecordRepo creates a RecordRepo bound to q. Use the substrate for
// writes; a repo over the bare pool is meant for reads.
func NewRecordRepo(q Querier) *RecordRepo {
	return &RecordRepo{q: q}
}

// Create inserts rec unless its address is taken. The primary key makes the
// check and the insert one atomic step, so concurrent creates at the same
// address serialize and exactly one of them wins.
func (r *RecordRepo) Create(ctx context.Context, rec *domain.Record) error {
	if r.readOnly {
		return domain.ErrReadOnlyUnit
	}
	if err := rec.CheckSpace(); err != nil {
		return err
	}

	query := `INSERT INTO ledger_records (address, kind, space, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO NOTHING`

	tag, err := r.q.Exec(ctx, query,
		rec.Address[:], int16(rec.Kind), int32(rec.Kind.Space()), rec.Data,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrAddressOccupied, rec.Address)
	}
	return nil
}

// Get fetches the record stored at addr.
func (r *RecordRepo) Get(ctx context.Context, addr domain.Address) (*domain.Record, error) {
	query := `SELECT kind, data FROM ledger_records WHERE address = $1`

	var (
		kind int16
		data []byte
	)
	err := r.q.QueryRow(ctx, query, addr[:]).Scan(&kind, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &domain.Record{Address: addr, Kind: domain.RecordKind(kind), Data: data}, nil
}
