package postgres

import (
	"context"
	"fmt"

	"settlement-ledger/internal/core/ports"
)

// Substrate implements ports.Substrate with one SQL transaction per unit.
type Substrate struct {
	pool Pool
}

// NewSubstrate creates a new Substrate over the connection pool.
func NewSubstrate(pool Pool) *Substrate {
	return &Substrate{pool: pool}
}

// Atomically runs fn in a transaction and commits only if fn succeeds.
func (s *Substrate) Atomically(ctx context.Context, fn func(ctx context.Context, u ports.Unit) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, newUnit(tx, false)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Reader returns a read-only unit over the pool.
func (s *Substrate) Reader() ports.Unit {
	return newUnit(s.pool, true)
}

type unit struct {
	records  *RecordRepo
	holdings *HoldingRepo
	events   *EventRepo
}

func newUnit(q Querier, readOnly bool) *unit {
	return &unit{
		records:  &RecordRepo{q: q, readOnly: readOnly},
		holdings: &HoldingRepo{q: q, readOnly: readOnly},
		events:   &EventRepo{q: q, readOnly: readOnly},
	}
}

func (u *unit) Records() ports.RecordStore   { return u.records }
func (u *unit) Holdings() ports.HoldingStore { return u.holdings }
func (u *unit) Events() ports.EventLog       { return u.events }
