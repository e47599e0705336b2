package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"settlement-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// HoldingRepo implements ports.HoldingStore. Balances are NUMERIC(20,0) so the
// full uint64 range fits; they travel as decimal text.
type HoldingRepo struct {
	q        Querier
	readOnly bool
}

// NewHoldingRepo creates a HoldingRepo bound to q.
func NewHoldingRepo(q Querier) *HoldingRepo {
	return &HoldingRepo{q: q}
}

// Create inserts a new holding account.
func (r *HoldingRepo) Create(ctx context.Context, h *domain.HoldingAccount) error {
	if r.readOnly {
		return domain.ErrReadOnlyUnit
	}

	query := `INSERT INTO holding_accounts (address, owner, asset, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
		ON CONFLICT (address) DO NOTHING`

	tag, err := r.q.Exec(ctx, query,
		h.Address[:], h.Owner[:], h.Asset[:], strconv.FormatUint(h.Balance, 10),
		h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert holding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrAddressOccupied, h.Address)
	}
	return nil
}

// Get fetches a holding account. Inside a unit the row is locked with
// FOR UPDATE until the unit ends.
func (r *HoldingRepo) Get(ctx context.Context, addr domain.Address) (*domain.HoldingAccount, error) {
	query := `SELECT owner, asset, balance::text, created_at, updated_at
		FROM holding_accounts WHERE address = $1`
	if !r.readOnly {
		query += ` FOR UPDATE`
	}

	var (
		owner, asset []byte
		balance      string
	)
	h := &domain.HoldingAccount{Address: addr}
	err := r.q.QueryRow(ctx, query, addr[:]).Scan(&owner, &asset, &balance, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get holding: %w", err)
	}

	if len(owner) != len(h.Owner) || len(asset) != len(h.Asset) {
		return nil, fmt.Errorf("get holding: corrupt key columns for %s", addr)
	}
	copy(h.Owner[:], owner)
	copy(h.Asset[:], asset)

	h.Balance, err = strconv.ParseUint(balance, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse holding balance: %w", err)
	}
	return h, nil
}

// UpdateBalance overwrites the balance of a holding account.
func (r *HoldingRepo) UpdateBalance(ctx context.Context, addr domain.Address, balance uint64) error {
	if r.readOnly {
		return domain.ErrReadOnlyUnit
	}

	query := `UPDATE holding_accounts SET balance = $1::numeric, updated_at = NOW() WHERE address = $2`

	tag, err := r.q.Exec(ctx, query, strconv.FormatUint(balance, 10), addr[:])
	if err != nil {
		return fmt.Errorf("update holding balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrHoldingNotFound, addr)
	}
	return nil
}
