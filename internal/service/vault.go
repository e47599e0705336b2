package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
)

// Vault moves balances between holding accounts. It only ever runs inside
// an atomic unit, so a unit that fails after a transfer also undoes it.
type Vault struct{}

// NewVault creates the holding vault.
func NewVault() *Vault {
	return &Vault{}
}

// Transfer debits req.From and credits req.To. Authority must own the
// source and both holdings must carry the same asset.
func (v *Vault) Transfer(ctx context.Context, u ports.Unit, req ports.TransferRequest) error {
	held, err := lockHoldings(ctx, u, req.From, req.To)
	if err != nil {
		return err
	}
	from, to := held[req.From], held[req.To]
	if from == nil {
		return fmt.Errorf("%w: %s", domain.ErrHoldingNotFound, req.From)
	}
	if to == nil {
		return fmt.Errorf("%w: %s", domain.ErrHoldingNotFound, req.To)
	}

	if from.Owner != req.Authority {
		return domain.ErrTransferUnauthorized
	}
	if from.Asset != to.Asset {
		return domain.ErrTransferAssetMismatch
	}
	if from.Balance < req.Amount {
		return fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientBalance, from.Balance, req.Amount)
	}
	if req.From == req.To || req.Amount == 0 {
		return nil
	}
	if to.Balance > math.MaxUint64-req.Amount {
		return domain.ErrBalanceOverflow
	}

	if err := u.Holdings().UpdateBalance(ctx, req.From, from.Balance-req.Amount); err != nil {
		return fmt.Errorf("debit %s: %w", req.From, err)
	}
	if err := u.Holdings().UpdateBalance(ctx, req.To, to.Balance+req.Amount); err != nil {
		return fmt.Errorf("credit %s: %w", req.To, err)
	}
	return nil
}

// lockHoldings loads the given holdings in address order. On PostgreSQL
// the loads take row locks, and one global order keeps concurrent units
// from deadlocking. Missing holdings map to nil.
func lockHoldings(ctx context.Context, u ports.Unit, addrs ...domain.Address) (map[domain.Address]*domain.HoldingAccount, error) {
	sorted := make([]domain.Address, 0, len(addrs))
	seen := make(map[domain.Address]struct{}, len(addrs))
	for _, a := range addrs {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		sorted = append(sorted, a)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	out := make(map[domain.Address]*domain.HoldingAccount, len(sorted))
	for _, a := range sorted {
		h, err := u.Holdings().Get(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("load holding %s: %w", a, err)
		}
		out[a] = h
	}
	return out, nil
}
