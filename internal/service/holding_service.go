package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// HoldingServiceImpl implements ports.HoldingService. It is the operator
// surface for opening holdings and funding them from outside the ledger.
type HoldingServiceImpl struct {
	substrate ports.Substrate
	log       zerolog.Logger
}

// NewHoldingService creates a new HoldingServiceImpl.
func NewHoldingService(substrate ports.Substrate, log zerolog.Logger) *HoldingServiceImpl {
	return &HoldingServiceImpl{substrate: substrate, log: log}
}

// OpenHolding creates the empty holding of owner for asset.
func (s *HoldingServiceImpl) OpenHolding(ctx context.Context, owner domain.Identity, asset domain.AssetID) (*domain.HoldingAccount, error) {
	addr, _, err := domain.HoldingAddress(owner, asset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive holding address: %w", err))
	}
	now := time.Now().UTC()
	h := &domain.HoldingAccount{
		Address:   addr,
		Owner:     owner,
		Asset:     asset,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.substrate.Atomically(ctx, func(ctx context.Context, u ports.Unit) error {
		return u.Holdings().Create(ctx, h)
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAddressOccupied):
		return nil, apperror.ErrCollision("Holding account")
	default:
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create holding: %w", err))
	}

	s.log.Info().Str("holding", addr.String()).Str("owner", owner.String()).Str("asset", asset.String()).Msg("holding opened")
	return h, nil
}

// Deposit credits amount to the holding at addr.
func (s *HoldingServiceImpl) Deposit(ctx context.Context, addr domain.Address, amount uint64) (*domain.HoldingAccount, error) {
	if amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	var updated *domain.HoldingAccount
	err := s.substrate.Atomically(ctx, func(ctx context.Context, u ports.Unit) error {
		h, err := u.Holdings().Get(ctx, addr)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("load holding: %w", err))
		}
		if h == nil {
			return apperror.ErrNotFound("Holding account")
		}
		if h.Balance > math.MaxUint64-amount {
			return apperror.ErrTransferFailure(domain.ErrBalanceOverflow)
		}
		h.Balance += amount
		if err := u.Holdings().UpdateBalance(ctx, addr, h.Balance); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("credit holding: %w", err))
		}
		h.UpdatedAt = time.Now().UTC()
		updated = h
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.log.Info().Str("holding", addr.String()).Uint64("amount", amount).Uint64("balance", updated.Balance).Msg("holding funded")
	return updated, nil
}

// GetHolding returns the holding at addr.
func (s *HoldingServiceImpl) GetHolding(ctx context.Context, addr domain.Address) (*domain.HoldingAccount, error) {
	h, err := s.substrate.Reader().Holdings().Get(ctx, addr)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load holding: %w", err))
	}
	if h == nil {
		return nil, apperror.ErrNotFound("Holding account")
	}
	return h, nil
}
