package service

import (
	"context"
	"fmt"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/observability"
	"settlement-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	refundFull    = "full"
	refundPartial = "partial"
)

// RefundServiceImpl implements ports.RefundService.
//
// Refunds move value back from the merchant holding to the payer holding.
// The receipt is left untouched and nothing tracks how much of it has
// already been refunded.
type RefundServiceImpl struct {
	substrate ports.Substrate
	vault     ports.AssetTransferer
	metrics   *observability.Metrics
	log       zerolog.Logger
}

// NewRefundService creates a new RefundServiceImpl.
func NewRefundService(substrate ports.Substrate, vault ports.AssetTransferer, metrics *observability.Metrics, log zerolog.Logger) *RefundServiceImpl {
	return &RefundServiceImpl{substrate: substrate, vault: vault, metrics: metrics, log: log}
}

// Refund returns the full receipt amount to the payer.
func (s *RefundServiceImpl) Refund(ctx context.Context, in ports.RefundInput) (*ports.RefundResult, error) {
	return s.refund(ctx, refundFull, in, nil)
}

// RefundPartial returns in.Amount to the payer.
func (s *RefundServiceImpl) RefundPartial(ctx context.Context, in ports.RefundPartialInput) (*ports.RefundResult, error) {
	if in.Amount == 0 {
		s.metrics.Refund(refundPartial, "LED_009", 0)
		return nil, apperror.ErrInvalidAmount()
	}
	amount := in.Amount
	return s.refund(ctx, refundPartial, in.RefundInput, &amount)
}

func (s *RefundServiceImpl) refund(ctx context.Context, kind string, in ports.RefundInput, partial *uint64) (result *ports.RefundResult, err error) {
	ctx, span := observability.StartSpan(ctx, "refund."+kind, attribute.String("receipt", in.Receipt.String()))
	defer func() {
		endSpan(span, err)
		if err != nil {
			s.metrics.Refund(kind, errorCode(err), 0)
			s.log.Warn().Err(err).Str("kind", kind).Str("receipt", in.Receipt.String()).Msg("refund rejected")
		}
	}()

	if !in.Signers.Has(in.MerchantOwner) {
		return nil, apperror.ErrUnauthorized("merchant owner")
	}
	merchantAddr, _, err := domain.MerchantAddress(in.MerchantOwner)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive merchant address: %w", err))
	}

	err = s.substrate.Atomically(ctx, func(ctx context.Context, u ports.Unit) error {
		receipt, err := loadReceipt(ctx, u.Records(), in.Receipt)
		if err != nil {
			return err
		}
		if receipt.Merchant != merchantAddr {
			return apperror.ErrUnauthorized("merchant owner")
		}

		held, err := lockHoldings(ctx, u, in.MerchantHolding, in.PayerHolding)
		if err != nil {
			return apperror.ErrDatabaseError(err)
		}
		merchantHolding, payerHolding := held[in.MerchantHolding], held[in.PayerHolding]
		if merchantHolding == nil {
			return apperror.ErrNotFound("Merchant holding")
		}
		if err := ValidateHolding("merchant", merchantHolding, in.MerchantOwner, receipt.Asset); err != nil {
			return err
		}
		if payerHolding == nil {
			return apperror.ErrNotFound("Payer holding")
		}
		if err := ValidateHolding("payer", payerHolding, receipt.Payer, receipt.Asset); err != nil {
			return err
		}

		amount := receipt.Amount
		if partial != nil {
			amount = *partial
		}
		if amount > 0 {
			if err := s.vault.Transfer(ctx, u, ports.TransferRequest{
				From: in.MerchantHolding, To: in.PayerHolding, Authority: in.MerchantOwner, Amount: amount,
			}); err != nil {
				return transferError(err)
			}
		}

		result = &ports.RefundResult{Receipt: receipt, Amount: amount, Partial: partial != nil}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.metrics.Refund(kind, observability.OutcomeOK, result.Amount)
	s.log.Info().
		Str("kind", kind).
		Str("receipt", in.Receipt.String()).
		Str("merchant", merchantAddr.String()).
		Uint64("amount", result.Amount).
		Msg("refund settled")
	return result, nil
}
