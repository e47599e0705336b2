package service

import (
	"context"
	"fmt"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/observability"
	"settlement-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	opPay          = "pay"
	opPayWithSplit = "pay_with_split"

	defaultEventPage = 50
	maxEventPage     = 500
)

// SettlementServiceImpl implements ports.SettlementService.
type SettlementServiceImpl struct {
	substrate     ports.Substrate
	vault         ports.AssetTransferer
	clock         ports.Clock
	records       *RecordReader
	notifier      *Notifier
	metrics       *observability.Metrics
	platformOwner *domain.Identity
	log           zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl. When
// platformOwner is set, split payments must route the fee to a holding it
// owns.
func NewSettlementService(
	substrate ports.Substrate,
	vault ports.AssetTransferer,
	clock ports.Clock,
	records *RecordReader,
	notifier *Notifier,
	metrics *observability.Metrics,
	platformOwner *domain.Identity,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		substrate:     substrate,
		vault:         vault,
		clock:         clock,
		records:       records,
		notifier:      notifier,
		metrics:       metrics,
		platformOwner: platformOwner,
		log:           log,
	}
}

// feeLeg is the platform side of a split payment.
type feeLeg struct {
	holding domain.Address
	feeBps  uint32
}

// Pay settles in.Amount from the payer to the merchant and writes a receipt.
func (s *SettlementServiceImpl) Pay(ctx context.Context, in ports.PayInput) (*ports.SettlementResult, error) {
	return s.settle(ctx, opPay, in, nil)
}

// PayWithSplit settles like Pay but routes fee_bps of the amount to the
// platform holding first.
func (s *SettlementServiceImpl) PayWithSplit(ctx context.Context, in ports.PayWithSplitInput) (*ports.SettlementResult, error) {
	return s.settle(ctx, opPayWithSplit, in.PayInput, &feeLeg{holding: in.PlatformHolding, feeBps: in.FeeBps})
}

// settle runs one settlement as a single atomic unit: validation, the
// transfers, the receipt and the event either all commit or none do.
func (s *SettlementServiceImpl) settle(ctx context.Context, op string, in ports.PayInput, fee *feeLeg) (result *ports.SettlementResult, err error) {
	ctx, span := observability.StartSpan(ctx, "settlement."+op,
		attribute.String("receipt_id", in.ReceiptID),
		attribute.String("merchant", in.Merchant.String()),
		attribute.Int64("amount", int64(in.Amount)),
	)
	defer func() {
		endSpan(span, err)
		if err != nil {
			s.metrics.Settlement(op, errorCode(err), in.Amount, 0)
			s.log.Warn().Err(err).Str("op", op).Str("receipt_id", in.ReceiptID).Msg("settlement rejected")
		}
	}()

	if err := ValidateID("receipt_id", in.ReceiptID); err != nil {
		return nil, err
	}
	if !in.Signers.Has(in.Payer) {
		return nil, apperror.ErrUnauthorized("payer")
	}

	receiptAddr, bump, err := domain.ReceiptAddress(in.Payer, in.ReceiptID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive receipt address: %w", err))
	}

	var (
		receiptRec *domain.Record
		event      *domain.Event
	)
	err = s.substrate.Atomically(ctx, func(ctx context.Context, u ports.Unit) error {
		now := s.clock.Now()

		// A settled (payer, receipt_id) pair collides before any other
		// argument is looked at.
		if err := ensureVacant(ctx, u, receiptAddr, "Receipt"); err != nil {
			return err
		}
		if fee != nil {
			if err := ValidateFeeBps(fee.feeBps); err != nil {
				return err
			}
		}

		merchant, err := loadMerchant(ctx, u.Records(), in.Merchant)
		if err != nil {
			return err
		}
		var request *domain.PaymentRequest
		if in.Request != nil {
			if request, err = loadRequest(ctx, u.Records(), *in.Request); err != nil {
				return err
			}
		}
		if err := ValidateRequestMatch(request, in.Merchant, in.Asset, in.Amount, now); err != nil {
			return err
		}

		addrs := []domain.Address{in.PayerHolding, in.MerchantHolding}
		if fee != nil {
			addrs = append(addrs, fee.holding)
		}
		held, err := lockHoldings(ctx, u, addrs...)
		if err != nil {
			return apperror.ErrDatabaseError(err)
		}
		if err := s.checkHoldings(held, in, merchant, fee); err != nil {
			return err
		}

		feeAmount, merchantAmount := uint64(0), in.Amount
		if fee != nil {
			if feeAmount, merchantAmount, err = domain.SplitFee(in.Amount, fee.feeBps); err != nil {
				return apperror.ErrInvalidFeeBps()
			}
		}

		if feeAmount > 0 {
			if err := s.vault.Transfer(ctx, u, ports.TransferRequest{
				From: in.PayerHolding, To: fee.holding, Authority: in.Payer, Amount: feeAmount,
			}); err != nil {
				return transferError(err)
			}
		}
		if merchantAmount > 0 {
			if err := s.vault.Transfer(ctx, u, ports.TransferRequest{
				From: in.PayerHolding, To: in.MerchantHolding, Authority: in.Payer, Amount: merchantAmount,
			}); err != nil {
				return transferError(err)
			}
		}

		receipt := &domain.PaymentReceipt{
			Address:   receiptAddr,
			Merchant:  in.Merchant,
			Payer:     in.Payer,
			Asset:     in.Asset,
			Amount:    in.Amount,
			Request:   in.Request,
			ReceiptID: in.ReceiptID,
			Timestamp: now,
			Bump:      bump,
		}
		rec, err := receipt.Record()
		if err != nil {
			return apperror.InternalError(fmt.Errorf("encode receipt: %w", err))
		}
		if err := createRecord(ctx, u, rec, "Receipt"); err != nil {
			return err
		}

		ev := domain.NewPaymentCompleted(receipt, time.Unix(now, 0).UTC())
		if err := u.Events().Append(ctx, ev); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("append event: %w", err))
		}

		receiptRec, event = rec, ev
		result = &ports.SettlementResult{
			Receipt:        receipt,
			FeeAmount:      feeAmount,
			MerchantAmount: merchantAmount,
			Event:          ev,
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.records.Remember(ctx, receiptRec)
	s.notifier.Notify(ctx, event)
	s.metrics.Settlement(op, observability.OutcomeOK, in.Amount, result.FeeAmount)
	s.log.Info().
		Str("op", op).
		Str("receipt", receiptAddr.String()).
		Str("merchant", in.Merchant.String()).
		Str("payer", in.Payer.String()).
		Uint64("amount", in.Amount).
		Uint64("fee", result.FeeAmount).
		Uint64("sequence", event.Sequence).
		Msg("payment settled")
	return result, nil
}

// checkHoldings validates the holdings taking part in a settlement, payer
// first, then merchant, then platform.
func (s *SettlementServiceImpl) checkHoldings(held map[domain.Address]*domain.HoldingAccount, in ports.PayInput, merchant *domain.Merchant, fee *feeLeg) error {
	payer := held[in.PayerHolding]
	if payer == nil {
		return apperror.ErrNotFound("Payer holding")
	}
	if err := ValidateHolding("payer", payer, in.Payer, in.Asset); err != nil {
		return err
	}

	merchantHolding := held[in.MerchantHolding]
	if merchantHolding == nil {
		return apperror.ErrNotFound("Merchant holding")
	}
	if err := ValidateHolding("merchant", merchantHolding, merchant.Owner, in.Asset); err != nil {
		return err
	}

	if fee == nil {
		return nil
	}
	platform := held[fee.holding]
	if platform == nil {
		return apperror.ErrNotFound("Platform holding")
	}
	if s.platformOwner != nil {
		return ValidateHolding("platform", platform, *s.platformOwner, in.Asset)
	}
	return validateHoldingAsset("platform", platform, in.Asset)
}

// GetReceipt returns the receipt at addr.
func (s *SettlementServiceImpl) GetReceipt(ctx context.Context, addr domain.Address) (*domain.PaymentReceipt, error) {
	return loadReceipt(ctx, s.records, addr)
}

// ListEvents pages through the event log in sequence order, starting after
// the given sequence.
func (s *SettlementServiceImpl) ListEvents(ctx context.Context, after uint64, limit int) ([]domain.Event, error) {
	switch {
	case limit <= 0:
		limit = defaultEventPage
	case limit > maxEventPage:
		limit = maxEventPage
	}
	events, err := s.substrate.Reader().Events().List(ctx, after, limit)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list events: %w", err))
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}
