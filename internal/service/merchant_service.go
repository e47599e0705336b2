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

// MerchantServiceImpl implements ports.MerchantService.
type MerchantServiceImpl struct {
	substrate ports.Substrate
	records   *RecordReader
	log       zerolog.Logger
}

// NewMerchantService creates a new MerchantServiceImpl.
func NewMerchantService(substrate ports.Substrate, records *RecordReader, log zerolog.Logger) *MerchantServiceImpl {
	return &MerchantServiceImpl{substrate: substrate, records: records, log: log}
}

// InitializeMerchant creates the merchant record owned by in.Owner. Each
// owner gets exactly one merchant.
func (s *MerchantServiceImpl) InitializeMerchant(ctx context.Context, in ports.InitializeMerchantInput) (m *domain.Merchant, err error) {
	ctx, span := observability.StartSpan(ctx, "merchant.initialize", attribute.String("owner", in.Owner.String()))
	defer func() { endSpan(span, err) }()

	if !in.Signers.Has(in.Owner) {
		return nil, apperror.ErrUnauthorized("merchant owner")
	}
	if len(in.DisplayName) > domain.MaxIDLen {
		return nil, apperror.Validation("display_name must be at most 64 bytes")
	}

	addr, bump, err := domain.MerchantAddress(in.Owner)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive merchant address: %w", err))
	}
	m = &domain.Merchant{Address: addr, Owner: in.Owner, DisplayName: in.DisplayName, Bump: bump}
	rec, err := m.Record()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encode merchant: %w", err))
	}

	err = s.substrate.Atomically(ctx, func(ctx context.Context, u ports.Unit) error {
		return createRecord(ctx, u, rec, "Merchant")
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.records.Remember(ctx, rec)
	s.log.Info().Str("merchant", addr.String()).Str("owner", in.Owner.String()).Msg("merchant initialized")
	return m, nil
}

// CreateRequest publishes a payment request under the owner's merchant.
func (s *MerchantServiceImpl) CreateRequest(ctx context.Context, in ports.CreateRequestInput) (req *domain.PaymentRequest, err error) {
	ctx, span := observability.StartSpan(ctx, "merchant.create_request", attribute.String("request_id", in.RequestID))
	defer func() { endSpan(span, err) }()

	if err := ValidateID("request_id", in.RequestID); err != nil {
		return nil, err
	}
	if !in.Signers.Has(in.Owner) {
		return nil, apperror.ErrUnauthorized("merchant owner")
	}

	merchantAddr, _, err := domain.MerchantAddress(in.Owner)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive merchant address: %w", err))
	}
	addr, bump, err := domain.RequestAddress(merchantAddr, in.RequestID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive request address: %w", err))
	}
	req = &domain.PaymentRequest{
		Address:   addr,
		Merchant:  merchantAddr,
		RequestID: in.RequestID,
		Amount:    in.Amount,
		Asset:     in.Asset,
		ExpiresAt: in.ExpiresAt,
		Bump:      bump,
	}
	rec, err := req.Record()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encode payment request: %w", err))
	}

	err = s.substrate.Atomically(ctx, func(ctx context.Context, u ports.Unit) error {
		if _, err := loadMerchant(ctx, u.Records(), merchantAddr); err != nil {
			return err
		}
		return createRecord(ctx, u, rec, "Payment request")
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.records.Remember(ctx, rec)
	s.log.Info().
		Str("request", addr.String()).
		Str("merchant", merchantAddr.String()).
		Str("request_id", in.RequestID).
		Uint64("amount", in.Amount).
		Msg("payment request created")
	return req, nil
}

// GetMerchant returns the merchant at addr.
func (s *MerchantServiceImpl) GetMerchant(ctx context.Context, addr domain.Address) (*domain.Merchant, error) {
	return loadMerchant(ctx, s.records, addr)
}

// GetRequest returns the payment request at addr.
func (s *MerchantServiceImpl) GetRequest(ctx context.Context, addr domain.Address) (*domain.PaymentRequest, error) {
	return loadRequest(ctx, s.records, addr)
}
