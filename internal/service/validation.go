package service

import (
	"errors"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/pkg/apperror"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ValidateID checks a client supplied request or receipt id.
func ValidateID(field, id string) error {
	if err := domain.ValidateID(id); err != nil {
		return apperror.ErrInvalidID(field)
	}
	return nil
}

// ValidateFeeBps rejects fees above 100%.
func ValidateFeeBps(feeBps uint32) error {
	if feeBps > domain.MaxFeeBps {
		return apperror.ErrInvalidFeeBps()
	}
	return nil
}

// ValidateRequestMatch checks a settlement against the payment request it
// references. A nil request means an ad hoc payment and always matches.
//
// Checks run in a fixed order so the first violated condition is reported:
// merchant, asset, expiry, amount.
func ValidateRequestMatch(req *domain.PaymentRequest, merchant domain.Address, asset domain.AssetID, amount uint64, now int64) error {
	if req == nil {
		return nil
	}
	if req.Merchant != merchant {
		return apperror.ErrRequestMerchantMismatch()
	}
	if req.Asset != asset {
		return apperror.ErrRequestAssetMismatch()
	}
	if req.Expired(now) {
		return apperror.ErrRequestExpired()
	}
	if req.Amount != amount {
		return apperror.ErrAmountMismatch()
	}
	return nil
}

// ValidateHolding checks that h is owned by owner and carries asset.
func ValidateHolding(label string, h *domain.HoldingAccount, owner domain.Identity, asset domain.AssetID) error {
	if h.Owner != owner {
		return apperror.ErrOwnerMismatch(label)
	}
	return validateHoldingAsset(label, h, asset)
}

func validateHoldingAsset(label string, h *domain.HoldingAccount, asset domain.AssetID) error {
	if h.Asset != asset {
		return apperror.ErrAssetMismatch(label)
	}
	return nil
}

// transferError maps a vault failure to LED_011, keeping storage failures
// distinct.
func transferError(err error) error {
	switch {
	case errors.Is(err, domain.ErrHoldingNotFound),
		errors.Is(err, domain.ErrTransferUnauthorized),
		errors.Is(err, domain.ErrTransferAssetMismatch),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrBalanceOverflow):
		return apperror.ErrTransferFailure(err)
	}
	return apperror.ErrDatabaseError(err)
}

// asAppError passes AppErrors through and wraps anything else as a
// storage failure.
func asAppError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.ErrDatabaseError(err)
}

// errorCode labels metrics and logs with the AppError code of err.
func errorCode(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "SYS_001"
}

// endSpan closes span, marking it failed with the error code when err is set.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errorCode(err))
	}
	span.End()
}
