package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// RecordReader serves committed records, consulting the cache first.
// Records never change once written, so a cached copy cannot go stale.
// Units never read through the cache.
type RecordReader struct {
	substrate ports.Substrate
	cache     ports.RecordCache
	ttl       time.Duration
	log       zerolog.Logger
}

// NewRecordReader creates a RecordReader. cache may be nil.
func NewRecordReader(substrate ports.Substrate, cache ports.RecordCache, ttl time.Duration, log zerolog.Logger) *RecordReader {
	return &RecordReader{substrate: substrate, cache: cache, ttl: ttl, log: log}
}

// Get returns the record at addr or nil.
func (r *RecordReader) Get(ctx context.Context, addr domain.Address) (*domain.Record, error) {
	if r.cache != nil {
		rec, err := r.cache.Get(ctx, addr)
		if err != nil {
			r.log.Warn().Err(err).Str("address", addr.String()).Msg("record cache read failed, falling through to storage")
		}
		if rec != nil {
			return rec, nil
		}
	}

	rec, err := r.substrate.Reader().Records().Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	r.Remember(ctx, rec)
	return rec, nil
}

// Remember stores a committed record in the cache.
func (r *RecordReader) Remember(ctx context.Context, rec *domain.Record) {
	if r.cache == nil || rec == nil {
		return
	}
	if err := r.cache.Set(ctx, rec, r.ttl); err != nil {
		r.log.Warn().Err(err).Str("address", rec.Address.String()).Msg("record cache write failed")
	}
}

type recordSource interface {
	Get(ctx context.Context, addr domain.Address) (*domain.Record, error)
}

// loadRecord fetches and decodes a record of the given kind. A missing
// record or one of another kind is reported as entity not found.
func loadRecord[T any](ctx context.Context, src recordSource, addr domain.Address, kind domain.RecordKind, entity string, decode func(*domain.Record) (*T, error)) (*T, error) {
	rec, err := src.Get(ctx, addr)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load %s: %w", kind, err))
	}
	if rec == nil || rec.Kind != kind {
		return nil, apperror.ErrNotFound(entity)
	}
	v, err := decode(rec)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decode %s %s: %w", kind, addr, err))
	}
	return v, nil
}

func loadMerchant(ctx context.Context, src recordSource, addr domain.Address) (*domain.Merchant, error) {
	return loadRecord(ctx, src, addr, domain.KindMerchant, "Merchant", domain.DecodeMerchant)
}

func loadRequest(ctx context.Context, src recordSource, addr domain.Address) (*domain.PaymentRequest, error) {
	return loadRecord(ctx, src, addr, domain.KindPaymentRequest, "Payment request", domain.DecodePaymentRequest)
}

func loadReceipt(ctx context.Context, src recordSource, addr domain.Address) (*domain.PaymentReceipt, error) {
	return loadRecord(ctx, src, addr, domain.KindPaymentReceipt, "Receipt", domain.DecodePaymentReceipt)
}

// ensureVacant reports a collision when addr already holds a record.
// createRecord still guards the write itself.
func ensureVacant(ctx context.Context, u ports.Unit, addr domain.Address, entity string) error {
	rec, err := u.Records().Get(ctx, addr)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("check %s address: %w", entity, err))
	}
	if rec != nil {
		return apperror.ErrCollision(entity)
	}
	return nil
}

// createRecord writes rec, reporting an occupied address as a collision.
func createRecord(ctx context.Context, u ports.Unit, rec *domain.Record, entity string) error {
	err := u.Records().Create(ctx, rec)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAddressOccupied):
		return apperror.ErrCollision(entity)
	default:
		return apperror.ErrDatabaseError(fmt.Errorf("create %s: %w", rec.Kind, err))
	}
}
