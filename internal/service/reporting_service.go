package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/apperror"
)

const (
	defaultRecentReceipts = 10
	maxRecentReceipts     = 100
)

// ReportingServiceImpl implements ports.ReportingService.
type ReportingServiceImpl struct {
	substrate ports.Substrate
	records   *RecordReader
	clock     ports.Clock
}

// NewReportingService creates a new ReportingServiceImpl.
func NewReportingService(substrate ports.Substrate, records *RecordReader, clock ports.Clock) *ReportingServiceImpl {
	return &ReportingServiceImpl{substrate: substrate, records: records, clock: clock}
}

// MerchantStats returns receipt count and per-asset volume of the merchant's
// payments inside period.
func (s *ReportingServiceImpl) MerchantStats(ctx context.Context, merchant domain.Address, period string) (*ports.PaymentStats, error) {
	now := time.Unix(s.clock.Now(), 0).UTC()
	var since time.Time

	switch period {
	case "day":
		since = now.AddDate(0, 0, -1)
	case "week":
		since = now.AddDate(0, 0, -7)
	case "month":
		since = now.AddDate(0, -1, 0)
	case "all", "":
		// No time filter
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}

	if _, err := loadMerchant(ctx, s.records, merchant); err != nil {
		return nil, err
	}

	stats, err := s.substrate.Reader().Events().MerchantStats(ctx, merchant, since)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("merchant stats: %w", err))
	}
	slices.SortFunc(stats.Assets, func(a, b ports.AssetVolume) int {
		return bytes.Compare(a.Asset[:], b.Asset[:])
	})
	if stats.Assets == nil {
		stats.Assets = []ports.AssetVolume{}
	}
	return stats, nil
}

// RecentReceipts returns the merchant's latest payment events, newest first.
func (s *ReportingServiceImpl) RecentReceipts(ctx context.Context, merchant domain.Address, limit int) ([]domain.Event, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentReceipts
	case limit > maxRecentReceipts:
		limit = maxRecentReceipts
	}

	if _, err := loadMerchant(ctx, s.records, merchant); err != nil {
		return nil, err
	}

	events, err := s.substrate.Reader().Events().ListByMerchant(ctx, merchant, limit)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list merchant events: %w", err))
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}
