package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const secondsPerDay = int64(24 * 60 * 60)

// reportingScene settles 300 in assetA ten days ago, then 100 and 200 in
// assetA and 50 in assetB at testNow.
func reportingScene(t *testing.T) *scene {
	t.Helper()
	s := newScene(t, 10_000)
	ctx := context.Background()

	s.setNow(testNow - 10*secondsPerDay)
	_, err := s.settlements.Pay(ctx, s.payInput("old", 300, nil))
	require.NoError(t, err)

	s.setNow(testNow)
	for i, amount := range []uint64{100, 200} {
		_, err := s.settlements.Pay(ctx, s.payInput(fmt.Sprintf("new-%d", i), amount, nil))
		require.NoError(t, err)
	}

	in := s.payInput("other-asset", 50, nil)
	in.Asset = assetB
	in.PayerHolding = s.holding(payerP, assetB, 50)
	in.MerchantHolding = s.holding(ownerO, assetB, 0)
	_, err = s.settlements.Pay(ctx, in)
	require.NoError(t, err)
	return s
}

func TestReporting_MerchantStatsByPeriod(t *testing.T) {
	s := reportingScene(t)
	ctx := context.Background()

	tests := []struct {
		period   string
		receipts int64
		volumeA  string
	}{
		{"", 4, "600"},
		{"all", 4, "600"},
		{"month", 4, "600"},
		{"week", 3, "300"},
		{"day", 3, "300"},
	}
	for _, tt := range tests {
		t.Run("period="+tt.period, func(t *testing.T) {
			stats, err := s.reporting.MerchantStats(ctx, s.merchant.Address, tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.receipts, stats.Receipts)
			require.Len(t, stats.Assets, 2)
			assert.Equal(t, assetA, stats.Assets[0].Asset)
			assert.Equal(t, tt.volumeA, stats.Assets[0].Volume.Dec())
			assert.Equal(t, assetB, stats.Assets[1].Asset)
			assert.Equal(t, int64(1), stats.Assets[1].Receipts)
			assert.Equal(t, "50", stats.Assets[1].Volume.Dec())
		})
	}
}

func TestReporting_MerchantStatsInvalidPeriod(t *testing.T) {
	s := newScene(t, 0)

	_, err := s.reporting.MerchantStats(context.Background(), s.merchant.Address, "year")
	assertAppError(t, err, "REQ_001")
}

func TestReporting_MerchantWithoutPayments(t *testing.T) {
	s := newScene(t, 0)
	ctx := context.Background()

	stats, err := s.reporting.MerchantStats(ctx, s.merchant.Address, "all")
	require.NoError(t, err)
	assert.Zero(t, stats.Receipts)
	assert.NotNil(t, stats.Assets)
	assert.Empty(t, stats.Assets)

	events, err := s.reporting.RecentReceipts(ctx, s.merchant.Address, 0)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestReporting_UnknownMerchant(t *testing.T) {
	s := newScene(t, 0)
	ctx := context.Background()

	_, err := s.reporting.MerchantStats(ctx, domain.Address{0xEE}, "all")
	assertAppError(t, err, "LED_012")

	_, err = s.reporting.RecentReceipts(ctx, domain.Address{0xEE}, 5)
	assertAppError(t, err, "LED_012")
}

func TestReporting_RecentReceiptsNewestFirst(t *testing.T) {
	s := reportingScene(t)
	ctx := context.Background()

	events, err := s.reporting.RecentReceipts(ctx, s.merchant.Address, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(50), events[0].Payload.Amount)
	assert.Equal(t, uint64(200), events[1].Payload.Amount)
	assert.Greater(t, events[0].Sequence, events[1].Sequence)

	receipt, _, err := domain.ReceiptAddress(payerP, "other-asset")
	require.NoError(t, err)
	assert.Equal(t, receipt, events[0].Payload.Receipt)

	all, err := s.reporting.RecentReceipts(ctx, s.merchant.Address, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestReporting_RecentReceiptsOnlyOwnMerchant(t *testing.T) {
	s := reportingScene(t)
	ctx := context.Background()
	other := s.ledger.merchant(strangerS)

	events, err := s.reporting.RecentReceipts(ctx, other.Address, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReporting_StoreErrorsAreDatabaseErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := newLedger(t)
	m := l.merchant(ownerO)
	records := NewRecordReader(l.store, nil, 0, newTestLogger())

	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(testNow).AnyTimes()
	svc := NewReportingService(failingEvents{Substrate: l.store}, records, clock)

	_, err := svc.MerchantStats(context.Background(), m.Address, "day")
	assertAppError(t, err, "SYS_001")
	_, err = svc.RecentReceipts(context.Background(), m.Address, 3)
	assertAppError(t, err, "SYS_001")
}

// failingEvents serves the real records but an event log that always fails.
type failingEvents struct {
	ports.Substrate
}

func (f failingEvents) Reader() ports.Unit { return failingUnit{f.Substrate.Reader()} }

type failingUnit struct{ ports.Unit }

func (u failingUnit) Events() ports.EventLog { return failingLog{} }

type failingLog struct{ ports.EventLog }

var errEventsDown = errors.New("event log unavailable")

func (failingLog) ListByMerchant(context.Context, domain.Address, int) ([]domain.Event, error) {
	return nil, errEventsDown
}

func (failingLog) MerchantStats(context.Context, domain.Address, time.Time) (*ports.PaymentStats, error) {
	return nil, errEventsDown
}
