package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"settlement-ledger/internal/adapter/storage/kv"
	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/core/ports/mocks"
	"settlement-ledger/internal/observability"
	"settlement-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testNow int64 = 1_700_000_000

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok, "expected *apperror.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, appErr.Message)
}

// ledger wires the services over an in-memory store, a fixed clock and a
// recording publisher.
type ledger struct {
	t           *testing.T
	ctrl        *gomock.Controller
	store       *kv.Store
	metrics     *observability.Metrics
	merchants   *MerchantServiceImpl
	settlements *SettlementServiceImpl
	refunds     *RefundServiceImpl
	holdings    *HoldingServiceImpl
	reporting   *ReportingServiceImpl

	mu        sync.Mutex
	now       int64
	published []*domain.Event
}

type ledgerOption func(*ledgerConfig)

type ledgerConfig struct {
	vault         ports.AssetTransferer
	platformOwner *domain.Identity
}

func withVault(v ports.AssetTransferer) ledgerOption {
	return func(c *ledgerConfig) { c.vault = v }
}

func withPlatformOwner(id domain.Identity) ledgerOption {
	return func(c *ledgerConfig) { c.platformOwner = &id }
}

func newLedger(t *testing.T, opts ...ledgerOption) *ledger {
	t.Helper()
	cfg := ledgerConfig{vault: NewVault()}
	for _, o := range opts {
		o(&cfg)
	}

	ctrl := gomock.NewController(t)
	store, err := kv.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	l := &ledger{t: t, ctrl: ctrl, store: store, now: testNow, metrics: observability.NewMetrics("test")}

	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().DoAndReturn(func() int64 {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.now
	}).AnyTimes()

	publisher := mocks.NewMockEventPublisher(ctrl)
	publisher.EXPECT().Name().Return("recorder").AnyTimes()
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev *domain.Event) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.published = append(l.published, ev)
		return nil
	}).AnyTimes()

	log := newTestLogger()
	records := NewRecordReader(store, nil, time.Hour, log)
	notifier := NewNotifier(l.metrics, log, publisher)

	l.merchants = NewMerchantService(store, records, log)
	l.settlements = NewSettlementService(store, cfg.vault, clock, records, notifier, l.metrics, cfg.platformOwner, log)
	l.refunds = NewRefundService(store, cfg.vault, l.metrics, log)
	l.holdings = NewHoldingService(store, log)
	l.reporting = NewReportingService(store, records, clock)
	return l
}

func (l *ledger) setNow(now int64) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

func (l *ledger) events() []*domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*domain.Event(nil), l.published...)
}

func (l *ledger) merchant(owner domain.Identity) *domain.Merchant {
	l.t.Helper()
	m, err := l.merchants.InitializeMerchant(context.Background(), ports.InitializeMerchantInput{
		Signers: domain.Signers{owner},
		Owner:   owner,
	})
	require.NoError(l.t, err)
	return m
}

func (l *ledger) request(owner domain.Identity, id string, amount uint64, asset domain.AssetID, expiresAt *int64) *domain.PaymentRequest {
	l.t.Helper()
	r, err := l.merchants.CreateRequest(context.Background(), ports.CreateRequestInput{
		Signers:   domain.Signers{owner},
		Owner:     owner,
		RequestID: id,
		Amount:    amount,
		Asset:     asset,
		ExpiresAt: expiresAt,
	})
	require.NoError(l.t, err)
	return r
}

func (l *ledger) holding(owner domain.Identity, asset domain.AssetID, balance uint64) domain.Address {
	l.t.Helper()
	h, err := l.holdings.OpenHolding(context.Background(), owner, asset)
	require.NoError(l.t, err)
	if balance > 0 {
		_, err = l.holdings.Deposit(context.Background(), h.Address, balance)
		require.NoError(l.t, err)
	}
	return h.Address
}

func (l *ledger) balance(addr domain.Address) uint64 {
	l.t.Helper()
	h, err := l.holdings.GetHolding(context.Background(), addr)
	require.NoError(l.t, err)
	return h.Balance
}

func (l *ledger) receiptExists(payer domain.Identity, receiptID string) bool {
	l.t.Helper()
	addr, _, err := domain.ReceiptAddress(payer, receiptID)
	require.NoError(l.t, err)
	rec, err := l.store.Reader().Records().Get(context.Background(), addr)
	require.NoError(l.t, err)
	return rec != nil
}

var (
	ownerO    = domain.Identity{0x0A}
	payerP    = domain.Identity{0x0B}
	platformF = domain.Identity{0x0C}
	strangerS = domain.Identity{0x0D}
	assetA    = domain.AssetID{0xA1}
	assetB    = domain.AssetID{0xB2}
)

// scene is a merchant with funded payer and empty merchant holdings in assetA.
type scene struct {
	*ledger
	merchant        *domain.Merchant
	payerHolding    domain.Address
	merchantHolding domain.Address
}

func newScene(t *testing.T, payerBalance uint64, opts ...ledgerOption) *scene {
	t.Helper()
	l := newLedger(t, opts...)
	return &scene{
		ledger:          l,
		merchant:        l.merchant(ownerO),
		payerHolding:    l.holding(payerP, assetA, payerBalance),
		merchantHolding: l.holding(ownerO, assetA, 0),
	}
}

func (s *scene) payInput(receiptID string, amount uint64, request *domain.Address) ports.PayInput {
	return ports.PayInput{
		Signers:         domain.Signers{payerP},
		Payer:           payerP,
		Merchant:        s.merchant.Address,
		Request:         request,
		ReceiptID:       receiptID,
		Amount:          amount,
		Asset:           assetA,
		PayerHolding:    s.payerHolding,
		MerchantHolding: s.merchantHolding,
	}
}

func (s *scene) refundInput(receipt domain.Address) ports.RefundInput {
	return ports.RefundInput{
		Signers:         domain.Signers{ownerO},
		MerchantOwner:   ownerO,
		Receipt:         receipt,
		MerchantHolding: s.merchantHolding,
		PayerHolding:    s.payerHolding,
	}
}
