package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/core/ports/mocks"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSettlement_PayAgainstRequest(t *testing.T) {
	s := newScene(t, 5000)
	ctx := context.Background()
	req := s.request(ownerO, "req1", 1000, assetA, nil)

	res, err := s.settlements.Pay(ctx, s.payInput("rcpt1", 1000, &req.Address))
	require.NoError(t, err)

	assert.Equal(t, uint64(1000), res.Receipt.Amount)
	require.NotNil(t, res.Receipt.Request)
	assert.Equal(t, req.Address, *res.Receipt.Request)
	assert.Equal(t, s.merchant.Address, res.Receipt.Merchant)
	assert.Equal(t, testNow, res.Receipt.Timestamp)
	assert.Equal(t, uint64(0), res.FeeAmount)
	assert.Equal(t, uint64(1000), res.MerchantAmount)

	assert.Equal(t, uint64(4000), s.balance(s.payerHolding))
	assert.Equal(t, uint64(1000), s.balance(s.merchantHolding))

	stored, err := s.settlements.GetReceipt(ctx, res.Receipt.Address)
	require.NoError(t, err)
	assert.Equal(t, res.Receipt, stored)

	events := s.events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventPaymentCompleted, events[0].Type)
	assert.Equal(t, res.Receipt.Address, events[0].Payload.Receipt)
	assert.Equal(t, uint64(1000), events[0].Payload.Amount)
	assert.Equal(t, uint64(1), events[0].Sequence)

	// second attempt with the same pair collides and moves nothing
	_, err = s.settlements.Pay(ctx, s.payInput("rcpt1", 1000, &req.Address))
	assertAppError(t, err, "LED_010")
	assert.Equal(t, uint64(4000), s.balance(s.payerHolding))
	assert.Len(t, s.events(), 1)
}

func TestSettlement_DuplicateReceiptCollidesRegardlessOfArguments(t *testing.T) {
	s := newScene(t, 5000)
	ctx := context.Background()

	_, err := s.settlements.Pay(ctx, s.payInput("dup", 100, nil))
	require.NoError(t, err)

	otherMerchantHolding := s.holding(ownerO, assetB, 0)
	payerB := s.holding(payerP, assetB, 100)
	in := s.payInput("dup", 7, nil)
	in.Asset = assetB
	in.PayerHolding = payerB
	in.MerchantHolding = otherMerchantHolding

	_, err = s.settlements.Pay(ctx, in)
	assertAppError(t, err, "LED_010")
	assert.Equal(t, uint64(100), s.balance(payerB), "transfer staged before the collision must roll back")

	_, err = s.settlements.PayWithSplit(ctx, ports.PayWithSplitInput{
		PayInput:        s.payInput("dup", 50, nil),
		PlatformHolding: s.holding(platformF, assetA, 0),
		FeeBps:          100,
	})
	assertAppError(t, err, "LED_010")
}

func TestSettlement_DuplicateReceiptCollidesBeforeOtherChecks(t *testing.T) {
	s := newScene(t, 1000)
	ctx := context.Background()
	req := s.request(ownerO, "req1", 1000, assetA, nil)

	_, err := s.settlements.Pay(ctx, s.payInput("rcpt1", 1000, &req.Address))
	require.NoError(t, err)
	require.Equal(t, uint64(0), s.balance(s.payerHolding))

	expired := int64(1)
	stale := s.request(ownerO, "req-expired", 5, assetA, &expired)
	unknown := domain.Address{0xEE}

	tests := []struct {
		name string
		in   func() ports.PayInput
	}{
		{"payer holding drained", func() ports.PayInput { return s.payInput("rcpt1", 1000, &req.Address) }},
		{"amount differs from request", func() ports.PayInput { return s.payInput("rcpt1", 999, &req.Address) }},
		{"request expired", func() ports.PayInput { return s.payInput("rcpt1", 5, &stale.Address) }},
		{"request missing", func() ports.PayInput { return s.payInput("rcpt1", 1, &unknown) }},
		{"merchant missing", func() ports.PayInput {
			in := s.payInput("rcpt1", 1, nil)
			in.Merchant = unknown
			return in
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.settlements.Pay(ctx, tt.in())
			assertAppError(t, err, "LED_010")
		})
	}

	_, err = s.settlements.PayWithSplit(ctx, ports.PayWithSplitInput{
		PayInput:        s.payInput("rcpt1", 1000, &req.Address),
		PlatformHolding: s.holding(platformF, assetA, 0),
		FeeBps:          10_001,
	})
	assertAppError(t, err, "LED_010")
	assert.Len(t, s.events(), 1)
}

func TestSettlement_AdHocPayment(t *testing.T) {
	s := newScene(t, 300)

	res, err := s.settlements.Pay(context.Background(), s.payInput("adhoc-1", 300, nil))
	require.NoError(t, err)
	assert.Nil(t, res.Receipt.Request)
	assert.Equal(t, uint64(0), s.balance(s.payerHolding))
	assert.Equal(t, uint64(300), s.balance(s.merchantHolding))
}

func TestSettlement_ZeroAmountWritesReceiptWithoutTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	vault := mocks.NewMockAssetTransferer(ctrl)
	vault.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s := newScene(t, 0, withVault(vault))

	res, err := s.settlements.Pay(context.Background(), s.payInput("zero", 0, nil))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Receipt.Amount)
	assert.True(t, s.receiptExists(payerP, "zero"))
}

func TestSettlement_PayWithSplit_TransfersFeeThenMerchant(t *testing.T) {
	ctrl := gomock.NewController(t)
	real := NewVault()
	vault := mocks.NewMockAssetTransferer(ctrl)
	s := newScene(t, 1000, withVault(vault))
	platform := s.holding(platformF, assetA, 0)

	gomock.InOrder(
		vault.EXPECT().Transfer(gomock.Any(), gomock.Any(), ports.TransferRequest{
			From: s.payerHolding, To: platform, Authority: payerP, Amount: 25,
		}).DoAndReturn(real.Transfer),
		vault.EXPECT().Transfer(gomock.Any(), gomock.Any(), ports.TransferRequest{
			From: s.payerHolding, To: s.merchantHolding, Authority: payerP, Amount: 975,
		}).DoAndReturn(real.Transfer),
	)

	res, err := s.settlements.PayWithSplit(context.Background(), ports.PayWithSplitInput{
		PayInput:        s.payInput("split-1", 1000, nil),
		PlatformHolding: platform,
		FeeBps:          250,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(25), res.FeeAmount)
	assert.Equal(t, uint64(975), res.MerchantAmount)
	assert.Equal(t, uint64(1000), res.Receipt.Amount)

	assert.Equal(t, uint64(0), s.balance(s.payerHolding))
	assert.Equal(t, uint64(25), s.balance(platform))
	assert.Equal(t, uint64(975), s.balance(s.merchantHolding))
}

func TestSettlement_PayWithSplit_Boundaries(t *testing.T) {
	tests := []struct {
		name         string
		bps          uint32
		wantFee      uint64
		wantMerchant uint64
	}{
		{"no fee", 0, 0, 1000},
		{"whole amount", 10_000, 1000, 0},
		{"rounds down", 3, 0, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t, 1000)
			platform := s.holding(platformF, assetA, 0)

			res, err := s.settlements.PayWithSplit(context.Background(), ports.PayWithSplitInput{
				PayInput:        s.payInput("split", 1000, nil),
				PlatformHolding: platform,
				FeeBps:          tt.bps,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantFee, res.FeeAmount)
			assert.Equal(t, tt.wantMerchant, res.MerchantAmount)
			assert.Equal(t, tt.wantFee, s.balance(platform))
			assert.Equal(t, tt.wantMerchant, s.balance(s.merchantHolding))
		})
	}
}

func TestSettlement_PayWithSplit_RejectsFeeAboveMax(t *testing.T) {
	s := newScene(t, 1000)

	_, err := s.settlements.PayWithSplit(context.Background(), ports.PayWithSplitInput{
		PayInput:        s.payInput("split", 1000, nil),
		PlatformHolding: s.holding(platformF, assetA, 0),
		FeeBps:          10_001,
	})
	assertAppError(t, err, "LED_008")
	assert.False(t, s.receiptExists(payerP, "split"))
}

func TestSettlement_PlatformOwnerEnforcedWhenConfigured(t *testing.T) {
	s := newScene(t, 1000, withPlatformOwner(platformF))
	wrong := s.holding(strangerS, assetA, 0)

	_, err := s.settlements.PayWithSplit(context.Background(), ports.PayWithSplitInput{
		PayInput:        s.payInput("split", 1000, nil),
		PlatformHolding: wrong,
		FeeBps:          100,
	})
	assertAppError(t, err, "LED_007")
	assert.Equal(t, uint64(1000), s.balance(s.payerHolding))
}

func TestSettlement_RequestMismatches(t *testing.T) {
	past := testNow - 1
	future := testNow + 60

	tests := []struct {
		name     string
		setup    func(s *scene) (*domain.Address, ports.PayInput)
		wantCode string
	}{
		{
			name: "expired",
			setup: func(s *scene) (*domain.Address, ports.PayInput) {
				r := s.request(ownerO, "old", 1000, assetA, &past)
				return &r.Address, s.payInput("rcpt", 1000, &r.Address)
			},
			wantCode: "LED_002",
		},
		{
			name: "amount",
			setup: func(s *scene) (*domain.Address, ports.PayInput) {
				r := s.request(ownerO, "amt", 1000, assetA, &future)
				return &r.Address, s.payInput("rcpt", 999, &r.Address)
			},
			wantCode: "LED_003",
		},
		{
			name: "merchant",
			setup: func(s *scene) (*domain.Address, ports.PayInput) {
				s.ledger.merchant(strangerS)
				r := s.request(strangerS, "theirs", 1000, assetA, nil)
				return &r.Address, s.payInput("rcpt", 1000, &r.Address)
			},
			wantCode: "LED_004",
		},
		{
			name: "asset",
			setup: func(s *scene) (*domain.Address, ports.PayInput) {
				r := s.request(ownerO, "asset", 1000, assetB, nil)
				return &r.Address, s.payInput("rcpt", 1000, &r.Address)
			},
			wantCode: "LED_005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			vault := mocks.NewMockAssetTransferer(ctrl)
			vault.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			s := newScene(t, 5000, withVault(vault))

			_, in := tt.setup(s)
			_, err := s.settlements.Pay(context.Background(), in)
			assertAppError(t, err, tt.wantCode)
			assert.False(t, s.receiptExists(payerP, "rcpt"))
			assert.Empty(t, s.events())
		})
	}
}

func TestSettlement_ExpiryIsInclusive(t *testing.T) {
	s := newScene(t, 1000)
	expires := testNow
	r := s.request(ownerO, "edge", 1000, assetA, &expires)

	_, err := s.settlements.Pay(context.Background(), s.payInput("on-time", 1000, &r.Address))
	require.NoError(t, err)
}

func TestSettlement_RequestIsReusable(t *testing.T) {
	s := newScene(t, 3000)
	r := s.request(ownerO, "multi", 1000, assetA, nil)

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.settlements.Pay(context.Background(), s.payInput(id, 1000, &r.Address))
		require.NoError(t, err, id)
	}
	assert.Equal(t, uint64(3000), s.balance(s.merchantHolding))
}

func TestSettlement_UnknownReferences(t *testing.T) {
	s := newScene(t, 1000)
	ctx := context.Background()

	in := s.payInput("rcpt", 100, nil)
	in.Merchant = domain.Address{0xEE}
	_, err := s.settlements.Pay(ctx, in)
	assertAppError(t, err, "LED_012")

	missing := domain.Address{0xEF}
	_, err = s.settlements.Pay(ctx, s.payInput("rcpt", 100, &missing))
	assertAppError(t, err, "LED_012")

	// a merchant address is not a request
	_, err = s.settlements.Pay(ctx, s.payInput("rcpt", 100, &s.merchant.Address))
	assertAppError(t, err, "LED_012")
}

func TestSettlement_HoldingValidation(t *testing.T) {
	s := newScene(t, 1000)
	ctx := context.Background()

	in := s.payInput("rcpt", 100, nil)
	in.PayerHolding = s.holding(strangerS, assetA, 1000)
	_, err := s.settlements.Pay(ctx, in)
	assertAppError(t, err, "LED_007")

	in = s.payInput("rcpt", 100, nil)
	in.MerchantHolding = s.holding(ownerO, assetB, 0)
	_, err = s.settlements.Pay(ctx, in)
	assertAppError(t, err, "LED_006")

	// never opened
	in = s.payInput("rcpt", 100, nil)
	in.MerchantHolding, _, _ = domain.HoldingAddress(ownerO, domain.AssetID{0xFF})
	_, err = s.settlements.Pay(ctx, in)
	assertAppError(t, err, "LED_012")
}

func TestSettlement_InsufficientBalanceRollsBack(t *testing.T) {
	s := newScene(t, 100)
	platform := s.holding(platformF, assetA, 0)

	// the fee leg fits, the merchant leg does not
	_, err := s.settlements.PayWithSplit(context.Background(), ports.PayWithSplitInput{
		PayInput:        s.payInput("big", 150, nil),
		PlatformHolding: platform,
		FeeBps:          5000,
	})
	assertAppError(t, err, "LED_011")
	assert.True(t, errors.Is(err, domain.ErrInsufficientBalance))

	assert.Equal(t, uint64(100), s.balance(s.payerHolding))
	assert.Equal(t, uint64(0), s.balance(platform))
	assert.False(t, s.receiptExists(payerP, "big"))
	assert.Empty(t, s.events())
}

func TestSettlement_TransferFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	real := NewVault()
	vault := mocks.NewMockAssetTransferer(ctrl)
	s := newScene(t, 1000, withVault(vault))
	platform := s.holding(platformF, assetA, 0)

	gomock.InOrder(
		vault.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(real.Transfer),
		vault.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.ErrTransferUnauthorized),
	)

	_, err := s.settlements.PayWithSplit(context.Background(), ports.PayWithSplitInput{
		PayInput:        s.payInput("fails", 1000, nil),
		PlatformHolding: platform,
		FeeBps:          1000,
	})
	assertAppError(t, err, "LED_011")
	assert.Equal(t, uint64(1000), s.balance(s.payerHolding))
	assert.Equal(t, uint64(0), s.balance(platform))
}

func TestSettlement_Authorization(t *testing.T) {
	s := newScene(t, 1000)

	in := s.payInput("rcpt", 100, nil)
	in.Signers = domain.Signers{strangerS}
	_, err := s.settlements.Pay(context.Background(), in)
	assertAppError(t, err, "SEC_005")
}

func TestSettlement_InvalidReceiptID(t *testing.T) {
	s := newScene(t, 1000)
	long := string(make([]byte, 65))

	for _, id := range []string{"", long} {
		_, err := s.settlements.Pay(context.Background(), s.payInput(id, 100, nil))
		assertAppError(t, err, "LED_001")
	}
}

func TestSettlement_ConcurrentDuplicateSettlesOnce(t *testing.T) {
	s := newScene(t, 10_000)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		collided  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.settlements.Pay(context.Background(), s.payInput("race", 100, nil))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			collided++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, collided)
	assert.Equal(t, uint64(9_900), s.balance(s.payerHolding))
	assert.Len(t, s.events(), 1)
}

func TestSettlement_ListEvents(t *testing.T) {
	s := newScene(t, 1000)
	ctx := context.Background()
	for _, id := range []string{"e1", "e2", "e3"} {
		_, err := s.settlements.Pay(ctx, s.payInput(id, 10, nil))
		require.NoError(t, err)
	}

	all, err := s.settlements.ListEvents(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{all[0].Sequence, all[1].Sequence, all[2].Sequence})

	page, err := s.settlements.ListEvents(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(2), page[0].Sequence)

	empty, err := s.settlements.ListEvents(ctx, 3, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSettlement_GetReceiptNotFound(t *testing.T) {
	s := newScene(t, 0)
	_, err := s.settlements.GetReceipt(context.Background(), domain.Address{0x42})
	assertAppError(t, err, "LED_012")
}

func TestSettlement_Metrics(t *testing.T) {
	s := newScene(t, 1000)
	ctx := context.Background()

	_, err := s.settlements.Pay(ctx, s.payInput("m1", 400, nil))
	require.NoError(t, err)
	_, err = s.settlements.Pay(ctx, s.payInput("m1", 400, nil))
	require.Error(t, err)

	out, err := testutil.GatherAndCount(s.metrics.Registry(), "test_settlements_total")
	require.NoError(t, err)
	assert.Equal(t, 2, out)
}
