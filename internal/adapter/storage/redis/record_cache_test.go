package redis

import (
	"context"
	"testing"
	"time"

	"settlement-ledger/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReceiptRecord(t *testing.T) *domain.Record {
	t.Helper()
	payer := domain.Identity{0x42}
	addr, bump, err := domain.ReceiptAddress(payer, "ORDER-001")
	require.NoError(t, err)

	r := &domain.PaymentReceipt{
		Address:   addr,
		Merchant:  domain.Address{1},
		Payer:     payer,
		Asset:     domain.AssetID{2},
		Amount:    1000,
		ReceiptID: "ORDER-001",
		Timestamp: 1_700_000_000,
		Bump:      bump,
	}
	rec, err := r.Record()
	require.NoError(t, err)
	return rec
}

func TestRecordCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewRecordCache(client)
	ctx := context.Background()
	rec := testReceiptRecord(t)

	// Get before set => nil
	result, err := cache.Get(ctx, rec.Address)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, rec, time.Hour))

	result, err = cache.Get(ctx, rec.Address)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, rec.Kind, result.Kind)
	assert.Equal(t, rec.Data, result.Data)

	receipt, err := domain.DecodePaymentReceipt(result)
	require.NoError(t, err)
	assert.Equal(t, "ORDER-001", receipt.ReceiptID)
	assert.True(t, s.Exists("record:"+rec.Address.String()))
}

func TestRecordCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewRecordCache(client)
	ctx := context.Background()
	rec := testReceiptRecord(t)

	require.NoError(t, cache.Set(ctx, rec, 1*time.Second))

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, rec.Address)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestRecordCache_ServerDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewRecordCache(client)
	s.Close()

	_, err := cache.Get(context.Background(), domain.Address{1})
	assert.Error(t, err)
}
