package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transfer(l *ledger, req ports.TransferRequest) error {
	return l.store.Atomically(context.Background(), func(ctx context.Context, u ports.Unit) error {
		return NewVault().Transfer(ctx, u, req)
	})
}

func TestVault_Transfer(t *testing.T) {
	l := newLedger(t)
	from := l.holding(payerP, assetA, 100)
	to := l.holding(ownerO, assetA, 5)

	require.NoError(t, transfer(l, ports.TransferRequest{From: from, To: to, Authority: payerP, Amount: 60}))
	assert.Equal(t, uint64(40), l.balance(from))
	assert.Equal(t, uint64(65), l.balance(to))
}

func TestVault_TransferToSelfIsNoOp(t *testing.T) {
	l := newLedger(t)
	from := l.holding(payerP, assetA, 100)

	require.NoError(t, transfer(l, ports.TransferRequest{From: from, To: from, Authority: payerP, Amount: 60}))
	assert.Equal(t, uint64(100), l.balance(from))
}

func TestVault_TransferFailures(t *testing.T) {
	l := newLedger(t)
	from := l.holding(payerP, assetA, 100)
	to := l.holding(ownerO, assetA, 0)
	other := l.holding(ownerO, assetB, 0)
	full := l.holding(strangerS, assetA, math.MaxUint64)

	tests := []struct {
		name string
		req  ports.TransferRequest
		want error
	}{
		{"missing source", ports.TransferRequest{From: domain.Address{1}, To: to, Authority: payerP, Amount: 1}, domain.ErrHoldingNotFound},
		{"missing destination", ports.TransferRequest{From: from, To: domain.Address{1}, Authority: payerP, Amount: 1}, domain.ErrHoldingNotFound},
		{"wrong authority", ports.TransferRequest{From: from, To: to, Authority: ownerO, Amount: 1}, domain.ErrTransferUnauthorized},
		{"asset mismatch", ports.TransferRequest{From: from, To: other, Authority: payerP, Amount: 1}, domain.ErrTransferAssetMismatch},
		{"insufficient", ports.TransferRequest{From: from, To: to, Authority: payerP, Amount: 101}, domain.ErrInsufficientBalance},
		{"overflow", ports.TransferRequest{From: from, To: full, Authority: payerP, Amount: 1}, domain.ErrBalanceOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transfer(l, tt.req)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, uint64(100), l.balance(from))
		})
	}
}
