package kv

import (
	"context"
	"testing"
	"time"

	"settlement-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_CreateKeepsOrder(t *testing.T) {
	s := newTestStore(t)
	repo := NewAuditRepository(s)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := domain.Identity{4}
	second := &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionRefund, ResourceType: "receipt", CreatedAt: base.Add(time.Second)}
	first := &domain.AuditLog{ID: uuid.New(), Signer: &signer, Action: domain.AuditActionPay, ResourceType: "receipt", CreatedAt: base}

	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	entries, err := s.AuditEntries(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditActionPay, entries[0].Action)
	require.NotNil(t, entries[0].Signer)
	assert.Equal(t, signer, *entries[0].Signer)
	assert.Equal(t, domain.AuditActionRefund, entries[1].Action)
}

func TestAuditRepo_DoesNotTouchEventLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, NewAuditRepository(s).Create(ctx, &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionDeposit, CreatedAt: time.Now()}))

	events, err := s.Reader().Events().List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAuditRepo_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewAuditRepository(s).Create(ctx, &domain.AuditLog{ID: uuid.New()})
	assert.ErrorIs(t, err, context.Canceled)
}
