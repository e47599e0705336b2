package service

import (
	"context"
	"errors"
	"testing"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports/mocks"
	"settlement-ledger/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestNotifier_FailingPublisherDoesNotStopOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockEventPublisher(ctrl)
	healthy := mocks.NewMockEventPublisher(ctrl)
	metrics := observability.NewMetrics("test")
	ev := testWebhookEvent()

	failing.EXPECT().Publish(gomock.Any(), ev).Return(errors.New("stream unavailable"))
	failing.EXPECT().Name().Return("redis-stream").AnyTimes()
	healthy.EXPECT().Publish(gomock.Any(), ev).Return(nil)

	NewNotifier(metrics, newTestLogger(), failing, healthy).Notify(context.Background(), ev)

	n, err := testutil.GatherAndCount(metrics.Registry(), "test_event_publish_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNotifier_IgnoresCallerCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockEventPublisher(ctrl)
	ev := testWebhookEvent()

	pub.EXPECT().Publish(gomock.Any(), ev).DoAndReturn(func(ctx context.Context, _ *domain.Event) error {
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewNotifier(nil, newTestLogger(), pub).Notify(ctx, ev)
}

func TestNotifier_NilIsNoOp(t *testing.T) {
	var n *Notifier
	n.Notify(context.Background(), testWebhookEvent())
}
