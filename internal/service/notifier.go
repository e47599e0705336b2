package service

import (
	"context"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/observability"

	"github.com/rs/zerolog"
)

// Notifier fans committed events out to every configured publisher.
// A failing publisher is logged and counted, never surfaced to the caller:
// the event is already durable in the event log.
type Notifier struct {
	publishers []ports.EventPublisher
	metrics    *observability.Metrics
	log        zerolog.Logger
}

// NewNotifier creates a Notifier. With no publishers it does nothing.
func NewNotifier(metrics *observability.Metrics, log zerolog.Logger, publishers ...ports.EventPublisher) *Notifier {
	return &Notifier{publishers: publishers, metrics: metrics, log: log}
}

// Notify publishes ev. The caller's cancellation does not cut delivery short.
func (n *Notifier) Notify(ctx context.Context, ev *domain.Event) {
	if n == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, p := range n.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			n.log.Warn().Err(err).
				Str("publisher", p.Name()).
				Uint64("sequence", ev.Sequence).
				Str("event_id", ev.ID.String()).
				Msg("event publish failed")
			n.metrics.PublishFailed(p.Name())
		}
	}
}
