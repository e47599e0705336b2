package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"settlement-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// StreamPublisher implements ports.EventPublisher by appending committed
// events to a Redis stream.
type StreamPublisher struct {
	client *goredis.Client
	stream string
	maxLen int64
}

// NewStreamPublisher creates a publisher for stream. maxLen caps the stream
// length approximately; zero leaves it unbounded.
func NewStreamPublisher(client *goredis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish XADDs the event. The ledger sequence is carried as a field so
// consumers can resume from GET /api/v1/events after a gap.
func (p *StreamPublisher) Publish(ctx context.Context, ev *domain.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	args := &goredis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: map[string]any{
			"sequence": strconv.FormatUint(ev.Sequence, 10),
			"id":       ev.ID.String(),
			"type":     string(ev.Type),
			"payload":  string(payload),
		},
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd: %w", err)
	}
	return nil
}

// Name returns the publisher name used in logs and metrics.
func (p *StreamPublisher) Name() string {
	return "redis-stream"
}
