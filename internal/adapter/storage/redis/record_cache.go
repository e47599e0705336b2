package redis

import (
	"context"
	"fmt"
	"time"

	"settlement-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// RecordCache implements ports.RecordCache using Redis. Records never change
// after creation, so a cached entry is never stale; the TTL only bounds memory.
type RecordCache struct {
	client *goredis.Client
	prefix string
}

// NewRecordCache creates a new Redis-backed record cache.
func NewRecordCache(client *goredis.Client) *RecordCache {
	return &RecordCache{
		client: client,
		prefix: "record:",
	}
}

// Get returns nil, nil on a miss.
func (c *RecordCache) Get(ctx context.Context, addr domain.Address) (*domain.Record, error) {
	val, err := c.client.Get(ctx, c.prefix+addr.String()).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis record get: %w", err)
	}
	if len(val) == 0 {
		return nil, fmt.Errorf("redis record get: empty entry for %s", addr)
	}
	return &domain.Record{Address: addr, Kind: domain.RecordKind(val[0]), Data: val[1:]}, nil
}

// Set stores the kind byte followed by the record payload.
func (c *RecordCache) Set(ctx context.Context, rec *domain.Record, ttl time.Duration) error {
	val := make([]byte, 0, 1+len(rec.Data))
	val = append(val, byte(rec.Kind))
	val = append(val, rec.Data...)

	if err := c.client.Set(ctx, c.prefix+rec.Address.String(), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis record set: %w", err)
	}
	return nil
}
