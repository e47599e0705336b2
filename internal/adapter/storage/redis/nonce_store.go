package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const maxNonceLength = 128

var errBadNonce = errors.New("nonce must be 1-128 bytes")

// NonceStore implements ports.NonceStore. Each accepted nonce is remembered
// per signer for the TTL, holding the unix time it was first seen.
type NonceStore struct {
	client *goredis.Client
	now    func() time.Time
}

// NewNonceStore creates a Redis-backed nonce store.
func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{client: client, now: time.Now}
}

func nonceKey(signer, nonce string) string {
	return "nonce:" + signer + ":" + nonce
}

// CheckAndSet reports whether nonce is fresh for signer, claiming it if so.
func (s *NonceStore) CheckAndSet(ctx context.Context, signer string, nonce string, ttl time.Duration) (bool, error) {
	if nonce == "" || len(nonce) > maxNonceLength {
		return false, errBadNonce
	}
	fresh, err := s.client.SetNX(ctx, nonceKey(signer, nonce), s.now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis nonce claim: %w", err)
	}
	return fresh, nil
}
