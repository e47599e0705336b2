package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNonceStore(t *testing.T) (*NonceStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewNonceStore(client), s
}

func TestNonceStore_ClaimOnce(t *testing.T) {
	store, s := newNonceStore(t)
	store.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	ctx := context.Background()

	fresh, err := store.CheckAndSet(ctx, "idn1alice", "n-1", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = store.CheckAndSet(ctx, "idn1alice", "n-1", 2*time.Minute)
	require.NoError(t, err)
	assert.False(t, fresh, "replayed nonce")

	got, err := s.Get(nonceKey("idn1alice", "n-1"))
	require.NoError(t, err)
	assert.Equal(t, "1700000000", got)
	assert.Equal(t, 2*time.Minute, s.TTL(nonceKey("idn1alice", "n-1")))
}

func TestNonceStore_ScopedBySigner(t *testing.T) {
	store, _ := newNonceStore(t)
	ctx := context.Background()

	for _, signer := range []string{"idn1alice", "idn1bob"} {
		fresh, err := store.CheckAndSet(ctx, signer, "shared", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh, signer)
	}
}

func TestNonceStore_ReusableAfterTTL(t *testing.T) {
	store, s := newNonceStore(t)
	ctx := context.Background()

	_, err := store.CheckAndSet(ctx, "idn1alice", "n-exp", time.Second)
	require.NoError(t, err)
	s.FastForward(2 * time.Second)

	fresh, err := store.CheckAndSet(ctx, "idn1alice", "n-exp", time.Second)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestNonceStore_RejectsBadNonce(t *testing.T) {
	store, _ := newNonceStore(t)
	ctx := context.Background()

	_, err := store.CheckAndSet(ctx, "idn1alice", "", time.Minute)
	assert.Error(t, err)
	_, err = store.CheckAndSet(ctx, "idn1alice", strings.Repeat("n", maxNonceLength+1), time.Minute)
	assert.Error(t, err)
}

func TestNonceStore_RedisDown(t *testing.T) {
	store, s := newNonceStore(t)
	s.Close()

	_, err := store.CheckAndSet(context.Background(), "idn1alice", "n-1", time.Minute)
	assert.Error(t, err)
}
