package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUnreachableCachedStore builds a CachedStore whose Redis client points at
// a port nothing listens on. Every cache command fails fast, which is exactly
// the degraded mode the wrapper must survive.
func newUnreachableCachedStore(inner *MemoryStore) *CachedStore {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	return &CachedStore{
		inner:     inner,
		client:    client,
		namespace: "stagekeeper-test",
		ttl:       time.Minute,
	}
}

func TestCachedStoreFallsBackWhenCacheUnavailable(t *testing.T) {
	inner := NewMemoryStore()
	cached := newUnreachableCachedStore(inner)
	defer cached.Close()
	ctx := context.Background()

	def := newDefinition("stg_cached", time.Now(), 24)
	require.NoError(t, cached.SaveDefinition(ctx, def))

	// The cache write failed silently; the read must still resolve through
	// the inner store.
	loaded, err := cached.FindDefinitionByName(ctx, "stg_cached")
	require.NoError(t, err)
	assert.Equal(t, def.ID, loaded.ID)
	assert.Equal(t, 24, loaded.TTLHours)
}

func TestCachedStoreReflectsRetirement(t *testing.T) {
	inner := NewMemoryStore()
	cached := newUnreachableCachedStore(inner)
	defer cached.Close()
	ctx := context.Background()

	def := newDefinition("stg_retiring", time.Now(), 24)
	require.NoError(t, cached.SaveDefinition(ctx, def))

	dropped := time.Now()
	def.DroppedAt = &dropped
	require.NoError(t, cached.SaveDefinition(ctx, def))

	loaded, err := cached.FindDefinitionByName(ctx, "stg_retiring")
	require.NoError(t, err)
	require.NotNil(t, loaded.DroppedAt)
	assert.False(t, loaded.IsActive())

	active, err := cached.FindActiveDefinitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCachedStorePropagatesInnerErrors(t *testing.T) {
	inner := NewMemoryStore()
	cached := newUnreachableCachedStore(inner)
	defer cached.Close()

	_, err := cached.FindDefinitionByName(context.Background(), "stg_missing")
	assert.Error(t, err)
}

func TestNewCachedStoreRequiresEndpoint(t *testing.T) {
	_, err := NewCachedStore(NewMemoryStore(), CachedStoreConfig{})
	assert.Error(t, err)
}
