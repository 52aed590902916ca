package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testStores(t *testing.T) map[string]Store {
	return map[string]Store{
		"redis":  newMiniredisStore(t),
		"memory": NewMemoryStore(),
	}
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "k1", map[string]int{"a": 1}, 0))

			var out map[string]int
			require.NoError(t, store.Get(ctx, "k1", &out))
			assert.Equal(t, 1, out["a"])
		})
	}
}

func TestStore_GetMissingKeyReturnsErrNotFound(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			var out string
			err := store.Get(context.Background(), "missing", &out)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "expiring", "v", 10*time.Millisecond))
			time.Sleep(50 * time.Millisecond)

			exists, err := store.Exists(ctx, "expiring")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestStore_Incr(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			v1, err := store.Incr(ctx, "counter", 5)
			require.NoError(t, err)
			assert.Equal(t, int64(5), v1)

			v2, err := store.Incr(ctx, "counter", 3)
			require.NoError(t, err)
			assert.Equal(t, int64(8), v2)
		})
	}
}

func TestStore_IncrByFloat(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			v1, err := store.IncrByFloat(ctx, "cost", 1.5)
			require.NoError(t, err)
			assert.InDelta(t, 1.5, v1, 0.0001)

			v2, err := store.IncrByFloat(ctx, "cost", 0.25)
			require.NoError(t, err)
			assert.InDelta(t, 1.75, v2, 0.0001)
		})
	}
}

func TestStore_KeysPatternMatch(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "daily_tokens_by_skill:2026-07-30:crm_lookup", 10, 0))
			require.NoError(t, store.Set(ctx, "daily_tokens_by_skill:2026-07-30:email_draft", 20, 0))
			require.NoError(t, store.Set(ctx, "daily_tokens_by_skill:2026-07-29:crm_lookup", 5, 0))

			keys, err := store.Keys(ctx, "daily_tokens_by_skill:2026-07-30:*")
			require.NoError(t, err)
			assert.Len(t, keys, 2)
		})
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Delete(ctx, "never-existed"))
		})
	}
}
