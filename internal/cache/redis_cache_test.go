package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, "test:", slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "thing", cachedThing{Name: "quiz", Count: 3}, time.Minute))

	var got cachedThing
	require.NoError(t, c.Get(ctx, "thing", &got))
	assert.Equal(t, cachedThing{Name: "quiz", Count: 3}, got)
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	var got cachedThing
	err := c.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Expiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", cachedThing{Name: "x"}, time.Second))
	mr.FastForward(2 * time.Second)

	var got cachedThing
	assert.ErrorIs(t, c.Get(ctx, "short", &got), ErrCacheMiss)
}

func TestRedisCache_DeletePattern(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, ActivityConfigKey(2, 12), cachedThing{Name: "config"}, 0))
	require.NoError(t, c.Set(ctx, AccessInfoKey(12), cachedThing{Name: "access"}, 0))
	require.NoError(t, c.Set(ctx, AccessInfoKey(112), cachedThing{Name: "other"}, 0))

	require.NoError(t, c.DeletePattern(ctx, ActivityPattern(12)))

	var got cachedThing
	assert.ErrorIs(t, c.Get(ctx, ActivityConfigKey(2, 12), &got), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, AccessInfoKey(12), &got), ErrCacheMiss)
	assert.NoError(t, c.Get(ctx, AccessInfoKey(112), &got))

	require.NoError(t, c.Delete(ctx, AccessInfoKey(112)))
	assert.ErrorIs(t, c.Get(ctx, AccessInfoKey(112), &got), ErrCacheMiss)
}
