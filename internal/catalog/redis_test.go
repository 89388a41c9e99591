package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebite/storefront/internal/api"
)

func newRedisSut(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	sut, _ := newRedisSut(t)
	ctx := context.Background()

	products := []api.Product{
		{ID: "p1", Title: "Beef Burger", BasePrice: 250, Variants: []api.Variant{{Name: "Size", Options: []string{"Regular", "Large"}}}},
	}
	require.NoError(t, sut.Set(ctx, "menu:all", products))

	got, err := sut.Get(ctx, "menu:all")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Beef Burger", got[0].Title)
	assert.Equal(t, 250.0, got[0].BasePrice.Float64())
	assert.Equal(t, []string{"Regular", "Large"}, got[0].Variants[0].Options)
}

func TestRedisCache_Miss(t *testing.T) {
	sut, _ := newRedisSut(t)

	_, err := sut.Get(context.Background(), "menu:nothing")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	sut, _ := newRedisSut(t)
	ctx := context.Background()

	require.NoError(t, sut.Set(ctx, "menu:all", []api.Product{{ID: "p1"}}))
	require.NoError(t, sut.Delete(ctx, "menu:all"))
	_, err := sut.Get(ctx, "menu:all")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_EntryExpires(t *testing.T) {
	sut, mr := newRedisSut(t)
	ctx := context.Background()

	require.NoError(t, sut.Set(ctx, "menu:all", []api.Product{{ID: "p1"}}))

	// TTL is base plus up to a minute of jitter.
	mr.FastForward(sut.baseTTL + 2*time.Minute)
	_, err := sut.Get(ctx, "menu:all")
	require.ErrorIs(t, err, ErrCacheMiss)
}
