package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type availability struct {
	SKU       string `json:"sku"`
	Available int    `json:"available"`
}

func newTestRegionCache(t *testing.T) (*RegionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRegionCache(client, "stock", time.Minute), mr
}

// ============================================
// Connection Tests
// ============================================

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestNewRedis_Pings(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewRedis(context.Background(), "redis://"+mr.Addr())
	assert.Error(t, err)
}

// ============================================
// Get / Set Tests
// ============================================

func TestRegionCache_Keys(t *testing.T) {
	c := NewRegionCache(nil, "stock", time.Minute)

	assert.Equal(t, "stock:availability:M///", c.Key("availability", "M///"))
	assert.Equal(t, "stock:availability:*", c.pattern("availability"))
}

func TestRegionCache_SetThenGet(t *testing.T) {
	c, mr := newTestRegionCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "availability", "M///", availability{SKU: "M///", Available: 7}))

	var got availability
	ok, err := c.Get(ctx, "availability", "M///", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, availability{SKU: "M///", Available: 7}, got)
	assert.True(t, mr.Exists("stock:availability:M///"))
}

func TestRegionCache_GetMiss(t *testing.T) {
	c, _ := newTestRegionCache(t)

	var got availability
	ok, err := c.Get(context.Background(), "availability", "missing", &got)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegionCache_GetCorruptValue(t *testing.T) {
	c, mr := newTestRegionCache(t)
	require.NoError(t, mr.Set("stock:availability:M///", "{not json"))

	var got availability
	ok, err := c.Get(context.Background(), "availability", "M///", &got)

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRegionCache_SetAppliesTTL(t *testing.T) {
	c, mr := newTestRegionCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "availability", "M///", availability{Available: 1}))
	assert.Equal(t, time.Minute, mr.TTL("stock:availability:M///"))

	mr.FastForward(2 * time.Minute)

	var got availability
	ok, err := c.Get(ctx, "availability", "M///", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ============================================
// Clear Tests
// ============================================

func TestRegionCache_Clear(t *testing.T) {
	tests := []struct {
		name string
		keys int
	}{
		{name: "empty region", keys: 0},
		{name: "single batch", keys: 3},
		{name: "exactly one batch", keys: scanBatch},
		{name: "several batches", keys: 2*scanBatch + 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mr := newTestRegionCache(t)
			ctx := context.Background()
			for i := 0; i < tt.keys; i++ {
				require.NoError(t, c.Set(ctx, "availability", fmt.Sprintf("M%d///", i), availability{Available: i}))
			}
			require.NoError(t, c.Set(ctx, "prices", "M0///", availability{Available: 1}))
			require.NoError(t, mr.Set("other:availability:M0///", "1"))

			require.NoError(t, c.Clear(ctx, "availability"))

			for _, key := range mr.Keys() {
				assert.NotContains(t, key, "stock:availability:")
			}
			assert.True(t, mr.Exists("stock:prices:M0///"), "other regions are kept")
			assert.True(t, mr.Exists("other:availability:M0///"), "other prefixes are kept")
		})
	}
}

func TestRegionCache_ClearServerDown(t *testing.T) {
	c, mr := newTestRegionCache(t)
	mr.Close()

	assert.Error(t, c.Clear(context.Background(), "availability"))
}
