package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	// "b" is least recently used now
	c.Set(ctx, "c", []byte("3"), time.Minute)
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)

	c.Delete(ctx, "a", "c")
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestLRUCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache(10)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", []byte("v"), time.Second)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	c.Set(ctx, "default", []byte("v"), 0)
	now = now.Add(defaultCacheTTL - time.Second)
	_, ok = c.Get(ctx, "default")
	assert.True(t, ok, "zero ttl uses the default")
}

func TestCacheJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(10)
	type author struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}

	CacheSetJSON(ctx, c, "USER:1", author{ID: 1, Name: "ann"}, time.Minute)
	var got author
	require.True(t, CacheGetJSON(ctx, c, "USER:1", &got))
	assert.Equal(t, author{ID: 1, Name: "ann"}, got)

	c.Set(ctx, "USER:2", []byte("{broken"), time.Minute)
	assert.False(t, CacheGetJSON(ctx, c, "USER:2", &got))
}

func TestTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	b := NewTokenBlacklistWith(NewLRUCache(10))

	assert.False(t, b.IsRevoked(ctx, "jti-1"))
	b.Revoke(ctx, "jti-1", time.Now().Add(time.Hour))
	assert.True(t, b.IsRevoked(ctx, "jti-1"))

	b.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute))
	assert.False(t, b.IsRevoked(ctx, "jti-2"), "already expired tokens are not stored")
	assert.False(t, b.IsRevoked(ctx, ""))
}
