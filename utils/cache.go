package utils

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL  = time.Hour
	cacheCallTimeout = 2 * time.Second
)

// Cache is a keyed byte store with expiry. Misses and backend failures look the same
// to callers: both return ok=false and the caller goes to the primary store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, b []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// RedisCache stores entries in Redis.
type RedisCache struct {
	rc *redis.Client
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rc *redis.Client) *RedisCache {
	return &RedisCache{rc: rc}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, cacheCallTimeout)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(ctx, cacheCallTimeout)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheCallTimeout)
	defer cancel()
	if err := c.rc.Del(ctx, keys...).Err(); err != nil {
		Sugar.Warnf("cache delete failed keys=%v err=%v", keys, err)
	}
}

type lruItem struct {
	data      []byte
	expiresAt time.Time
}

// LRUCache is the in-process fallback used when Redis is disabled.
type LRUCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, lruItem]
	now func() time.Time
}

// NewLRUCache creates a cache holding at most size entries.
func NewLRUCache(size int) *LRUCache {
	if size <= 0 {
		size = 500
	}
	l, err := lru.New[string, lruItem](size)
	if err != nil {
		// only fails for non-positive sizes
		panic(err)
	}
	return &LRUCache{lru: l, now: time.Now}
}

func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return item.data, true
}

func (c *LRUCache) Set(_ context.Context, key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, lruItem{data: b, expiresAt: c.now().Add(ttl)})
}

func (c *LRUCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.lru.Remove(k)
	}
}

// NewCache returns a Redis-backed cache when Redis is enabled, otherwise an LRU.
func NewCache() Cache {
	if rc := GetRedis(); rc != nil {
		return NewRedisCache(rc)
	}
	return NewLRUCache(1000)
}

// CacheGetJSON decodes a cached JSON value into v.
func CacheGetJSON(ctx context.Context, c Cache, key string, v interface{}) bool {
	b, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

// CacheSetJSON marshals v and stores JSON bytes.
func CacheSetJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, b, ttl)
}
