package utils

import (
	"context"
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist remembers revoked token ids until their natural expiration.
type TokenBlacklist struct {
	cache Cache
}

// NewTokenBlacklist uses Redis when enabled so every instance sees a logout;
// otherwise revocations live in process memory.
func NewTokenBlacklist() *TokenBlacklist {
	if rc := GetRedis(); rc != nil {
		return &TokenBlacklist{cache: NewRedisCache(rc)}
	}
	return &TokenBlacklist{cache: NewLRUCache(10000)}
}

// NewTokenBlacklistWith stores revocations in the given cache.
func NewTokenBlacklistWith(c Cache) *TokenBlacklist {
	return &TokenBlacklist{cache: c}
}

// Revoke blacklists a token id until expiresAt.
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return
	}
	b.cache.Set(ctx, blacklistPrefix+tokenID, []byte("1"), ttl)
}

// IsRevoked reports whether the token id was revoked. Backend errors fail open.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}
	_, ok := b.cache.Get(ctx, blacklistPrefix+tokenID)
	return ok
}
