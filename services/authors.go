package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/lireddit/models"
	"github.com/cppla/lireddit/utils"
)

const authorKeyPrefix = "USER:"

// AuthorCache is a read-through cache of public user records keyed USER:<id>.
// Entries may be stale until their TTL runs out or Invalidate is called.
type AuthorCache struct {
	db    *gorm.DB
	cache utils.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewAuthorCache creates an author cache. A zero ttl uses the cache's default.
func NewAuthorCache(db *gorm.DB, cache utils.Cache, ttl time.Duration, logger *zap.Logger) *AuthorCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorCache{db: db, cache: cache, ttl: ttl, log: logger}
}

func authorKey(id uint) string {
	return authorKeyPrefix + strconv.FormatUint(uint64(id), 10)
}

// Get returns one author, loading and caching it on a miss.
func (a *AuthorCache) Get(ctx context.Context, id uint) (models.PublicUser, error) {
	var author models.PublicUser
	if utils.CacheGetJSON(ctx, a.cache, authorKey(id), &author) {
		return author, nil
	}

	var user models.User
	err := a.db.WithContext(ctx).Select("id", "username", "created_at").Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return author, ErrNotFound
	}
	if err != nil {
		return author, fmt.Errorf("load author: %w", err)
	}
	author = user.Public()
	utils.CacheSetJSON(ctx, a.cache, authorKey(id), author, a.ttl)
	return author, nil
}

// GetMany resolves a page worth of authors. Misses are loaded in a single query;
// ids with no user are absent from the result.
func (a *AuthorCache) GetMany(ctx context.Context, ids []uint) (map[uint]models.PublicUser, error) {
	ids = utils.UniqueUint(ids)
	found := make(map[uint]models.PublicUser, len(ids))
	var missing []uint
	for _, id := range ids {
		var author models.PublicUser
		if utils.CacheGetJSON(ctx, a.cache, authorKey(id), &author) {
			found[id] = author
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return found, nil
	}

	var users []models.User
	if err := a.db.WithContext(ctx).
		Select("id", "username", "created_at").
		Where("id IN ?", missing).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	for _, u := range users {
		author := u.Public()
		found[u.ID] = author
		utils.CacheSetJSON(ctx, a.cache, authorKey(u.ID), author, a.ttl)
	}
	a.log.Debug("author cache fill", zap.Int("requested", len(ids)), zap.Int("loaded", len(users)))
	return found, nil
}

// Invalidate drops cached authors.
func (a *AuthorCache) Invalidate(ctx context.Context, ids ...uint) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, authorKey(id))
	}
	a.cache.Delete(ctx, keys...)
}
