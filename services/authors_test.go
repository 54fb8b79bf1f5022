package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/lireddit/models"
)

func TestAuthorCache_ReadThroughAndInvalidate(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	user := seedUser(t, s.db, "original")

	_, cached := s.cache.Get(ctx, authorKey(user.ID))
	require.False(t, cached)

	got, err := s.authors.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Username)
	_, cached = s.cache.Get(ctx, authorKey(user.ID))
	assert.True(t, cached, "miss populates the cache")

	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("username", "renamed").Error)

	stale, err := s.authors.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", stale.Username, "served from cache until invalidated")

	s.authors.Invalidate(ctx, user.ID)
	fresh, err := s.authors.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", fresh.Username)

	_, err = s.authors.Get(ctx, user.ID+99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthorCache_GetManyBatchesMisses(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a := seedUser(t, s.db, "alpha")
	b := seedUser(t, s.db, "bravo")

	_, err := s.authors.Get(ctx, a.ID)
	require.NoError(t, err)

	found, err := s.authors.GetMany(ctx, []uint{a.ID, b.ID, a.ID, b.ID + 40})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, "alpha", found[a.ID].Username)
	assert.Equal(t, "bravo", found[b.ID].Username)

	_, cached := s.cache.Get(ctx, authorKey(b.ID))
	assert.True(t, cached)
}

func TestAuthorCache_EntriesExpire(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	user := seedUser(t, s.db, "short")
	authors := NewAuthorCache(s.db, s.cache, time.Millisecond, nil)

	_, err := authors.Get(ctx, user.ID)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, cached := s.cache.Get(ctx, authorKey(user.ID))
	assert.False(t, cached)
}
