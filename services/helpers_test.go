package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/lireddit/config"
	"github.com/cppla/lireddit/models"
	"github.com/cppla/lireddit/utils"
)

// newTestDB opens a private in-memory database. One connection means concurrent
// transactions queue instead of failing with SQLITE_BUSY.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		config.GormConfig(logger.Default.LogMode(logger.Silent)),
	)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedPost(t *testing.T, db *gorm.DB, authorID uint, createdAt time.Time) models.Post {
	t.Helper()
	post := models.Post{AuthorID: authorID, Title: "title", Text: "text", CreatedAt: createdAt}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func storedPoints(t *testing.T, db *gorm.DB, postID uint) int {
	t.Helper()
	var post models.Post
	require.NoError(t, db.Where("id = ?", postID).Take(&post).Error)
	return post.Points
}

func voteRows(t *testing.T, db *gorm.DB, postID uint) []models.Vote {
	t.Helper()
	var votes []models.Vote
	require.NoError(t, db.Where("post_id = ?", postID).Order("user_id ASC").Find(&votes).Error)
	return votes
}

type testServices struct {
	db      *gorm.DB
	ledger  *VoteLedger
	scores  *ScoreAggregator
	authors *AuthorCache
	cache   *utils.LRUCache
	feed    *Feed
	posts   *PostService
	users   *UserService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := newTestDB(t)
	cache := utils.NewLRUCache(100)
	scores := NewScoreAggregator(db, nil)
	authors := NewAuthorCache(db, cache, time.Hour, nil)
	return &testServices{
		db:      db,
		ledger:  NewVoteLedger(db, nil),
		scores:  scores,
		authors: authors,
		cache:   cache,
		feed:    NewFeed(db, scores, authors, DefaultMaxPageSize, nil),
		posts:   NewPostService(db, nil),
		users:   NewUserService(db, authors, nil),
	}
}

func zapNop() *zap.Logger { return zap.NewNop() }
