package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/lireddit/models"
	"github.com/cppla/lireddit/utils"
)

// DefaultMaxPageSize caps a feed page when no other limit is configured.
const DefaultMaxPageSize = 100

// FeedItem is a post decorated for one viewer.
type FeedItem struct {
	ID        uint              `json:"id"`
	Title     string            `json:"title"`
	Text      string            `json:"text"`
	TextHTML  string            `json:"text_html"`
	Points    int               `json:"points"`
	VoteState models.VoteState  `json:"vote_state"`
	AuthorID  uint              `json:"author_id"`
	Author    models.PublicUser `json:"author"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Page is one slice of the newest-first feed.
type Page struct {
	Items      []FeedItem `json:"items"`
	HasMore    bool       `json:"has_more"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// Cursor marks the last item of a page. ID is zero for the legacy timestamp-only form.
type Cursor struct {
	CreatedAt time.Time
	ID        uint
}

// EncodeCursor renders "<unixMillis>_<id>".
func EncodeCursor(createdAt time.Time, id uint) string {
	return strconv.FormatInt(createdAt.UnixMilli(), 10) + "_" + strconv.FormatUint(uint64(id), 10)
}

// DecodeCursor parses "<unixMillis>_<id>" or a bare "<unixMillis>".
func DecodeCursor(raw string) (Cursor, error) {
	msPart, idPart, compound := strings.Cut(raw, "_")
	ms, err := strconv.ParseInt(msPart, 10, 64)
	if err != nil || ms < 0 {
		return Cursor{}, invalid("cursor", "malformed cursor")
	}
	c := Cursor{CreatedAt: time.UnixMilli(ms).UTC()}
	if !compound {
		return c, nil
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id == 0 {
		return Cursor{}, invalid("cursor", "malformed cursor")
	}
	c.ID = uint(id)
	return c, nil
}

// Feed pages through posts newest first. The cursor is the only state between calls.
type Feed struct {
	db          *gorm.DB
	scores      *ScoreAggregator
	authors     *AuthorCache
	maxPageSize int
	log         *zap.Logger
}

// NewFeed creates a feed reader.
func NewFeed(db *gorm.DB, scores *ScoreAggregator, authors *AuthorCache, maxPageSize int, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &Feed{db: db, scores: scores, authors: authors, maxPageSize: maxPageSize, log: logger}
}

// FetchPage returns up to limit posts older than cursor. An empty cursor starts at the newest post.
func (f *Feed) FetchPage(ctx context.Context, viewerID uint, limit int, cursor string) (*Page, error) {
	if limit <= 0 {
		return nil, invalid("limit", "limit must be positive")
	}
	if limit > f.maxPageSize {
		limit = f.maxPageSize
	}

	query := f.db.WithContext(ctx).Model(&models.Post{})
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		if c.ID == 0 {
			query = query.Where("created_at < ?", c.CreatedAt)
		} else {
			query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
		}
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	page := &Page{Items: []FeedItem{}}
	if len(posts) > limit {
		page.HasMore = true
		posts = posts[:limit]
	}
	items, err := f.decorate(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}
	page.Items = items
	if page.HasMore {
		last := posts[len(posts)-1]
		page.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// GetPost returns one decorated post.
func (f *Feed) GetPost(ctx context.Context, viewerID, postID uint) (*FeedItem, error) {
	var post models.Post
	err := f.db.WithContext(ctx).Where("id = ?", postID).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post: %w", err)
	}
	items, err := f.decorate(ctx, viewerID, []models.Post{post})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// decorate attaches vote states and authors with one batched lookup each.
func (f *Feed) decorate(ctx context.Context, viewerID uint, posts []models.Post) ([]FeedItem, error) {
	items := make([]FeedItem, 0, len(posts))
	if len(posts) == 0 {
		return items, nil
	}

	postIDs := make([]uint, 0, len(posts))
	authorIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		authorIDs = append(authorIDs, p.AuthorID)
	}

	states, err := f.scores.VoteStatesFor(ctx, viewerID, postIDs)
	if err != nil {
		return nil, err
	}
	authors, err := f.authors.GetMany(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range posts {
		author, ok := authors[p.AuthorID]
		if !ok {
			f.log.Warn("post author missing", zap.Uint("post_id", p.ID), zap.Uint("author_id", p.AuthorID))
			author = models.PublicUser{ID: p.AuthorID}
		}
		items = append(items, FeedItem{
			ID:        p.ID,
			Title:     p.Title,
			Text:      p.Text,
			TextHTML:  utils.RenderMarkdown(p.Text),
			Points:    p.Points,
			VoteState: states[p.ID],
			AuthorID:  p.AuthorID,
			Author:    author,
			CreatedAt: p.CreatedAt.UTC(),
			UpdatedAt: p.UpdatedAt.UTC(),
		})
	}
	return items, nil
}
