package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lireddit/middleware"
	"github.com/cppla/lireddit/services"
	"github.com/cppla/lireddit/utils"
)

// PostController serves the feed and post writes.
type PostController struct {
	feed        *services.Feed
	posts       *services.PostService
	defaultSize int
}

// NewPostController creates a new PostController instance.
func NewPostController(feed *services.Feed, posts *services.PostService, defaultSize int) *PostController {
	if defaultSize <= 0 {
		defaultSize = 10
	}
	return &PostController{feed: feed, posts: posts, defaultSize: defaultSize}
}

type postRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// ListPosts returns one page of the newest-first feed.
func (p *PostController) ListPosts(ctx *gin.Context) {
	limit := p.defaultSize
	if v := strings.TrimSpace(ctx.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.ValidationErrors(ctx, 40002, "invalid limit", []utils.FieldError{{Field: "limit", Message: "must be an integer"}})
			return
		}
		limit = n
	}

	page, err := p.feed.FetchPage(ctx.Request.Context(), middleware.UserID(ctx), limit, strings.TrimSpace(ctx.Query("cursor")))
	if err != nil {
		respondError(ctx, err, 50022, "list posts")
		return
	}
	utils.Success(ctx, page)
}

// GetPost returns a single post.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	item, err := p.feed.GetPost(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		respondError(ctx, err, 50023, "load post")
		return
	}
	utils.Success(ctx, gin.H{"post": item})
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	userID := middleware.UserID(ctx)
	post, err := p.posts.CreatePost(ctx.Request.Context(), userID, req.Title, req.Text)
	if err != nil {
		respondError(ctx, err, 50020, "create post")
		return
	}
	item, err := p.feed.GetPost(ctx.Request.Context(), userID, post.ID)
	if err != nil {
		respondError(ctx, err, 50023, "load post")
		return
	}
	utils.Success(ctx, gin.H{"post": item})
}

// UpdatePost lets the author edit title and text.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	userID := middleware.UserID(ctx)
	if _, err := p.posts.UpdatePost(ctx.Request.Context(), userID, id, req.Title, req.Text); err != nil {
		respondError(ctx, err, 50024, "update post")
		return
	}
	item, err := p.feed.GetPost(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, err, 50023, "load post")
		return
	}
	utils.Success(ctx, gin.H{"post": item})
}

// DeletePost removes the caller's post and its votes.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.DeletePost(ctx.Request.Context(), middleware.UserID(ctx), id); err != nil {
		respondError(ctx, err, 50025, "delete post")
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}
