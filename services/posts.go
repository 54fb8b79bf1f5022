package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/lireddit/models"
	"github.com/cppla/lireddit/utils"
)

const (
	maxTitleLength = 255
	maxTextLength  = 40000
)

// PostService owns post writes. Reads go through Feed.
type PostService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewPostService creates a post service.
func NewPostService(db *gorm.DB, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{db: db, log: logger}
}

func cleanPostInput(title, text string) (string, string, error) {
	// text stays raw markdown; RenderMarkdown sanitizes on the way out
	title = strings.TrimSpace(utils.PlainText(title))
	text = strings.TrimSpace(text)

	var errs ValidationErrors
	switch {
	case title == "":
		errs = append(errs, &ValidationError{Field: "title", Message: "title cannot be empty"})
	case utf8.RuneCountInString(title) > maxTitleLength:
		errs = append(errs, &ValidationError{Field: "title", Message: "title is too long"})
	}
	switch {
	case text == "":
		errs = append(errs, &ValidationError{Field: "text", Message: "text cannot be empty"})
	case utf8.RuneCountInString(text) > maxTextLength:
		errs = append(errs, &ValidationError{Field: "text", Message: "text is too long"})
	}
	if len(errs) > 0 {
		return "", "", errs
	}
	return title, text, nil
}

// CreatePost stores a new post by userID with zero points.
func (s *PostService) CreatePost(ctx context.Context, userID uint, title, text string) (*models.Post, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	title, text, err := cleanPostInput(title, text)
	if err != nil {
		return nil, err
	}

	post := models.Post{AuthorID: userID, Title: title, Text: text}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		return tx.Create(&post).Error
	})
	if err != nil {
		return nil, wrapStorage("create post", err)
	}
	s.log.Info("post created", zap.Uint("post_id", post.ID), zap.Uint("author_id", userID))
	return &post, nil
}

// UpdatePost changes title and text. Only the author may edit; points are untouched.
func (s *PostService) UpdatePost(ctx context.Context, userID, postID uint, title, text string) (*models.Post, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	title, text, err := cleanPostInput(title, text)
	if err != nil {
		return nil, err
	}

	var post models.Post
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		if locked.AuthorID != userID {
			return ErrUnauthorized
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			Updates(map[string]interface{}{"title": title, "text": text}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", postID).Take(&post).Error
	})
	if err != nil {
		return nil, wrapStorage("update post", err)
	}
	return &post, nil
}

// DeletePost removes a post and every vote on it. Only the author may delete.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	if userID == 0 {
		return ErrUnauthorized
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != userID {
			return ErrUnauthorized
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", postID).Delete(&models.Post{}).Error
	})
	if err != nil {
		return wrapStorage("delete post", err)
	}
	s.log.Info("post deleted", zap.Uint("post_id", postID), zap.Uint("author_id", userID))
	return nil
}
