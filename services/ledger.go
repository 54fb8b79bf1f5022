package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/lireddit/models"
)

// VoteLedger records at most one vote per (user, post) and keeps Post.Points in step
// with the ledger inside the same transaction.
type VoteLedger struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewVoteLedger creates a ledger over db.
func NewVoteLedger(db *gorm.DB, logger *zap.Logger) *VoteLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoteLedger{db: db, log: logger}
}

// CastVote upserts the caller's vote on a post. Repeating the same direction is a no-op;
// the opposite direction flips the existing row and moves the score by two.
func (l *VoteLedger) CastVote(ctx context.Context, userID, postID uint, isPositive bool) (*VoteResult, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	value := models.Downvote
	if isPositive {
		value = models.Upvote
	}

	var result *VoteResult
	err := withConflictRetry(l.log, func() error {
		return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := requireUser(tx, userID); err != nil {
				return err
			}
			post, err := lockPost(tx, postID)
			if err != nil {
				return err
			}

			existing, err := findVote(tx, userID, postID)
			if err != nil {
				return err
			}

			var delta int
			var outcome Outcome
			switch {
			case existing == nil:
				vote := models.Vote{UserID: userID, PostID: postID, Value: value}
				if err := tx.Create(&vote).Error; err != nil {
					return err
				}
				delta, outcome = value, OutcomeCreated
			case existing.Value == value:
				delta, outcome = 0, OutcomeUnchanged
			default:
				if err := tx.Model(&models.Vote{}).
					Where("user_id = ? AND post_id = ?", userID, postID).
					Update("value", value).Error; err != nil {
					return err
				}
				delta, outcome = value-existing.Value, OutcomeFlipped
			}

			if err := addPoints(tx, postID, delta); err != nil {
				return err
			}
			result = &VoteResult{
				PostID:    postID,
				Points:    post.Points + delta,
				Delta:     delta,
				VoteState: models.StateOf(value),
				Outcome:   outcome,
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapStorage("cast vote", err)
	}

	l.log.Debug("vote cast",
		zap.Uint("user_id", userID),
		zap.Uint("post_id", postID),
		zap.Int("delta", result.Delta),
		zap.String("outcome", string(result.Outcome)),
	)
	return result, nil
}

// RetractVote removes the caller's vote. Retracting a vote that does not exist succeeds
// with OutcomeNone and a zero delta.
func (l *VoteLedger) RetractVote(ctx context.Context, userID, postID uint) (*VoteResult, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}

	var result *VoteResult
	err := withConflictRetry(l.log, func() error {
		return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := requireUser(tx, userID); err != nil {
				return err
			}
			post, err := lockPost(tx, postID)
			if err != nil {
				return err
			}

			existing, err := findVote(tx, userID, postID)
			if err != nil {
				return err
			}
			if existing == nil {
				result = &VoteResult{PostID: postID, Points: post.Points, VoteState: models.VoteNone, Outcome: OutcomeNone}
				return nil
			}

			if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).
				Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			delta := -existing.Value
			if err := addPoints(tx, postID, delta); err != nil {
				return err
			}
			result = &VoteResult{
				PostID:    postID,
				Points:    post.Points + delta,
				Delta:     delta,
				VoteState: models.VoteNone,
				Outcome:   OutcomeRetracted,
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapStorage("retract vote", err)
	}

	l.log.Debug("vote retracted",
		zap.Uint("user_id", userID),
		zap.Uint("post_id", postID),
		zap.String("outcome", string(result.Outcome)),
	)
	return result, nil
}

// requireUser rejects identities whose account no longer exists. The shared lock
// keeps the account from being deleted until the caller commits.
func requireUser(tx *gorm.DB, userID uint) error {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Select("id").
		Where("id = ?", userID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnauthorized
	}
	return err
}

// lockPost takes the row lock every vote mutation serializes on.
func lockPost(tx *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "author_id", "points").
		Where("id = ?", postID).
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func findVote(tx *gorm.DB, userID, postID uint) (*models.Vote, error) {
	var vote models.Vote
	err := tx.Where("user_id = ? AND post_id = ?", userID, postID).Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func addPoints(tx *gorm.DB, postID uint, delta int) error {
	if delta == 0 {
		return nil
	}
	return tx.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("points", gorm.Expr("points + ?", delta)).Error
}

// withConflictRetry runs fn again once when it fails on a write collision.
func withConflictRetry(log *zap.Logger, fn func() error) error {
	err := fn()
	if !isConflict(err) {
		return err
	}
	log.Debug("retrying after write conflict", zap.Error(err))
	err = fn()
	if isConflict(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// wrapStorage passes domain errors through untouched and labels storage failures.
func wrapStorage(op string, err error) error {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidationFailed):
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
