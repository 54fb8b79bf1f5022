package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/lireddit/models"
)

const reconcileBatchSize = 200

// ScoreAggregator answers "how many points" and "how did this user vote".
type ScoreAggregator struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewScoreAggregator creates an aggregator over db.
func NewScoreAggregator(db *gorm.DB, logger *zap.Logger) *ScoreAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreAggregator{db: db, log: logger}
}

// PointsFor returns the stored counter for a post.
func (a *ScoreAggregator) PointsFor(ctx context.Context, postID uint) (int, error) {
	var post models.Post
	err := a.db.WithContext(ctx).Select("id", "points").Where("id = ?", postID).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load points: %w", err)
	}
	return post.Points, nil
}

// LedgerPoints sums the vote rows for a post. Zero when nobody voted.
func (a *ScoreAggregator) LedgerPoints(ctx context.Context, postID uint) (int, error) {
	return sumVotes(a.db.WithContext(ctx), postID)
}

// VoteStateFor reports the user's vote on a post. Anonymous viewers get VoteNone.
func (a *ScoreAggregator) VoteStateFor(ctx context.Context, userID, postID uint) (models.VoteState, error) {
	if userID == 0 {
		return models.VoteNone, nil
	}
	vote, err := findVote(a.db.WithContext(ctx), userID, postID)
	if err != nil {
		return models.VoteNone, fmt.Errorf("load vote state: %w", err)
	}
	if vote == nil {
		return models.VoteNone, nil
	}
	return models.StateOf(vote.Value), nil
}

// VoteStatesFor loads the user's votes for a page of posts in one query. Every
// requested id is present in the result.
func (a *ScoreAggregator) VoteStatesFor(ctx context.Context, userID uint, postIDs []uint) (map[uint]models.VoteState, error) {
	states := make(map[uint]models.VoteState, len(postIDs))
	for _, id := range postIDs {
		states[id] = models.VoteNone
	}
	if userID == 0 || len(postIDs) == 0 {
		return states, nil
	}

	var votes []models.Vote
	if err := a.db.WithContext(ctx).
		Select("post_id", "value").
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("load vote states: %w", err)
	}
	for _, v := range votes {
		states[v.PostID] = models.StateOf(v.Value)
	}
	return states, nil
}

// Drift is a post whose counter disagreed with its ledger.
type Drift struct {
	PostID uint `json:"post_id"`
	Stored int  `json:"stored"`
	Ledger int  `json:"ledger"`
}

// ReconcileReport summarizes a full reconciliation pass.
type ReconcileReport struct {
	Checked  int     `json:"checked"`
	Repaired []Drift `json:"repaired"`
}

// Reconcile recomputes one post's counter from the ledger under the post row lock.
// It returns the drift it repaired, or nil when the counter was already right.
func (a *ScoreAggregator) Reconcile(ctx context.Context, postID uint) (*Drift, error) {
	var drift *Drift
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		sum, err := sumVotes(tx, postID)
		if err != nil {
			return err
		}
		if sum == post.Points {
			return nil
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("points", sum).Error; err != nil {
			return err
		}
		drift = &Drift{PostID: postID, Stored: post.Points, Ledger: sum}
		return nil
	})
	if err != nil {
		return nil, wrapStorage("reconcile post", err)
	}
	if drift != nil {
		a.log.Warn("points counter drift repaired",
			zap.Uint("post_id", drift.PostID),
			zap.Int("stored", drift.Stored),
			zap.Int("ledger", drift.Ledger),
		)
	}
	return drift, nil
}

// ReconcileAll walks every post by ascending id and repairs drifted counters.
func (a *ScoreAggregator) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{Repaired: []Drift{}}
	var lastID uint
	for {
		var ids []uint
		if err := a.db.WithContext(ctx).Model(&models.Post{}).
			Where("id > ?", lastID).
			Order("id ASC").
			Limit(reconcileBatchSize).
			Pluck("id", &ids).Error; err != nil {
			return report, fmt.Errorf("list posts: %w", err)
		}
		if len(ids) == 0 {
			return report, nil
		}
		for _, id := range ids {
			drift, err := a.Reconcile(ctx, id)
			if errors.Is(err, ErrNotFound) {
				// deleted mid-walk
				continue
			}
			if err != nil {
				return report, err
			}
			report.Checked++
			if drift != nil {
				report.Repaired = append(report.Repaired, *drift)
			}
		}
		lastID = ids[len(ids)-1]
	}
}

func sumVotes(tx *gorm.DB, postID uint) (int, error) {
	var sum int64
	if err := tx.Model(&models.Vote{}).
		Where("post_id = ?", postID).
		Select("COALESCE(SUM(value), 0)").
		Row().Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum votes: %w", err)
	}
	return int(sum), nil
}
