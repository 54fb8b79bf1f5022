package models

import "time"

// Vote values.
const (
	Upvote   = 1
	Downvote = -1
)

// Vote is one ledger row. The composite primary key allows a single row per
// (user, post); absence of a row means no vote.
type Vote struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"post_id"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoteState is how a user voted on a post.
type VoteState string

const (
	VoteNone VoteState = "none"
	VoteUp   VoteState = "up"
	VoteDown VoteState = "down"
)

// StateOf maps a stored value to a VoteState; zero means no row.
func StateOf(value int) VoteState {
	switch {
	case value > 0:
		return VoteUp
	case value < 0:
		return VoteDown
	default:
		return VoteNone
	}
}

// All lists every model for auto migration.
func All() []interface{} {
	return []interface{}{&User{}, &Post{}, &Vote{}}
}
