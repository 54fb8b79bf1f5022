package services

import "github.com/cppla/lireddit/models"

// Outcome tells a client what a vote mutation did to the ledger.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeFlipped   Outcome = "flipped"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRetracted Outcome = "retracted"
	// OutcomeNone is returned when there was no vote to retract.
	OutcomeNone Outcome = "none"
)

// VoteResult is returned by every vote and unvote. It carries enough to patch a cached
// feed entry in place: the post's new total and the caller's new vote state.
type VoteResult struct {
	PostID    uint             `json:"post_id"`
	Points    int              `json:"points"`
	Delta     int              `json:"delta"`
	VoteState models.VoteState `json:"vote_state"`
	Outcome   Outcome          `json:"outcome"`
}

// Changed reports whether the mutation touched the ledger.
func (r VoteResult) Changed() bool {
	return r.Delta != 0
}

// PatchFeed applies a vote result to a cached page and reports whether a matching item was found.
func PatchFeed(items []FeedItem, result VoteResult) bool {
	for i := range items {
		if items[i].ID != result.PostID {
			continue
		}
		items[i].Points = result.Points
		items[i].VoteState = result.VoteState
		return true
	}
	return false
}
