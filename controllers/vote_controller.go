package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lireddit/middleware"
	"github.com/cppla/lireddit/services"
	"github.com/cppla/lireddit/utils"
)

// VoteController exposes the vote ledger. Both endpoints answer with a VoteResult
// so clients can patch cached feed pages.
type VoteController struct {
	ledger *services.VoteLedger
}

// NewVoteController creates a VoteController.
func NewVoteController(ledger *services.VoteLedger) *VoteController {
	return &VoteController{ledger: ledger}
}

// Vote casts or flips the caller's vote.
func (v *VoteController) Vote(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		IsPositive *bool `json:"is_positive" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "is_positive is required")
		return
	}

	res, err := v.ledger.CastVote(ctx.Request.Context(), middleware.UserID(ctx), id, *req.IsPositive)
	if err != nil {
		respondError(ctx, err, 50030, "vote")
		return
	}
	utils.Success(ctx, res)
}

// Unvote retracts the caller's vote. Outcome "none" means there was nothing to retract.
func (v *VoteController) Unvote(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	res, err := v.ledger.RetractVote(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		respondError(ctx, err, 50031, "retract vote")
		return
	}
	utils.Success(ctx, res)
}
