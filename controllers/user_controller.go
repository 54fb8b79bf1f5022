package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lireddit/middleware"
	"github.com/cppla/lireddit/models"
	"github.com/cppla/lireddit/services"
	"github.com/cppla/lireddit/utils"
)

// UserController exposes public user lookups and account deletion.
type UserController struct {
	users *services.UserService
}

// NewUserController creates a UserController.
func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// ListUsers returns public user records.
func (u *UserController) ListUsers(ctx *gin.Context) {
	users, err := u.users.ListUsers(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, 50010, "list users")
		return
	}
	items := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		items = append(items, user.Public())
	}
	utils.Success(ctx, gin.H{"items": items})
}

// GetUser returns public user info by numeric id, or by username for any other value.
func (u *UserController) GetUser(ctx *gin.Context) {
	key := strings.TrimSpace(ctx.Param("id"))
	var (
		user *models.User
		err  error
	)
	if id, perr := strconv.ParseUint(key, 10, 64); perr == nil && id > 0 {
		user, err = u.users.GetUser(ctx.Request.Context(), uint(id))
	} else {
		user, err = u.users.GetUserByUsername(ctx.Request.Context(), key)
	}
	if err != nil {
		respondError(ctx, err, 50011, "load user")
		return
	}
	utils.Success(ctx, gin.H{"user": user.Public()})
}

// DeleteUser deletes the caller's own account with everything it owns.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := u.users.DeleteUser(ctx.Request.Context(), middleware.UserID(ctx), id); err != nil {
		respondError(ctx, err, 50012, "delete user")
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}
