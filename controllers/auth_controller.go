package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lireddit/middleware"
	"github.com/cppla/lireddit/models"
	"github.com/cppla/lireddit/services"
	"github.com/cppla/lireddit/utils"
)

// AuthController handles registration, login and logout.
type AuthController struct {
	users     *services.UserService
	blacklist *utils.TokenBlacklist
	tokenTTL  time.Duration
}

// NewAuthController creates an AuthController.
func NewAuthController(users *services.UserService, blacklist *utils.TokenBlacklist, tokenTTL time.Duration) *AuthController {
	if tokenTTL <= 0 {
		tokenTTL = 72 * time.Hour
	}
	return &AuthController{users: users, blacklist: blacklist, tokenTTL: tokenTTL}
}

// Register creates an account and logs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(ctx, err, 50002, "register")
		return
	}
	a.issueToken(ctx, user)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		UsernameOrEmail string `json:"username_or_email"`
		Username        string `json:"username"`
		Password        string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	identifier := req.UsernameOrEmail
	if identifier == "" {
		identifier = req.Username
	}

	user, err := a.users.Login(ctx.Request.Context(), identifier, req.Password)
	if err != nil {
		respondError(ctx, err, 50003, "login")
		return
	}
	a.issueToken(ctx, user)
}

func (a *AuthController) issueToken(ctx *gin.Context, user *models.User) {
	token, err := utils.GenerateToken(user.ID, user.Username, a.tokenTTL)
	if err != nil {
		utils.Sugar.Errorw("token generation failed", "user_id", user.ID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	tokenID := ctx.GetString(middleware.ContextTokenIDKey)
	expiresAt := time.Now().Add(a.tokenTTL)
	if v, ok := ctx.Get(middleware.ContextTokenExpiryKey); ok {
		if t, ok := v.(time.Time); ok {
			expiresAt = t
		}
	}
	a.blacklist.Revoke(ctx.Request.Context(), tokenID, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	user, err := a.users.GetUser(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		respondError(ctx, err, 50005, "load profile")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}
