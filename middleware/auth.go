package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lireddit/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextTokenIDKey stores the token jti so logout can revoke it.
	ContextTokenIDKey = "token_id"
	// ContextTokenExpiryKey stores the token expiry time.
	ContextTokenExpiryKey = "token_expires_at"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired(blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		if blacklist.IsRevoked(ctx.Request.Context(), claims.ID) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		setIdentity(ctx, claims)
		ctx.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and otherwise lets
// the request through anonymously. Feed reads use it to fill in the viewer's vote state.
func OptionalAuth(blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if tokenString, ok := bearerToken(ctx.GetHeader("Authorization")); ok {
			claims, err := utils.ParseToken(tokenString)
			if err == nil && !blacklist.IsRevoked(ctx.Request.Context(), claims.ID) {
				setIdentity(ctx, claims)
			}
		}
		ctx.Next()
	}
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(ctx *gin.Context) uint {
	v, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func setIdentity(ctx *gin.Context, claims *utils.Claims) {
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextTokenIDKey, claims.ID)
	if claims.ExpiresAt != nil {
		ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
	} else {
		ctx.Set(ContextTokenExpiryKey, time.Now().Add(time.Hour))
	}
}
