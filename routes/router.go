package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/lireddit/config"
	"github.com/cppla/lireddit/controllers"
	"github.com/cppla/lireddit/middleware"
	"github.com/cppla/lireddit/services"
	"github.com/cppla/lireddit/utils"
)

// SetupRouter wires routes with the cache backends chosen by configuration.
func SetupRouter(db *gorm.DB) *gin.Engine {
	return NewRouter(db, utils.NewCache(), utils.NewTokenBlacklist())
}

// NewRouter wires routes, middlewares, and controllers.
func NewRouter(db *gorm.DB, cache utils.Cache, blacklist *utils.TokenBlacklist) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file when GinPath is set
	gl := utils.Logger
	if cfg.GinPath != "" {
		if l, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			gl = l
		}
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	log := utils.Logger
	scores := services.NewScoreAggregator(db, log.Named("scores"))
	authors := services.NewAuthorCache(db, cache, time.Duration(cfg.AuthorCacheTTLSec)*time.Second, log.Named("authors"))
	feed := services.NewFeed(db, scores, authors, cfg.FeedMaxPageSize, log.Named("feed"))
	ledger := services.NewVoteLedger(db, log.Named("ledger"))
	posts := services.NewPostService(db, log.Named("posts"))
	users := services.NewUserService(db, authors, log.Named("users"))

	postController := controllers.NewPostController(feed, posts, cfg.FeedDefaultPageSize)
	voteController := controllers.NewVoteController(ledger)
	authController := controllers.NewAuthController(users, blacklist, time.Duration(cfg.TokenTTLHours)*time.Hour)
	userController := controllers.NewUserController(users)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRequired := middleware.AuthRequired(blacklist)
	limited := middleware.RateLimitMiddleware()

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.POST("/register", limited, authController.Register)
		auth.POST("/login", limited, authController.Login)
		auth.POST("/logout", authRequired, authController.Logout)
		auth.GET("/me", authRequired, authController.Me)

		public := api.Group("")
		public.Use(middleware.OptionalAuth(blacklist))
		public.GET("/posts", postController.ListPosts)
		public.GET("/posts/:id", postController.GetPost)
		public.GET("/users", userController.ListUsers)
		public.GET("/users/:id", userController.GetUser)

		protected := api.Group("")
		protected.Use(authRequired, limited)
		protected.POST("/posts", postController.CreatePost)
		protected.PUT("/posts/:id", postController.UpdatePost)
		protected.DELETE("/posts/:id", postController.DeletePost)
		protected.POST("/posts/:id/vote", voteController.Vote)
		protected.DELETE("/posts/:id/vote", voteController.Unvote)
		protected.DELETE("/users/:id", userController.DeleteUser)
	}

	return r
}
