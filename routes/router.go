package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/organizer/config"
	"github.com/cppla/organizer/controllers"
	"github.com/cppla/organizer/middleware"
	"github.com/cppla/organizer/services"
	"github.com/cppla/organizer/utils"
)

// maxBodyBytes bounds request bodies; post bodies may carry inline base64 files.
const maxBodyBytes = 30 << 20

// Dependencies are the collaborators the router hands to controllers and middleware.
type Dependencies struct {
	Config      config.AppConfig
	Logger      *zap.Logger
	Posts       *services.PostService
	Credentials *services.CredentialService
	Verifier    *middleware.IdentityVerifier
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// Credentials cannot be combined with a wildcard origin.
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.GET("/", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "Welcome to the Productivity Organizer API")
	})
	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	postController := controllers.NewPostController(deps.Posts, deps.Logger)
	authController := controllers.NewAuthController(deps.Credentials, deps.Logger)

	postsGroup := r.Group("/posts")
	postsGroup.Use(deps.Verifier.OptionalAuth())
	postsGroup.GET("/search", postController.SearchPosts)
	postsGroup.GET("", postController.ListUserPosts)
	postsGroup.GET("/feed", postController.ListPosts)
	postsGroup.GET("/:id", postController.GetPost)
	postsGroup.POST("", postController.CreatePost)
	postsGroup.PATCH("/:id", postController.UpdatePost)
	postsGroup.DELETE("/:id", postController.DeletePost)
	postsGroup.PATCH("/:id/likePost", postController.LikePost)
	postsGroup.POST("/:id/commentPost", postController.CommentPost)

	userGroup := r.Group("/user")
	userGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	userGroup.POST("/signin", authController.Signin)
	userGroup.POST("/signup", authController.Signup)
	userGroup.POST("/signout", authController.Signout)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Message(ctx, http.StatusNotFound, "route not found")
	})

	return r
}
