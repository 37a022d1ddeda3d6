package handler

import (
	"net/http"
	"time"

	"github.com/Baaaki/flavorshare/internal/middleware"
	"github.com/Baaaki/flavorshare/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// maxBodyBytes caps JSON request bodies. Image uploads set their own limit.
const maxBodyBytes = 10 << 20

// RouterConfig carries everything the HTTP surface is built from. Optional
// parts (RateLimiter, Events, image uploads) are left out when nil.
type RouterConfig struct {
	DB              *gorm.DB
	AuthService     *service.AuthService
	RecipeService   *service.RecipeService
	CommentService  *service.CommentService
	FavoriteService *service.FavoriteService

	RateLimiter    *middleware.RateLimiter
	Events         *EventsHandler
	CORSOrigins    []string
	Production     bool
	MaxUploadBytes int64
}

// NewRouter registers every route on a new gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.SecurityHeadersMiddleware(),
		middleware.HSTSMiddleware(cfg.Production),
	)
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	authHandler := NewAuthHandler(cfg.AuthService, cfg.Production)
	recipeHandler := NewRecipeHandler(cfg.RecipeService, cfg.MaxUploadBytes)
	commentHandler := NewCommentHandler(cfg.CommentService)
	favoriteHandler := NewFavoriteHandler(cfg.FavoriteService)
	healthHandler := NewHealthHandler(cfg.DB)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/health", healthHandler.Check)
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware())
	}
	api.Use(limitBody(maxBodyBytes))

	requireAuth := middleware.RequireAuth(cfg.AuthService)
	optionalAuth := middleware.OptionalAuth(cfg.AuthService)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/profile", requireAuth, authHandler.GetProfile)
		auth.PUT("/profile", requireAuth, authHandler.UpdateProfile)
		auth.GET("/favorites", requireAuth, favoriteHandler.List)
		auth.POST("/favorites/:recipeId", requireAuth, favoriteHandler.Add)
		auth.DELETE("/favorites/:recipeId", requireAuth, favoriteHandler.Remove)
	}

	// Mutations on an existing recipe resolve the caller optionally so a
	// missing recipe reports 404 before authentication is required.
	recipes := api.Group("/recipes")
	{
		recipes.GET("", recipeHandler.List)
		recipes.POST("", requireAuth, recipeHandler.Create)
		recipes.GET("/:id", recipeHandler.Get)
		recipes.PUT("/:id", optionalAuth, recipeHandler.Update)
		recipes.DELETE("/:id", optionalAuth, recipeHandler.Delete)
		recipes.POST("/:id/like", optionalAuth, recipeHandler.Like)
		recipes.DELETE("/:id/like", optionalAuth, recipeHandler.Unlike)
		recipes.GET("/:id/comments", commentHandler.List)
		recipes.POST("/:id/comments", optionalAuth, commentHandler.Add)
		if cfg.RecipeService.UploadsEnabled() {
			recipes.POST("/:id/images", optionalAuth, recipeHandler.UploadImage)
		}
	}

	if cfg.Events != nil {
		api.GET("/events", optionalAuth, cfg.Events.HandleEvents)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Not Found - " + c.Request.URL.Path,
		})
	})

	return router
}

// limitBody caps request bodies; oversized JSON fails to decode.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
