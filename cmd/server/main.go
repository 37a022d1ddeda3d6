package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Baaaki/flavorshare/internal/broker"
	"github.com/Baaaki/flavorshare/internal/config"
	"github.com/Baaaki/flavorshare/internal/database"
	"github.com/Baaaki/flavorshare/internal/handler"
	"github.com/Baaaki/flavorshare/internal/middleware"
	"github.com/Baaaki/flavorshare/internal/repository"
	"github.com/Baaaki/flavorshare/internal/service"
	"github.com/Baaaki/flavorshare/internal/storage"
	"github.com/Baaaki/flavorshare/internal/wal"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Init(!cfg.IsProduction()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Log.Info("Config loaded successfully",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.ServerPort),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Bool("uploads", cfg.UploadsEnabled()),
	)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis backs rate limiting and cross-node events. Without it the API
	// still serves every endpoint.
	var (
		events      broker.EventBroker = broker.NopBroker{}
		rateLimiter *middleware.RateLimiter
		eventsFeed  *handler.EventsHandler
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
		}

		events = broker.NewRedisEventBrokerWithClient(redisClient)
		if cfg.EventSpoolPath != "" {
			spool, err := wal.Open(cfg.EventSpoolPath)
			if err != nil {
				logger.Log.Fatal("Failed to open event spool", zap.Error(err))
			}
			defer spool.Close()

			outbox := wal.NewOutbox(events, spool)
			go outbox.Run(ctx, cfg.EventReplayInterval)
			events = outbox
		}
		rateLimiter = middleware.NewRateLimiter(redisClient, middleware.RateLimiterConfig{
			MaxRequests: cfg.RateLimitMaxRequests,
			Window:      cfg.RateLimitWindow,
			BlockTime:   cfg.RateLimitBlockTime,
		})
		eventsFeed = handler.NewEventsHandler(events, cfg.CORSOrigins)
	}

	userRepo := repository.NewUserRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry)
	recipeService := service.NewRecipeService(recipeRepo, userRepo, events)
	commentService := service.NewCommentService(commentRepo, recipeRepo, userRepo, events)
	favoriteService := service.NewFavoriteService(userRepo, recipeRepo)

	if cfg.UploadsEnabled() {
		images, err := storage.NewS3ImageStore(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.S3PublicBaseURL)
		if err != nil {
			logger.Log.Fatal("Failed to configure image storage", zap.Error(err))
		}
		recipeService.WithImageStore(images, cfg.MaxUploadBytes)
	}

	if eventsFeed != nil {
		go func() {
			if err := eventsFeed.Run(ctx); err != nil {
				logger.Log.Error("Event listener failed", zap.Error(err))
			}
		}()
	}

	router := handler.NewRouter(handler.RouterConfig{
		DB:              db,
		AuthService:     authService,
		RecipeService:   recipeService,
		CommentService:  commentService,
		FavoriteService: favoriteService,
		RateLimiter:     rateLimiter,
		Events:          eventsFeed,
		CORSOrigins:     cfg.CORSOrigins,
		Production:      cfg.IsProduction(),
		MaxUploadBytes:  cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("addr", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Log.Info("Server stopped")
}
