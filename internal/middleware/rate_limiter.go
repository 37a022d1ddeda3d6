package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Baaaki/flavorshare/internal/metrics"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiterConfig defines rate limiting rules
type RateLimiterConfig struct {
	MaxRequests int           // Maximum requests allowed in the window
	Window      time.Duration // Time window (e.g., 15 minutes)
	BlockTime   time.Duration // How long to block after exceeding limit
}

// RateLimiter provides IP-based fixed-window rate limiting using Redis
type RateLimiter struct {
	redis  *redis.Client
	config RateLimiterConfig
}

func NewRateLimiter(redisClient *redis.Client, config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Middleware returns a Gin middleware function for rate limiting
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		result, err := rl.CheckLimit(c.Request.Context(), clientIP)
		if err != nil {
			// Fail open: a Redis outage must not take the API down.
			logger.Log.Warn("Rate limiter unavailable",
				zap.String("ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			metrics.RateLimitedTotal.Inc()
			logger.Log.Warn("Rate limit exceeded",
				zap.String("ip", clientIP),
				zap.Duration("retry_after", result.RetryAfter),
			)
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     "Too many requests from this IP, please try again later.",
				"retry_after": int(result.RetryAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}

// LimitResult is the outcome of one rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// CheckLimit counts a request from ip. Once the window's budget is spent the
// ip is blocked for BlockTime, or for the rest of the window when BlockTime
// is zero.
func (rl *RateLimiter) CheckLimit(ctx context.Context, ip string) (LimitResult, error) {
	blockKey := fmt.Sprintf("ratelimit:block:%s", ip)
	if ttl, err := rl.redis.TTL(ctx, blockKey).Result(); err != nil {
		return LimitResult{}, err
	} else if ttl > 0 {
		return LimitResult{Allowed: false, RetryAfter: ttl}, nil
	}

	key := fmt.Sprintf("ratelimit:%s", ip)

	// INCR + EXPIRE on the first hit gives a fixed window per ip.
	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return LimitResult{}, err
	}
	if count == 1 {
		if err := rl.redis.Expire(ctx, key, rl.config.Window).Err(); err != nil {
			return LimitResult{}, err
		}
	}

	if count <= int64(rl.config.MaxRequests) {
		return LimitResult{Allowed: true, Remaining: rl.config.MaxRequests - int(count)}, nil
	}

	retryAfter := rl.config.BlockTime
	if retryAfter > 0 {
		if err := rl.redis.Set(ctx, blockKey, 1, retryAfter).Err(); err != nil {
			return LimitResult{}, err
		}
	} else {
		ttl, err := rl.redis.TTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = rl.config.Window
		}
		retryAfter = ttl
	}
	return LimitResult{Allowed: false, RetryAfter: retryAfter}, nil
}
