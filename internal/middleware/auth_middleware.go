package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/policy"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	callerKey = "caller"

	// TokenCookie is the HTTP-only cookie set on register and login.
	TokenCookie = "token"
)

// TokenResolver turns a bearer credential into a caller.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*policy.Caller, error)
}

// RequireAuth rejects requests without a valid credential.
func RequireAuth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		caller, err := resolver.ResolveToken(c.Request.Context(), token)
		if err != nil {
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				logger.Log.Error("Failed to resolve credential",
					zap.String("path", c.FullPath()),
					zap.Error(err),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "server_error",
					"message": "Internal Server Error",
				})
				return
			}
			logger.Log.Debug("Rejected credential",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
			abortUnauthorized(c, appErr.Message)
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid credential is present and
// lets anonymous requests through. Handlers behind it decide whether the
// operation needs a caller, after checking the target exists.
func OptionalAuth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			caller, err := resolver.ResolveToken(c.Request.Context(), token)
			var appErr *apperror.AppError
			switch {
			case err == nil:
				c.Set(callerKey, caller)
			case errors.As(err, &appErr):
				logger.Log.Debug("Ignoring invalid credential",
					zap.String("ip", c.ClientIP()),
					zap.Error(err),
				)
			default:
				logger.Log.Error("Failed to resolve credential",
					zap.String("path", c.FullPath()),
					zap.Error(err),
				)
			}
		}
		c.Next()
	}
}

// CallerFrom returns the caller resolved for this request, or nil.
func CallerFrom(c *gin.Context) *policy.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*policy.Caller)
	return caller
}

// extractToken reads "Authorization: Bearer <token>", falling back to the
// token cookie.
func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
			return strings.TrimSpace(header[len(prefix):])
		}
		return ""
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": message,
	})
}
