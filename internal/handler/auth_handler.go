package handler

import (
	"net/http"

	"github.com/Baaaki/flavorshare/internal/middleware"
	"github.com/Baaaki/flavorshare/internal/service"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService   *service.AuthService
	secureCookies bool
}

// NewAuthHandler builds the auth endpoints. secureCookies marks the token
// cookie HTTPS-only and should be set in production.
func NewAuthHandler(authService *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		secureCookies: secureCookies,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c, err)
		return
	}

	logger.Log.Info("User registration attempt",
		zap.String("username", req.Username),
		zap.String("ip", c.ClientIP()),
	)

	user, token, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setTokenCookie(c, token)
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    userSummary(user),
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c, err)
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logger.Log.Warn("Login failed",
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	h.setTokenCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    userSummary(user),
	})
}

// POST /api/auth/logout clears the token cookie. Bearer tokens stay valid
// until they expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GET /api/auth/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	caller := middleware.CallerFrom(c)

	profile, err := h.authService.GetProfile(c.Request.Context(), caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	u := profile.User
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":           u.ID,
			"username":     u.Username,
			"email":        u.Email,
			"profileImage": u.ProfileImage,
			"favorites":    idList(profile.Favorites),
			"createdAt":    u.CreatedAt,
			"updatedAt":    u.UpdatedAt,
		},
	})
}

// PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	caller := middleware.CallerFrom(c)

	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c, err)
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), caller.UserID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    userSummary(user),
	})
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		middleware.TokenCookie,
		token,
		int(h.authService.TokenTTL().Seconds()),
		"/",
		"",
		h.secureCookies,
		true,
	)
}
