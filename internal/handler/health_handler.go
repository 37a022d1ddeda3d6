package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Baaaki/flavorshare/internal/database"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// GET /api/health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status, dbState, code := "OK", "up", http.StatusOK
	if err := database.Ping(ctx, h.db); err != nil {
		logger.Log.Error("Health check: database unreachable", zap.Error(err))
		status, dbState, code = "DOWN", "down", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbState,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
