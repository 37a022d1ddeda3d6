package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/internal/service"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeError maps a service error onto a status and a JSON body. Server
// faults are logged and answered with a generic message.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_credentials",
			"message": "Invalid credentials",
		})
		return
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "server_error",
			"message": "Internal Server Error",
		})
		return
	}

	status, code := http.StatusInternalServerError, "server_error"
	switch apperror.Kind(appErr) {
	case apperror.ErrValidation:
		status, code = http.StatusBadRequest, "validation_error"
	case apperror.ErrDuplicate:
		status, code = http.StatusBadRequest, "duplicate_key"
	case apperror.ErrUnauthorized:
		status, code = http.StatusUnauthorized, "unauthorized"
	case apperror.ErrForbidden:
		status, code = http.StatusForbidden, "forbidden"
	case apperror.ErrNotFound:
		status, code = http.StatusNotFound, "not_found"
	}

	body := gin.H{"error": code, "message": appErr.Message}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	c.JSON(status, body)
}

// writeBadBody answers a request whose body could not be decoded.
func writeBadBody(c *gin.Context, err error) {
	logger.Log.Debug("Request body rejected",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	writeError(c, apperror.ValidationFailed("body", "Invalid request body"))
}

func userSummary(u *models.User) gin.H {
	return gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
	}
}

func authorView(u *models.User) gin.H {
	return gin.H{
		"id":       u.ID,
		"username": u.Username,
	}
}

// recipeView renders a recipe with its author resolved to {id, username}.
func recipeView(r *models.Recipe) gin.H {
	likes := r.LikedBy()
	return gin.H{
		"id":          r.ID,
		"title":       r.Title,
		"description": r.Description,
		"ingredients": nonNil(r.Ingredients),
		"steps":       nonNil(r.Steps),
		"images":      nonNil(r.Images),
		"cuisine":     r.Cuisine,
		"dietaryType": r.DietaryType,
		"prepTime":    r.PrepTime,
		"rating":      r.Rating,
		"createdBy":   authorView(&r.Author),
		"likes":       likes,
		"likesCount":  len(likes),
		"createdAt":   r.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt":   r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func recipeViews(recipes []models.Recipe) []gin.H {
	views := make([]gin.H, 0, len(recipes))
	for i := range recipes {
		views = append(views, recipeView(&recipes[i]))
	}
	return views
}

// commentView carries the author both as userId {id, username} and as a
// top-level username.
func commentView(cm *models.Comment) gin.H {
	return gin.H{
		"id":        cm.ID,
		"recipeId":  cm.RecipeID,
		"userId":    authorView(&cm.User),
		"username":  cm.User.Username,
		"text":      cm.Text,
		"createdAt": cm.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func commentViews(comments []models.Comment) []gin.H {
	views := make([]gin.H, 0, len(comments))
	for i := range comments {
		views = append(views, commentView(&comments[i]))
	}
	return views
}

func nonNil(list models.StringList) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func idList(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
