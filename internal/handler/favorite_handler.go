package handler

import (
	"net/http"

	"github.com/Baaaki/flavorshare/internal/middleware"
	"github.com/Baaaki/flavorshare/internal/service"
	"github.com/gin-gonic/gin"
)

type FavoriteHandler struct {
	favoriteService *service.FavoriteService
}

func NewFavoriteHandler(favoriteService *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteService: favoriteService}
}

// GET /api/auth/favorites
func (h *FavoriteHandler) List(c *gin.Context) {
	recipes, err := h.favoriteService.List(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipeViews(recipes)})
}

// POST /api/auth/favorites/:recipeId
func (h *FavoriteHandler) Add(c *gin.Context) {
	ids, err := h.favoriteService.Add(c.Request.Context(), middleware.CallerFrom(c), c.Param("recipeId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Recipe added to favorites",
		"favorites": idList(ids),
	})
}

// DELETE /api/auth/favorites/:recipeId
func (h *FavoriteHandler) Remove(c *gin.Context) {
	ids, err := h.favoriteService.Remove(c.Request.Context(), middleware.CallerFrom(c), c.Param("recipeId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Recipe removed from favorites",
		"favorites": idList(ids),
	})
}
