package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/middleware"
	"github.com/Baaaki/flavorshare/internal/policy"
	"github.com/Baaaki/flavorshare/internal/query"
	"github.com/Baaaki/flavorshare/internal/service"
	"github.com/gin-gonic/gin"
)

type RecipeHandler struct {
	recipeService  *service.RecipeService
	maxUploadBytes int64
}

func NewRecipeHandler(recipeService *service.RecipeService, maxUploadBytes int64) *RecipeHandler {
	return &RecipeHandler{
		recipeService:  recipeService,
		maxUploadBytes: maxUploadBytes,
	}
}

// POST /api/recipes
func (h *RecipeHandler) Create(c *gin.Context) {
	var req service.RecipeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c, err)
		return
	}

	recipe, err := h.recipeService.Create(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Recipe created successfully",
		"recipe":  recipeView(recipe),
	})
}

// GET /api/recipes?search=&cuisine=&dietaryType=&prepTime=&sortBy=
func (h *RecipeHandler) List(c *gin.Context) {
	q, err := query.Parse(c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}

	recipes, err := h.recipeService.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipes": recipeViews(recipes)})
}

// GET /api/recipes/:id
func (h *RecipeHandler) Get(c *gin.Context) {
	recipe, err := h.recipeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipe": recipeView(recipe)})
}

// PUT /api/recipes/:id
func (h *RecipeHandler) Update(c *gin.Context) {
	caller := middleware.CallerFrom(c)

	var patch service.RecipePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		// A missing recipe or a non-owner still outranks a bad body.
		if accessErr := h.recipeService.CheckAccess(c.Request.Context(), caller, policy.ActionUpdateRecipe, c.Param("id")); accessErr != nil {
			writeError(c, accessErr)
			return
		}
		writeBadBody(c, err)
		return
	}

	recipe, err := h.recipeService.Update(c.Request.Context(), caller, c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Recipe updated successfully",
		"recipe":  recipeView(recipe),
	})
}

// DELETE /api/recipes/:id
func (h *RecipeHandler) Delete(c *gin.Context) {
	if err := h.recipeService.Delete(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted successfully"})
}

// POST /api/recipes/:id/like
func (h *RecipeHandler) Like(c *gin.Context) {
	state, err := h.recipeService.Like(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// DELETE /api/recipes/:id/like
func (h *RecipeHandler) Unlike(c *gin.Context) {
	state, err := h.recipeService.Unlike(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// POST /api/recipes/:id/images (multipart field "image")
func (h *RecipeHandler) UploadImage(c *gin.Context) {
	ctx := c.Request.Context()
	caller := middleware.CallerFrom(c)
	id := c.Param("id")

	// Resolve access before reading the upload.
	if err := h.recipeService.CheckAccess(ctx, caller, policy.ActionUpdateRecipe, id); err != nil {
		writeError(c, err)
		return
	}

	// Multipart framing needs some room above the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+64<<10)

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, apperror.ValidationFailed("image", fmt.Sprintf("image must be at most %d bytes", h.maxUploadBytes)))
			return
		}
		writeError(c, apperror.ValidationFailed("image", "image file is required"))
		return
	}
	if file.Size > h.maxUploadBytes {
		writeError(c, apperror.ValidationFailed("image", fmt.Sprintf("image must be at most %d bytes", h.maxUploadBytes)))
		return
	}

	f, err := file.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		writeError(c, err)
		return
	}

	recipe, err := h.recipeService.AddImage(ctx, caller, id, data)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Image uploaded successfully",
		"recipe":  recipeView(recipe),
	})
}
