package handler

import (
	"net/http"

	"github.com/Baaaki/flavorshare/internal/middleware"
	"github.com/Baaaki/flavorshare/internal/service"
	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// POST /api/recipes/:id/comments
func (h *CommentHandler) Add(c *gin.Context) {
	var req service.CommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		// An empty comment runs the existence and auth checks first and then
		// fails validation.
		req = service.CommentInput{}
	}

	comment, err := h.commentService.Add(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Comment added successfully",
		"comment": commentView(comment),
	})
}

// GET /api/recipes/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.commentService.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": commentViews(comments)})
}
