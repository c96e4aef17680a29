package delivery

import (
	"net/http"

	"projectflow-backend/internal/comment/usecase"
	"projectflow-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// CommentHandler handles comment HTTP requests
type CommentHandler struct {
	commentUsecase usecase.CommentUsecase
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentUsecase usecase.CommentUsecase) *CommentHandler {
	return &CommentHandler{commentUsecase: commentUsecase}
}

// CreateCommentRequest represents the request body for creating a comment
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// ListComments returns a task's comments
// GET /api/tasks/:id/comments
func (h *CommentHandler) ListComments(c *gin.Context) {
	comments, err := h.commentUsecase.ListComments(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// CreateComment adds a comment to a task
// POST /api/tasks/:id/comments
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	comment, err := h.commentUsecase.CreateComment(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment deletes the caller's comment
// DELETE /api/comments/:id
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	if err := h.commentUsecase.DeleteComment(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
