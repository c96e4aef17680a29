package delivery

import (
	"net/http"
	"strconv"

	"projectflow-backend/internal/notification/usecase"
	"projectflow-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// NotificationHandler handles in-app notification HTTP requests
type NotificationHandler struct {
	notificationUsecase usecase.NotificationUsecase
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationUsecase usecase.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{notificationUsecase: notificationUsecase}
}

// List returns the caller's notifications, newest first
// GET /api/notifications?limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifications, err := h.notificationUsecase.List(c.Request.Context(), c.GetString("userID"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// UnreadCount returns how many notifications are unread
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notificationUsecase.UnreadCount(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkAsRead marks one notification read
// PATCH /api/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	if err := h.notificationUsecase.MarkAsRead(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllAsRead marks every notification of the caller read
// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	updated, err := h.notificationUsecase.MarkAllAsRead(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
