package api

import (
	"net/http"

	"projectflow-backend/internal/auth/delivery"
	"projectflow-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

func (h *Handler) SetupRoutes(r *gin.Engine) {
	auth := delivery.AuthMiddleware(h.usecases.Auth)
	streamAuth := delivery.StreamAuthMiddleware(h.usecases.Auth)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Profile routes (protected)
		api.GET("/me", auth, h.authHandler.Me)
		api.PUT("/me", auth, h.authHandler.UpdateMe)

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(auth)
		{
			fcm.POST("/register", h.authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", h.authHandler.UnregisterFCMToken)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(auth)
		{
			projects.GET("", h.projectHandler.ListProjects)
			projects.POST("", h.projectHandler.CreateProject)
			projects.GET("/:id", h.projectHandler.GetProject)
			projects.PUT("/:id", h.projectHandler.UpdateProject)
			projects.DELETE("/:id", h.projectHandler.DeleteProject)
			projects.GET("/:id/columns", h.taskHandler.ListColumns)
			projects.GET("/:id/members", h.projectHandler.ListMembers)
			projects.POST("/:id/members", h.projectHandler.AddMember)
			projects.DELETE("/:id/members/:userId", h.projectHandler.RemoveMember)
		}

		// SSE stream; EventSource cannot set headers, so ?token= is accepted here only
		api.GET("/projects/:id/events", streamAuth, h.streamProjectEvents)

		// Board routes (protected)
		columns := api.Group("/columns")
		columns.Use(auth)
		{
			columns.POST("/:id/tasks", h.taskHandler.CreateTask)
		}

		tasks := api.Group("/tasks")
		tasks.Use(auth)
		{
			tasks.GET("/:id", h.taskHandler.GetTask)
			tasks.PUT("/:id", h.taskHandler.UpdateTask)
			tasks.DELETE("/:id", h.taskHandler.DeleteTask)
			tasks.POST("/:id/move", h.taskHandler.MoveTask)
			tasks.GET("/:id/comments", h.commentHandler.ListComments)
			tasks.POST("/:id/comments", h.commentHandler.CreateComment)
		}

		comments := api.Group("/comments")
		comments.Use(auth)
		{
			comments.DELETE("/:id", h.commentHandler.DeleteComment)
		}

		// Notification routes (protected)
		notifications := api.Group("/notifications")
		notifications.Use(auth)
		{
			notifications.GET("", h.notificationHandler.List)
			notifications.GET("/unread-count", h.notificationHandler.UnreadCount)
			notifications.PATCH("/:id/read", h.notificationHandler.MarkAsRead)
			notifications.POST("/read-all", h.notificationHandler.MarkAllAsRead)
		}
	}
}

// streamProjectEvents opens an SSE stream of a project's board events
func (h *Handler) streamProjectEvents(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := h.usecases.Project.GetProject(c.Request.Context(), c.GetString(delivery.ContextUserID), projectID); err != nil {
		response.Error(c, err)
		return
	}
	h.sseManager.ServeHTTP(c, projectID)
}
