package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	authDelivery "projectflow-backend/internal/auth/delivery"
	authUsecase "projectflow-backend/internal/auth/usecase"
	commentDelivery "projectflow-backend/internal/comment/delivery"
	commentUsecase "projectflow-backend/internal/comment/usecase"
	notificationDelivery "projectflow-backend/internal/notification/delivery"
	notificationUsecase "projectflow-backend/internal/notification/usecase"
	projectDelivery "projectflow-backend/internal/project/delivery"
	projectUsecase "projectflow-backend/internal/project/usecase"
	taskDelivery "projectflow-backend/internal/task/delivery"
	taskUsecase "projectflow-backend/internal/task/usecase"
	"projectflow-backend/pkg/config"
	"projectflow-backend/pkg/logger"
	"projectflow-backend/pkg/sse"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Usecases groups the business logic the HTTP layer serves
type Usecases struct {
	Auth         authUsecase.AuthUsecase
	Project      projectUsecase.ProjectUsecase
	Task         taskUsecase.TaskUsecase
	Comment      commentUsecase.CommentUsecase
	Notification notificationUsecase.NotificationUsecase
}

type Handler struct {
	usecases   Usecases
	sseManager *sse.Manager
	config     *config.Config

	authHandler         *authDelivery.AuthHandler
	projectHandler      *projectDelivery.ProjectHandler
	taskHandler         *taskDelivery.TaskHandler
	commentHandler      *commentDelivery.CommentHandler
	notificationHandler *notificationDelivery.NotificationHandler
}

func NewHandler(usecases Usecases, sseManager *sse.Manager, cfg *config.Config) *Handler {
	return &Handler{
		usecases:            usecases,
		sseManager:          sseManager,
		config:              cfg,
		authHandler:         authDelivery.NewAuthHandler(usecases.Auth),
		projectHandler:      projectDelivery.NewProjectHandler(usecases.Project),
		taskHandler:         taskDelivery.NewTaskHandler(usecases.Task),
		commentHandler:      commentDelivery.NewCommentHandler(usecases.Comment),
		notificationHandler: notificationDelivery.NewNotificationHandler(usecases.Notification),
	}
}

// Engine builds the gin engine with middleware and routes
func (h *Handler) Engine() *gin.Engine {
	if h.config.LogLevel != "debug" && h.config.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(), h.cors())

	h.SetupRoutes(r)
	return r
}

// Start serves HTTP on addr until ctx is done, then shuts down gracefully
func (h *Handler) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Server starting on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}

// cors allows configured origins, or any origin when none are configured
func (h *Handler) cors() gin.HandlerFunc {
	allowed := make(map[string]bool, len(h.config.CORSOrigins))
	for _, o := range h.config.CORSOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case origin == "" && len(allowed) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && (len(allowed) == 0 || allowed[origin]):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
