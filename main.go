package main

import (
	"context"
	"os/signal"
	"syscall"

	api "projectflow-backend/cmd/api"
	authRepo "projectflow-backend/internal/auth/repository"
	authUsecase "projectflow-backend/internal/auth/usecase"
	commentRepo "projectflow-backend/internal/comment/repository"
	commentUsecase "projectflow-backend/internal/comment/usecase"
	"projectflow-backend/internal/migrate"
	notificationRepo "projectflow-backend/internal/notification/repository"
	notificationUsecase "projectflow-backend/internal/notification/usecase"
	projectRepo "projectflow-backend/internal/project/repository"
	projectUsecase "projectflow-backend/internal/project/usecase"
	"projectflow-backend/internal/realtime"
	taskRepo "projectflow-backend/internal/task/repository"
	"projectflow-backend/internal/task/scheduler"
	taskUsecase "projectflow-backend/internal/task/usecase"
	"projectflow-backend/pkg/config"
	"projectflow-backend/pkg/database"
	"projectflow-backend/pkg/fcm"
	"projectflow-backend/pkg/keylock"
	"projectflow-backend/pkg/logger"
	"projectflow-backend/pkg/sse"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := migrate.Run(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	profileRepository := authRepo.NewProfileRepository(db)
	deviceTokenRepository := authRepo.NewDeviceTokenRepository(db)
	projectRepository := projectRepo.NewProjectRepository(db)
	taskRepository := taskRepo.NewGormTaskRepository(db)
	commentRepository := commentRepo.NewCommentRepository(db)
	notificationRepository := notificationRepo.NewNotificationRepository(db)

	// Initialize SSE Manager
	sseManager := sse.NewManager()
	local := realtime.NewLocalPublisher(sseManager)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sseManager.Run()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sseManager.Stop()
		return nil
	})

	// Board events go through Redis when configured so every instance's
	// streams see them; the relay feeds local streams exactly once.
	var publishers realtime.MultiPublisher
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL:", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		bus := realtime.NewRedisBus(redisClient, cfg.RedisChannelPrefix)
		publishers = append(publishers, bus)
		g.Go(func() error {
			return bus.Relay(gctx, local)
		})
		log.Printf("Board events relayed through Redis (prefix %s)", cfg.RedisChannelPrefix)
	} else {
		publishers = append(publishers, local)
	}

	if cfg.GoogleProjectID != "" {
		pubsubPublisher, err := realtime.NewPubSubPublisher(ctx, cfg.GoogleProjectID, cfg.GooglePubSubTopic, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("Warning: Failed to initialize Pub/Sub publisher: %v", err)
		} else {
			defer pubsubPublisher.Close()
			publishers = append(publishers, pubsubPublisher)
		}
	}

	// Push notifications are optional
	var pusher notificationUsecase.Pusher
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("Warning: Failed to initialize FCM client: %v", err)
		} else {
			pusher = fcmClient
		}
	}

	locks := keylock.New()

	// Initialize use cases (dependency injection)
	authUc := authUsecase.NewAuthUsecase(profileRepository, deviceTokenRepository, cfg)
	notificationUc := notificationUsecase.NewNotificationUsecase(notificationRepository, deviceTokenRepository, pusher)
	projectUc := projectUsecase.NewProjectUsecase(projectRepository, profileRepository, locks, publishers)
	taskUc := taskUsecase.NewTaskUsecase(taskRepository, projectRepository, profileRepository, locks, publishers)
	taskUc.SetNotifier(notificationUc)
	commentUc := commentUsecase.NewCommentUsecase(commentRepository, taskRepository, projectRepository, profileRepository, locks, publishers, notificationUc)

	reminders := scheduler.NewTaskReminderScheduler(taskRepository, notificationUc, cfg.ReminderInterval, cfg.ReminderLead)
	reminders.Start()

	handler := api.NewHandler(api.Usecases{
		Auth:         authUc,
		Project:      projectUc,
		Task:         taskUc,
		Comment:      commentUc,
		Notification: notificationUc,
	}, sseManager, cfg)

	g.Go(func() error {
		return handler.Start(gctx, ":"+cfg.Port)
	})

	if err := g.Wait(); err != nil {
		log.Errorf("Server stopped with error: %v", err)
	}

	reminders.Stop()
	notificationUc.Wait()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Printf("Shutdown complete")
}
