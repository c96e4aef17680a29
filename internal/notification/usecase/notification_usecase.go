package usecase

import (
	"context"
	"sync"

	authrepo "projectflow-backend/internal/auth/repository"
	"projectflow-backend/internal/notification/domain"
	"projectflow-backend/internal/notification/repository"
	"projectflow-backend/pkg/apperror"
	"projectflow-backend/pkg/fcm"

	log "github.com/sirupsen/logrus"
)

// DefaultListLimit caps List when the caller gives no limit.
const DefaultListLimit = 50

// Notifier records a notification for a user and pushes it to their devices.
// Delivery failures are logged.
type Notifier interface {
	Notify(ctx context.Context, notification *domain.Notification)
}

// Pusher sends a push message to device tokens and returns the tokens that
// should be forgotten.
type Pusher interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// NotificationUsecase defines the interface for notification business logic
type NotificationUsecase interface {
	Notifier

	List(ctx context.Context, userID string, limit int) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)

	// Wait blocks until in-flight pushes finish
	Wait()
}

type notificationUsecase struct {
	repo      repository.NotificationRepository
	tokenRepo authrepo.DeviceTokenRepository
	pusher    Pusher
	pushes    sync.WaitGroup
}

// NewNotificationUsecase creates a new instance of notificationUsecase.
// pusher may be nil when FCM is not configured.
func NewNotificationUsecase(repo repository.NotificationRepository, tokenRepo authrepo.DeviceTokenRepository, pusher Pusher) NotificationUsecase {
	return &notificationUsecase{
		repo:      repo,
		tokenRepo: tokenRepo,
		pusher:    pusher,
	}
}

func (u *notificationUsecase) Notify(ctx context.Context, n *domain.Notification) {
	if err := u.repo.Create(ctx, n); err != nil {
		log.WithError(err).Errorf("[Notification] Failed to save %s notification for user %s", n.Type, n.UserID)
		return
	}
	if u.pusher == nil || u.tokenRepo == nil {
		return
	}

	u.pushes.Add(1)
	go func() {
		defer u.pushes.Done()
		u.push(context.WithoutCancel(ctx), n)
	}()
}

func (u *notificationUsecase) push(ctx context.Context, n *domain.Notification) {
	tokens, err := u.tokenRepo.GetTokensByUserID(ctx, n.UserID)
	if err != nil {
		log.WithError(err).Errorf("[FCM] Error getting tokens for user %s", n.UserID)
		return
	}
	if len(tokens) == 0 {
		log.Debugf("[FCM] No tokens for user %s, skipping push", n.UserID)
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	body := ""
	if n.Message != nil {
		body = *n.Message
	}
	data := map[string]string{
		"type":            n.Type,
		"notification_id": n.ID,
	}
	for k, v := range n.Data {
		if s, ok := v.(string); ok {
			data[k] = s
		}
	}

	failedTokens, err := u.pusher.SendToDevices(ctx, tokenStrings, fcm.NotificationData{
		Title: n.Title,
		Body:  body,
		Data:  data,
		Link:  clickAction(n),
	})
	if err != nil {
		log.WithError(err).Errorf("[FCM] Error sending %s to user %s", n.Type, n.UserID)
		return
	}

	for _, token := range failedTokens {
		if err := u.tokenRepo.DeleteToken(ctx, token); err != nil {
			log.WithError(err).Warn("[FCM] Failed to delete rejected token")
		}
	}
}

func (u *notificationUsecase) Wait() {
	u.pushes.Wait()
}

func (u *notificationUsecase) List(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultListLimit
	}
	notifications, err := u.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperror.Store(err, "list notifications")
	}
	return notifications, nil
}

func (u *notificationUsecase) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := u.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperror.Store(err, "count notifications")
	}
	return count, nil
}

func (u *notificationUsecase) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	found, err := u.repo.MarkAsRead(ctx, userID, notificationID)
	if err != nil {
		return apperror.Store(err, "mark notification read")
	}
	if !found {
		return apperror.NotFound("notification not found")
	}
	return nil
}

func (u *notificationUsecase) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	n, err := u.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, apperror.Store(err, "mark notifications read")
	}
	return n, nil
}

// clickAction returns the app path a notification opens
func clickAction(n *domain.Notification) string {
	if projectID, ok := n.Data["project_id"].(string); ok && projectID != "" {
		return "/projects/" + projectID
	}
	return "/notifications"
}
