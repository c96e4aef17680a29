package repository

import (
	"context"
	"time"

	"projectflow-backend/internal/notification/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for in-app notification data access
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	// ListByUser returns a user's newest notifications first
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// MarkAsRead reports whether a notification owned by userID was found
	MarkAsRead(ctx context.Context, userID, id string) (bool, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new GORM-based NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	var notifications []*domain.Notification
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	// Already-read rows report zero affected rows on some drivers.
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}
