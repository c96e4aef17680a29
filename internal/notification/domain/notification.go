package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types created by the service.
const (
	TypeTaskAssigned = "task_assigned"
	TypeCommentAdded = "comment_added"
	TypeTaskDue      = "task_due"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        string            `json:"id" gorm:"primaryKey"`
	UserID    string            `json:"user_id" gorm:"index:idx_notifications_user_created;not null"`
	Type      string            `json:"type" gorm:"not null"`
	Title     string            `json:"title" gorm:"not null"`
	Message   *string           `json:"message"`
	Read      bool              `json:"read" gorm:"not null;default:false"`
	Data      datatypes.JSONMap `json:"data"`
	CreatedAt time.Time         `json:"created_at" gorm:"index:idx_notifications_user_created"`
}
