package domain

import (
	"time"

	authdomain "projectflow-backend/internal/auth/domain"
)

// Comment is a discussion entry on a task; it is removed with its task.
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TaskID    string    `json:"task_id" gorm:"index;not null"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *authdomain.Profile `json:"user,omitempty" gorm:"-"`
}
