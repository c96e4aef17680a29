// Package migrate creates and updates the database schema.
package migrate

import (
	authdomain "projectflow-backend/internal/auth/domain"
	commentdomain "projectflow-backend/internal/comment/domain"
	notificationdomain "projectflow-backend/internal/notification/domain"
	projectdomain "projectflow-backend/internal/project/domain"
	taskdomain "projectflow-backend/internal/task/domain"

	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&authdomain.Profile{},
		&authdomain.DeviceToken{},
		&projectdomain.Project{},
		&projectdomain.ProjectMember{},
		&projectdomain.Column{},
		&taskdomain.Task{},
		&commentdomain.Comment{},
		&notificationdomain.Notification{},
	}
}

// Run auto-migrates all models.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
