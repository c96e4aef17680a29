package repository

import (
	"context"
	"time"

	"projectflow-backend/internal/task/domain"
	"projectflow-backend/internal/task/ordering"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Transaction runs fn against a repository bound to one database transaction
	Transaction(ctx context.Context, fn func(tx TaskRepository) error) error

	// LockProject holds the project row until the transaction ends so writers
	// on other instances serialize
	LockProject(ctx context.Context, projectID string) error

	// Create inserts a new task
	Create(ctx context.Context, task *domain.Task) error

	// FindByID finds a task by its ID
	FindByID(ctx context.Context, id string) (*domain.Task, error)

	// ListByProject returns every task of a project in one statement, ordered
	// by column, position, creation time and id
	ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error)

	// ListSlots returns the ordering coordinates of one column's tasks
	ListSlots(ctx context.Context, columnID string) ([]ordering.Slot, error)

	// UpdateFields writes the given non-placement columns of a task
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error

	// ApplySlots persists the column and position of every slot
	ApplySlots(ctx context.Context, slots []ordering.Slot) error

	// Delete removes a task together with its comments
	Delete(ctx context.Context, id string) error

	// FindDueForReminder finds assigned tasks due before the deadline whose
	// reminder is unsent, skipping each project's last column
	FindDueForReminder(ctx context.Context, deadline time.Time) ([]*domain.Task, error)

	// MarkReminderSent marks a task's reminder as sent if its due date is
	// still dueDate and no reminder was sent yet. It reports whether the row
	// was claimed.
	MarkReminderSent(ctx context.Context, id string, dueDate time.Time) (bool, error)
}
