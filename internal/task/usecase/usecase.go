package usecase

import (
	"context"

	notificationusecase "projectflow-backend/internal/notification/usecase"
	"projectflow-backend/internal/task/domain"
)

// TaskUsecase defines the interface for board and task business logic.
// userID is the authenticated caller; projects outside their membership
// behave as if they did not exist.
type TaskUsecase interface {
	// ListColumns returns the project's columns in order, each with its tasks in order
	ListColumns(ctx context.Context, userID, projectID string) ([]*domain.ColumnWithTasks, error)

	// CreateTask appends a task to the end of a column
	CreateTask(ctx context.Context, userID, columnID string, req TaskCreateRequest) (*domain.Task, error)

	// GetTask retrieves a task by ID
	GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error)

	// UpdateTask changes a task's fields; placement only changes through MoveTask
	UpdateTask(ctx context.Context, userID, taskID string, updates TaskUpdateRequest) (*domain.Task, error)

	// DeleteTask removes a task and its comments and closes the gap it leaves
	DeleteTask(ctx context.Context, userID, taskID string) error

	// MoveTask places a task at index in the target column, renumbering both columns
	MoveTask(ctx context.Context, userID, taskID, targetColumnID string, index int) (*domain.Task, error)

	// SetNotifier sets the notifier for assignment notifications
	SetNotifier(notifier notificationusecase.Notifier)
}

// TaskCreateRequest represents the fields accepted when creating a task
type TaskCreateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
}

// TaskUpdateRequest represents the fields that can be updated. An empty
// string clears description, due date and assignee.
type TaskUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
}

// MoveRequest is the body of a move call
type MoveRequest struct {
	ColumnID string `json:"column_id" binding:"required"`
	Index    *int   `json:"index" binding:"required"`
}
