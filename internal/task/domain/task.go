package domain

import (
	"fmt"
	"strings"
	"time"

	authdomain "projectflow-backend/internal/auth/domain"
	projectdomain "projectflow-backend/internal/project/domain"
	"projectflow-backend/internal/task/ordering"
)

// Priority represents task priority level
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority accepts the four known levels; empty means medium.
func ParsePriority(p string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(p))) {
	case "":
		return PriorityMedium, nil
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityUrgent:
		return PriorityUrgent, nil
	}
	return "", fmt.Errorf("invalid priority %q: must be one of low, medium, high, urgent", p)
}

// Task is a card on the board. Position is its vertical order within
// ColumnID and only changes through the reorder operations.
type Task struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	ColumnID     string     `json:"column_id" gorm:"index:idx_tasks_column_position;not null"`
	ProjectID    string     `json:"project_id" gorm:"index;not null"`
	Title        string     `json:"title" gorm:"not null"`
	Description  *string    `json:"description"`
	Position     int        `json:"position" gorm:"index:idx_tasks_column_position;not null"`
	Priority     Priority   `json:"priority" gorm:"not null;default:medium"`
	DueDate      *time.Time `json:"due_date" gorm:"index"`
	AssigneeID   *string    `json:"assignee_id" gorm:"index"`
	CreatedBy    string     `json:"created_by" gorm:"not null"`
	ReminderSent bool       `json:"-" gorm:"not null;default:false"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Assignee *authdomain.Profile `json:"assignee,omitempty" gorm:"-"`
}

// Slot returns the task's coordinates for the ordering planner.
func (t *Task) Slot() ordering.Slot {
	return ordering.Slot{ID: t.ID, ColumnID: t.ColumnID, Position: t.Position, Seq: t.CreatedAt.UnixNano()}
}

// ColumnWithTasks is one lane of a board listing.
type ColumnWithTasks struct {
	projectdomain.Column
	Tasks []*Task `json:"tasks"`
}
