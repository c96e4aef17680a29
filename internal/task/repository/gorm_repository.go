package repository

import (
	"context"
	"errors"
	"time"

	commentdomain "projectflow-backend/internal/comment/domain"
	projectdomain "projectflow-backend/internal/project/domain"
	"projectflow-backend/internal/task/domain"
	"projectflow-backend/internal/task/ordering"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormTaskRepository implements TaskRepository using GORM
type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based TaskRepository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Transaction(ctx context.Context, fn func(tx TaskRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTaskRepository{db: tx})
	})
}

// LockProject issues SELECT ... FOR UPDATE on the project row; dialects
// without row locks ignore the clause
func (r *gormTaskRepository) LockProject(ctx context.Context, projectID string) error {
	var ids []string
	return r.db.WithContext(ctx).
		Model(&projectdomain.Project{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", projectID).
		Pluck("id", &ids).Error
}

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *gormTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("column_id, position, created_at, id").
		Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) ListSlots(ctx context.Context, columnID string) ([]ordering.Slot, error) {
	var tasks []*domain.Task
	err := r.db.WithContext(ctx).
		Select("id", "column_id", "position", "created_at").
		Where("column_id = ?", columnID).
		Order("position, created_at, id").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	slots := make([]ordering.Slot, len(tasks))
	for i, t := range tasks {
		slots[i] = t.Slot()
	}
	return slots, nil
}

func (r *gormTaskRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	delete(fields, "position")
	delete(fields, "column_id")
	fields["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).Updates(fields).Error
}

func (r *gormTaskRepository) ApplySlots(ctx context.Context, slots []ordering.Slot) error {
	now := time.Now().UTC()
	for _, s := range slots {
		err := r.db.WithContext(ctx).
			Model(&domain.Task{}).
			Where("id = ?", s.ID).
			Updates(map[string]interface{}{
				"column_id":  s.ColumnID,
				"position":   s.Position,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *gormTaskRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("task_id = ?", id).Delete(&commentdomain.Comment{}).Error; err != nil {
		return err
	}
	return db.Delete(&domain.Task{}, "id = ?", id).Error
}

func (r *gormTaskRepository) FindDueForReminder(ctx context.Context, deadline time.Time) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND due_date <= ? AND reminder_sent = ? AND assignee_id IS NOT NULL", deadline, false).
		Where("column_id NOT IN (?)", r.db.Model(&projectdomain.Column{}).Select("id").
			Where("position = (SELECT MAX(c2.position) FROM columns c2 WHERE c2.project_id = columns.project_id)")).
		Order("due_date ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) MarkReminderSent(ctx context.Context, id string, dueDate time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND due_date = ? AND reminder_sent = ?", id, dueDate, false).
		Updates(map[string]interface{}{
			"reminder_sent": true,
			"updated_at":    time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}
