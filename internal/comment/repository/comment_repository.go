package repository

import (
	"context"
	"errors"
	"time"

	"projectflow-backend/internal/comment/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	FindByID(ctx context.Context, id string) (*domain.Comment, error)
	// ListByTask returns a task's comments oldest first
	ListByTask(ctx context.Context, taskID string) ([]*domain.Comment, error)
	Delete(ctx context.Context, id string) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new GORM-based CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByTask(ctx context.Context, taskID string) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at ASC, id ASC").Find(&comments).Error
	return comments, err
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.Comment{}, "id = ?", id).Error
}
