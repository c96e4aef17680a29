package repository

import (
	"context"
	"errors"
	"time"

	commentdomain "projectflow-backend/internal/comment/domain"
	projectdomain "projectflow-backend/internal/project/domain"
	taskdomain "projectflow-backend/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectRepository defines the interface for project, member and column data access
type ProjectRepository interface {
	// Transaction runs fn against a repository bound to one database transaction
	Transaction(ctx context.Context, fn func(tx ProjectRepository) error) error

	// CreateWithDefaults inserts the project, its owner membership and the default columns
	CreateWithDefaults(ctx context.Context, project *projectdomain.Project) ([]projectdomain.Column, error)
	FindByID(ctx context.Context, id string) (*projectdomain.Project, error)
	// ListForUser returns projects the user belongs to, newest first
	ListForUser(ctx context.Context, userID string) ([]*projectdomain.Project, error)
	Update(ctx context.Context, project *projectdomain.Project) error
	// Delete removes the project with its columns, tasks, comments and members
	Delete(ctx context.Context, id string) error

	FindMember(ctx context.Context, projectID, userID string) (*projectdomain.ProjectMember, error)
	ListMembers(ctx context.Context, projectID string) ([]*projectdomain.ProjectMember, error)
	AddMember(ctx context.Context, member *projectdomain.ProjectMember) error
	RemoveMember(ctx context.Context, projectID, userID string) error

	// ListColumns returns the project's columns by position
	ListColumns(ctx context.Context, projectID string) ([]projectdomain.Column, error)
	FindColumn(ctx context.Context, id string) (*projectdomain.Column, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new GORM-based ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Transaction(ctx context.Context, fn func(tx ProjectRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&projectRepository{db: tx})
	})
}

func (r *projectRepository) CreateWithDefaults(ctx context.Context, project *projectdomain.Project) ([]projectdomain.Column, error) {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if project.Color == "" {
		project.Color = projectdomain.DefaultColor
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	columns := make([]projectdomain.Column, len(projectdomain.DefaultColumns))
	for i, name := range projectdomain.DefaultColumns {
		columns[i] = projectdomain.Column{
			ID:        uuid.New().String(),
			ProjectID: project.ID,
			Name:      name,
			Position:  i,
			CreatedAt: now,
		}
	}
	owner := &projectdomain.ProjectMember{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		UserID:    project.OwnerID,
		Role:      projectdomain.RoleOwner,
		JoinedAt:  now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		if err := tx.Create(owner).Error; err != nil {
			return err
		}
		return tx.Create(&columns).Error
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}

func (r *projectRepository) FindByID(ctx context.Context, id string) (*projectdomain.Project, error) {
	var project projectdomain.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) ListForUser(ctx context.Context, userID string) ([]*projectdomain.Project, error) {
	var projects []*projectdomain.Project
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&projectdomain.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) Update(ctx context.Context, project *projectdomain.Project) error {
	project.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Model(project).Select("name", "description", "color", "updated_at").Updates(project).Error
}

func (r *projectRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&taskdomain.Task{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&commentdomain.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&taskdomain.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&projectdomain.Column{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&projectdomain.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&projectdomain.Project{}, "id = ?", id).Error
	})
}

func (r *projectRepository) FindMember(ctx context.Context, projectID, userID string) (*projectdomain.ProjectMember, error) {
	var member projectdomain.ProjectMember
	err := r.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *projectRepository) ListMembers(ctx context.Context, projectID string) ([]*projectdomain.ProjectMember, error) {
	var members []*projectdomain.ProjectMember
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("joined_at ASC").Find(&members).Error
	return members, err
}

func (r *projectRepository) AddMember(ctx context.Context, member *projectdomain.ProjectMember) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *projectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	return r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&projectdomain.ProjectMember{}).Error
}

func (r *projectRepository) ListColumns(ctx context.Context, projectID string) ([]projectdomain.Column, error) {
	var columns []projectdomain.Column
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("position ASC").Find(&columns).Error
	return columns, err
}

func (r *projectRepository) FindColumn(ctx context.Context, id string) (*projectdomain.Column, error) {
	var column projectdomain.Column
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&column).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &column, nil
}
