package usecase

import (
	"context"
	"regexp"
	"strings"

	authrepo "projectflow-backend/internal/auth/repository"
	"projectflow-backend/internal/project/domain"
	"projectflow-backend/internal/project/repository"
	"projectflow-backend/internal/realtime"
	"projectflow-backend/pkg/apperror"
	"projectflow-backend/pkg/keylock"

	log "github.com/sirupsen/logrus"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ProjectUsecase defines the interface for project and membership business logic
type ProjectUsecase interface {
	ListProjects(ctx context.Context, userID string) ([]*domain.Project, error)
	// CreateProject creates the project with its owner membership and default columns
	CreateProject(ctx context.Context, userID string, req ProjectRequest) (*ProjectWithColumns, error)
	GetProject(ctx context.Context, userID, projectID string) (*domain.Project, error)
	UpdateProject(ctx context.Context, userID, projectID string, req ProjectRequest) (*domain.Project, error)
	// DeleteProject removes the project and everything on its board; owner only
	DeleteProject(ctx context.Context, userID, projectID string) error

	ListMembers(ctx context.Context, userID, projectID string) ([]*domain.ProjectMember, error)
	AddMember(ctx context.Context, userID, projectID string, req MemberRequest) (*domain.ProjectMember, error)
	// RemoveMember removes a member; members may always remove themselves
	RemoveMember(ctx context.Context, userID, projectID, memberUserID string) error
}

// ProjectRequest carries create and update fields. Name is required on create.
type ProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// MemberRequest identifies the user to add by id or email
type MemberRequest struct {
	UserID string      `json:"user_id,omitempty"`
	Email  string      `json:"email,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// ProjectWithColumns is returned from CreateProject
type ProjectWithColumns struct {
	*domain.Project
	Columns []domain.Column `json:"columns"`
}

type projectUsecase struct {
	projectRepo repository.ProjectRepository
	profileRepo authrepo.ProfileRepository
	locks       *keylock.Map
	publisher   realtime.Publisher
}

// NewProjectUsecase creates a new instance of projectUsecase
func NewProjectUsecase(projectRepo repository.ProjectRepository, profileRepo authrepo.ProfileRepository, locks *keylock.Map, publisher realtime.Publisher) ProjectUsecase {
	return &projectUsecase{
		projectRepo: projectRepo,
		profileRepo: profileRepo,
		locks:       locks,
		publisher:   publisher,
	}
}

func (u *projectUsecase) ListProjects(ctx context.Context, userID string) ([]*domain.Project, error) {
	projects, err := u.projectRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperror.Store(err, "list projects")
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	return projects, nil
}

func (u *projectUsecase) CreateProject(ctx context.Context, userID string, req ProjectRequest) (*ProjectWithColumns, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, apperror.Validation("name is required")
	}
	project := &domain.Project{
		Name:        strings.TrimSpace(*req.Name),
		Description: trimmed(req.Description),
		OwnerID:     userID,
		Color:       domain.DefaultColor,
	}
	if req.Color != nil {
		if !colorPattern.MatchString(*req.Color) {
			return nil, apperror.Validation("color must be a hex value like %s", domain.DefaultColor)
		}
		project.Color = *req.Color
	}

	columns, err := u.projectRepo.CreateWithDefaults(ctx, project)
	if err != nil {
		return nil, apperror.Store(err, "create project")
	}

	log.WithFields(log.Fields{"project": project.ID, "owner": userID}).Info("[ProjectUsecase] project created")
	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityProject, realtime.OpCreate, project.ID, project.ID, userID))
	return &ProjectWithColumns{Project: project, Columns: columns}, nil
}

func (u *projectUsecase) GetProject(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	project, _, err := u.load(ctx, userID, projectID)
	return project, err
}

func (u *projectUsecase) UpdateProject(ctx context.Context, userID, projectID string, req ProjectRequest) (*domain.Project, error) {
	project, member, err := u.load(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !member.Role.CanManage() {
		return nil, apperror.Forbidden("only owners and admins can edit the project")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("name is required")
		}
		project.Name = name
	}
	if req.Description != nil {
		project.Description = trimmed(req.Description)
	}
	if req.Color != nil {
		if !colorPattern.MatchString(*req.Color) {
			return nil, apperror.Validation("color must be a hex value like %s", domain.DefaultColor)
		}
		project.Color = *req.Color
	}

	if err := u.projectRepo.Update(ctx, project); err != nil {
		return nil, apperror.Store(err, "update project")
	}
	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityProject, realtime.OpUpdate, project.ID, project.ID, userID))
	return project, nil
}

func (u *projectUsecase) DeleteProject(ctx context.Context, userID, projectID string) error {
	_, member, err := u.load(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if member.Role != domain.RoleOwner {
		return apperror.Forbidden("only the owner can delete the project")
	}

	unlock := u.locks.Lock(projectID)
	err = u.projectRepo.Delete(ctx, projectID)
	unlock()
	if err != nil {
		return apperror.Store(err, "delete project")
	}

	log.WithField("project", projectID).Info("[ProjectUsecase] project deleted")
	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityProject, realtime.OpDelete, projectID, projectID, userID))
	return nil
}

func (u *projectUsecase) ListMembers(ctx context.Context, userID, projectID string) ([]*domain.ProjectMember, error) {
	if _, _, err := u.load(ctx, userID, projectID); err != nil {
		return nil, err
	}
	members, err := u.projectRepo.ListMembers(ctx, projectID)
	if err != nil {
		return nil, apperror.Store(err, "list members")
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	profiles, err := u.profileRepo.FindByIDs(ctx, ids)
	if err != nil {
		log.WithError(err).Warn("[ProjectUsecase] Failed to load member profiles")
		return members, nil
	}
	for _, m := range members {
		m.Profile = profiles[m.UserID]
	}
	return members, nil
}

func (u *projectUsecase) AddMember(ctx context.Context, userID, projectID string, req MemberRequest) (*domain.ProjectMember, error) {
	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}
	if !role.Valid() || role == domain.RoleOwner {
		return nil, apperror.Validation("role must be admin or member")
	}
	if strings.TrimSpace(req.UserID) == "" && strings.TrimSpace(req.Email) == "" {
		return nil, apperror.Validation("user_id or email is required")
	}

	_, member, err := u.load(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !member.Role.CanManage() {
		return nil, apperror.Forbidden("only owners and admins can add members")
	}

	memberUserID := strings.TrimSpace(req.UserID)
	if memberUserID == "" {
		profile, err := u.profileRepo.FindByEmail(ctx, strings.TrimSpace(req.Email))
		if err != nil {
			return nil, apperror.Store(err, "load profile")
		}
		if profile == nil {
			return nil, apperror.NotFound("no user with email %s", req.Email)
		}
		memberUserID = profile.ID
	}

	added := &domain.ProjectMember{ProjectID: projectID, UserID: memberUserID, Role: role}
	err = u.projectRepo.Transaction(ctx, func(tx repository.ProjectRepository) error {
		existing, err := tx.FindMember(ctx, projectID, memberUserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Conflict("user is already a member of this project")
		}
		return tx.AddMember(ctx, added)
	})
	if err != nil {
		return nil, apperror.Store(err, "add member")
	}

	if profile, err := u.profileRepo.FindByID(ctx, memberUserID); err == nil {
		added.Profile = profile
	}
	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityProject, realtime.OpUpdate, projectID, projectID, userID))
	return added, nil
}

func (u *projectUsecase) RemoveMember(ctx context.Context, userID, projectID, memberUserID string) error {
	_, member, err := u.load(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if memberUserID != userID && !member.Role.CanManage() {
		return apperror.Forbidden("only owners and admins can remove members")
	}

	target, err := u.projectRepo.FindMember(ctx, projectID, memberUserID)
	if err != nil {
		return apperror.Store(err, "load membership")
	}
	if target == nil {
		return apperror.NotFound("member not found")
	}
	if target.Role == domain.RoleOwner {
		return apperror.Validation("the project owner cannot be removed")
	}

	if err := u.projectRepo.RemoveMember(ctx, projectID, memberUserID); err != nil {
		return apperror.Store(err, "remove member")
	}
	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityProject, realtime.OpUpdate, projectID, projectID, userID))
	return nil
}

// load returns a project and the caller's membership, or NotFound
func (u *projectUsecase) load(ctx context.Context, userID, projectID string) (*domain.Project, *domain.ProjectMember, error) {
	member, err := u.projectRepo.FindMember(ctx, projectID, userID)
	if err != nil {
		return nil, nil, apperror.Store(err, "load membership")
	}
	if member == nil {
		return nil, nil, apperror.NotFound("project not found")
	}
	project, err := u.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, nil, apperror.Store(err, "load project")
	}
	if project == nil {
		return nil, nil, apperror.NotFound("project not found")
	}
	return project, member, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	t := strings.TrimSpace(*value)
	if t == "" {
		return nil
	}
	return &t
}
