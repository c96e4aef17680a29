package domain

import (
	"time"

	authdomain "projectflow-backend/internal/auth/domain"
)

// Role is a member's level of control over a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// CanManage reports whether the role may edit the project and its members.
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// ProjectMember grants a user access to a project.
type ProjectMember struct {
	ID        string              `json:"id" gorm:"primaryKey"`
	ProjectID string              `json:"project_id" gorm:"uniqueIndex:idx_project_member;not null"`
	UserID    string              `json:"user_id" gorm:"uniqueIndex:idx_project_member;index;not null"`
	Role      Role                `json:"role" gorm:"not null;default:member"`
	JoinedAt  time.Time           `json:"joined_at"`
	Profile   *authdomain.Profile `json:"profile,omitempty" gorm:"-"`
}
