package delivery

import (
	"net/http"

	"projectflow-backend/internal/project/usecase"
	"projectflow-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProjectHandler handles project and membership HTTP requests
type ProjectHandler struct {
	projectUsecase usecase.ProjectUsecase
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projectUsecase usecase.ProjectUsecase) *ProjectHandler {
	return &ProjectHandler{projectUsecase: projectUsecase}
}

// ListProjects returns the caller's projects, newest first
// GET /api/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projectUsecase.ListProjects(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// CreateProject creates a project with the default columns
// POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req usecase.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	project, err := h.projectUsecase.CreateProject(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// GetProject returns a project
// GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectUsecase.GetProject(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// UpdateProject edits name, description or color
// PUT /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req usecase.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	project, err := h.projectUsecase.UpdateProject(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject deletes a project and its board
// DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projectUsecase.DeleteProject(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// ListMembers returns the project's members
// GET /api/projects/:id/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	members, err := h.projectUsecase.ListMembers(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMember adds a user to the project
// POST /api/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req usecase.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	member, err := h.projectUsecase.AddMember(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// RemoveMember removes a user from the project
// DELETE /api/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	err := h.projectUsecase.RemoveMember(c.Request.Context(), c.GetString("userID"), c.Param("id"), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}
