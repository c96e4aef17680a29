package delivery

import (
	"net/http"

	"projectflow-backend/internal/task/usecase"
	"projectflow-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles board and task HTTP requests
type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskUsecase usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{
		taskUsecase: taskUsecase,
	}
}

// ListColumns returns the board of a project
// GET /api/projects/:id/columns
func (h *TaskHandler) ListColumns(c *gin.Context) {
	columns, err := h.taskUsecase.ListColumns(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

// CreateTask appends a task to a column
// POST /api/columns/:id/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req usecase.TaskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	task, err := h.taskUsecase.CreateTask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GetTask returns a specific task
// GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskUsecase.GetTask(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask updates a task's fields
// PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req usecase.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	task, err := h.taskUsecase.UpdateTask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask deletes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskUsecase.DeleteTask(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// MoveTask places a task at an index of a column
// POST /api/tasks/:id/move
func (h *TaskHandler) MoveTask(c *gin.Context) {
	var req usecase.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	task, err := h.taskUsecase.MoveTask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.ColumnID, *req.Index)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
