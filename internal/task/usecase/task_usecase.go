package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	authrepo "projectflow-backend/internal/auth/repository"
	notificationdomain "projectflow-backend/internal/notification/domain"
	notificationusecase "projectflow-backend/internal/notification/usecase"
	projectrepo "projectflow-backend/internal/project/repository"
	"projectflow-backend/internal/realtime"
	"projectflow-backend/internal/task/domain"
	"projectflow-backend/internal/task/ordering"
	"projectflow-backend/internal/task/repository"
	"projectflow-backend/pkg/apperror"
	"projectflow-backend/pkg/keylock"

	log "github.com/sirupsen/logrus"
)

// taskUsecase implements TaskUsecase interface
type taskUsecase struct {
	taskRepo    repository.TaskRepository
	projectRepo projectrepo.ProjectRepository
	profileRepo authrepo.ProfileRepository
	locks       *keylock.Map
	publisher   realtime.Publisher
	notifier    notificationusecase.Notifier
}

// NewTaskUsecase creates a new instance of taskUsecase. locks must be shared
// by every use case that mutates a project's board.
func NewTaskUsecase(
	taskRepo repository.TaskRepository,
	projectRepo projectrepo.ProjectRepository,
	profileRepo authrepo.ProfileRepository,
	locks *keylock.Map,
	publisher realtime.Publisher,
) TaskUsecase {
	return &taskUsecase{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		profileRepo: profileRepo,
		locks:       locks,
		publisher:   publisher,
	}
}

// SetNotifier sets the notifier for assignment notifications
func (u *taskUsecase) SetNotifier(notifier notificationusecase.Notifier) {
	u.notifier = notifier
}

func (u *taskUsecase) ListColumns(ctx context.Context, userID, projectID string) ([]*domain.ColumnWithTasks, error) {
	if err := u.requireMember(ctx, userID, projectID, "project"); err != nil {
		return nil, err
	}

	columns, err := u.projectRepo.ListColumns(ctx, projectID)
	if err != nil {
		return nil, apperror.Store(err, "list columns")
	}

	unlock := u.locks.RLock(projectID)
	tasks, err := u.taskRepo.ListByProject(ctx, projectID)
	unlock()
	if err != nil {
		return nil, apperror.Store(err, "list tasks")
	}
	u.attachAssignees(ctx, tasks)

	byColumn := make(map[string][]*domain.Task, len(columns))
	for _, t := range tasks {
		byColumn[t.ColumnID] = append(byColumn[t.ColumnID], t)
	}

	result := make([]*domain.ColumnWithTasks, len(columns))
	for i, c := range columns {
		colTasks := byColumn[c.ID]
		if colTasks == nil {
			colTasks = []*domain.Task{}
		}
		result[i] = &domain.ColumnWithTasks{Column: c, Tasks: colTasks}
	}
	return result, nil
}

func (u *taskUsecase) CreateTask(ctx context.Context, userID, columnID string, req TaskCreateRequest) (*domain.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.Validation("title is required")
	}
	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		return nil, apperror.Validation("%v", err)
	}
	var dueDate *time.Time
	if req.DueDate != nil {
		if dueDate, err = parseDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	}

	column, err := u.projectRepo.FindColumn(ctx, columnID)
	if err != nil {
		return nil, apperror.Store(err, "load column")
	}
	if column == nil {
		return nil, apperror.NotFound("column not found")
	}
	if err := u.requireMember(ctx, userID, column.ProjectID, "column"); err != nil {
		return nil, err
	}

	assigneeID := optionalString(req.AssigneeID)
	if assigneeID != nil {
		if err := u.requireAssignee(ctx, column.ProjectID, *assigneeID); err != nil {
			return nil, err
		}
	}

	task := &domain.Task{
		ColumnID:    column.ID,
		ProjectID:   column.ProjectID,
		Title:       title,
		Description: optionalString(req.Description),
		Priority:    priority,
		DueDate:     dueDate,
		AssigneeID:  assigneeID,
		CreatedBy:   userID,
	}

	unlock := u.locks.Lock(column.ProjectID)
	err = u.taskRepo.Transaction(ctx, func(tx repository.TaskRepository) error {
		if err := tx.LockProject(ctx, column.ProjectID); err != nil {
			return err
		}
		slots, err := tx.ListSlots(ctx, column.ID)
		if err != nil {
			return err
		}
		if err := tx.ApplySlots(ctx, ordering.Densify(slots)); err != nil {
			return err
		}
		task.Position = ordering.AppendPosition(slots)
		return tx.Create(ctx, task)
	})
	unlock()
	if err != nil {
		return nil, apperror.Store(err, "create task")
	}

	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityTask, realtime.OpCreate, task.ProjectID, task.ID, userID))
	u.notifyAssigned(ctx, task, userID)
	u.attachAssignees(ctx, []*domain.Task{task})
	return task, nil
}

func (u *taskUsecase) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := u.findTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	u.attachAssignees(ctx, []*domain.Task{task})
	return task, nil
}

func (u *taskUsecase) UpdateTask(ctx context.Context, userID, taskID string, updates TaskUpdateRequest) (*domain.Task, error) {
	fields := make(map[string]interface{})
	if updates.Title != nil {
		title := strings.TrimSpace(*updates.Title)
		if title == "" {
			return nil, apperror.Validation("title is required")
		}
		fields["title"] = title
	}
	if updates.Description != nil {
		fields["description"] = optionalString(updates.Description)
	}
	if updates.Priority != nil {
		if strings.TrimSpace(*updates.Priority) == "" {
			return nil, apperror.Validation("priority must be one of low, medium, high, urgent")
		}
		priority, err := domain.ParsePriority(*updates.Priority)
		if err != nil {
			return nil, apperror.Validation("%v", err)
		}
		fields["priority"] = priority
	}
	if updates.DueDate != nil {
		dueDate, err := parseDueDate(*updates.DueDate)
		if err != nil {
			return nil, err
		}
		fields["due_date"] = dueDate
		fields["reminder_sent"] = false
	}

	task, err := u.findTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	previousAssignee := task.AssigneeID
	if updates.AssigneeID != nil {
		assigneeID := optionalString(updates.AssigneeID)
		if assigneeID != nil {
			if err := u.requireAssignee(ctx, task.ProjectID, *assigneeID); err != nil {
				return nil, err
			}
		}
		fields["assignee_id"] = assigneeID
	}

	if len(fields) == 0 {
		u.attachAssignees(ctx, []*domain.Task{task})
		return task, nil
	}

	var updated *domain.Task
	unlock := u.locks.Lock(task.ProjectID)
	err = u.taskRepo.Transaction(ctx, func(tx repository.TaskRepository) error {
		current, err := tx.FindByID(ctx, taskID)
		if err != nil {
			return err
		}
		if current == nil {
			return apperror.NotFound("task not found")
		}
		if err := tx.UpdateFields(ctx, taskID, fields); err != nil {
			return err
		}
		updated, err = tx.FindByID(ctx, taskID)
		return err
	})
	unlock()
	if err != nil {
		return nil, apperror.Store(err, "update task")
	}

	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityTask, realtime.OpUpdate, updated.ProjectID, updated.ID, userID))
	if updated.AssigneeID != nil && (previousAssignee == nil || *previousAssignee != *updated.AssigneeID) {
		u.notifyAssigned(ctx, updated, userID)
	}
	u.attachAssignees(ctx, []*domain.Task{updated})
	return updated, nil
}

func (u *taskUsecase) DeleteTask(ctx context.Context, userID, taskID string) error {
	task, err := u.findTask(ctx, userID, taskID)
	if err != nil {
		return err
	}

	unlock := u.locks.Lock(task.ProjectID)
	err = u.taskRepo.Transaction(ctx, func(tx repository.TaskRepository) error {
		if err := tx.LockProject(ctx, task.ProjectID); err != nil {
			return err
		}
		current, err := tx.FindByID(ctx, taskID)
		if err != nil {
			return err
		}
		if current == nil {
			return apperror.NotFound("task not found")
		}
		slots, err := tx.ListSlots(ctx, current.ColumnID)
		if err != nil {
			return err
		}
		changed, err := ordering.Remove(slots, taskID)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, taskID); err != nil {
			return err
		}
		return tx.ApplySlots(ctx, changed)
	})
	unlock()
	if err != nil {
		return apperror.Store(err, "delete task")
	}

	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityTask, realtime.OpDelete, task.ProjectID, task.ID, userID))
	return nil
}

func (u *taskUsecase) MoveTask(ctx context.Context, userID, taskID, targetColumnID string, index int) (*domain.Task, error) {
	task, err := u.findTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	target, err := u.projectRepo.FindColumn(ctx, targetColumnID)
	if err != nil {
		return nil, apperror.Store(err, "load column")
	}
	if target == nil {
		return nil, apperror.NotFound("column not found")
	}
	if target.ProjectID != task.ProjectID {
		if err := u.requireMember(ctx, userID, target.ProjectID, "column"); err != nil {
			return nil, err
		}
		return nil, apperror.Validation("column %s belongs to a different project than the task", targetColumnID)
	}

	var moved *domain.Task
	unlock := u.locks.Lock(task.ProjectID)
	err = u.taskRepo.Transaction(ctx, func(tx repository.TaskRepository) error {
		if err := tx.LockProject(ctx, task.ProjectID); err != nil {
			return err
		}
		current, err := tx.FindByID(ctx, taskID)
		if err != nil {
			return err
		}
		if current == nil {
			return apperror.NotFound("task not found")
		}

		source, err := tx.ListSlots(ctx, current.ColumnID)
		if err != nil {
			return err
		}
		var dest []ordering.Slot
		if target.ID != current.ColumnID {
			if dest, err = tx.ListSlots(ctx, target.ID); err != nil {
				return err
			}
		}

		changed, final, err := ordering.Plan(source, dest, taskID, target.ID, index)
		if err != nil {
			return err
		}
		if err := tx.ApplySlots(ctx, changed); err != nil {
			return err
		}

		for _, s := range final {
			if s.ID == taskID {
				current.ColumnID = s.ColumnID
				current.Position = s.Position
			}
		}
		moved = current
		return nil
	})
	unlock()
	if err != nil {
		if errors.Is(err, ordering.ErrTaskNotInSource) {
			return nil, apperror.NotFound("task not found")
		}
		return nil, apperror.Store(err, "move task")
	}

	log.WithFields(log.Fields{
		"task":   taskID,
		"column": moved.ColumnID,
		"index":  moved.Position,
	}).Debug("[TaskUsecase] task moved")
	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityTask, realtime.OpMove, moved.ProjectID, moved.ID, userID))
	u.attachAssignees(ctx, []*domain.Task{moved})
	return moved, nil
}

// findTask loads a task the caller can see
func (u *taskUsecase) findTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, apperror.Store(err, "load task")
	}
	if task == nil {
		return nil, apperror.NotFound("task not found")
	}
	if err := u.requireMember(ctx, userID, task.ProjectID, "task"); err != nil {
		return nil, err
	}
	return task, nil
}

// requireMember reports what as not found unless userID belongs to the project
func (u *taskUsecase) requireMember(ctx context.Context, userID, projectID, what string) error {
	member, err := u.projectRepo.FindMember(ctx, projectID, userID)
	if err != nil {
		return apperror.Store(err, "load membership")
	}
	if member == nil {
		return apperror.NotFound("%s not found", what)
	}
	return nil
}

func (u *taskUsecase) requireAssignee(ctx context.Context, projectID, assigneeID string) error {
	member, err := u.projectRepo.FindMember(ctx, projectID, assigneeID)
	if err != nil {
		return apperror.Store(err, "load membership")
	}
	if member == nil {
		return apperror.Validation("assignee %s is not a member of the project", assigneeID)
	}
	return nil
}

func (u *taskUsecase) attachAssignees(ctx context.Context, tasks []*domain.Task) {
	var ids []string
	for _, t := range tasks {
		if t.AssigneeID != nil {
			ids = append(ids, *t.AssigneeID)
		}
	}
	if len(ids) == 0 {
		return
	}
	profiles, err := u.profileRepo.FindByIDs(ctx, ids)
	if err != nil {
		log.WithError(err).Warn("[TaskUsecase] Failed to load assignee profiles")
		return
	}
	for _, t := range tasks {
		if t.AssigneeID != nil {
			t.Assignee = profiles[*t.AssigneeID]
		}
	}
}

func (u *taskUsecase) notifyAssigned(ctx context.Context, task *domain.Task, actorID string) {
	if u.notifier == nil || task.AssigneeID == nil || *task.AssigneeID == actorID {
		return
	}
	message := task.Title
	u.notifier.Notify(ctx, &notificationdomain.Notification{
		UserID:  *task.AssigneeID,
		Type:    notificationdomain.TypeTaskAssigned,
		Title:   "You were assigned a task",
		Message: &message,
		Data: map[string]interface{}{
			"task_id":    task.ID,
			"project_id": task.ProjectID,
			"actor_id":   actorID,
		},
	})
}

// parseDueDate accepts RFC 3339 timestamps and plain dates; empty clears.
func parseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperror.Validation("invalid due_date %q: use RFC 3339 or YYYY-MM-DD", value)
}

func optionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
