package usecase

import (
	"context"
	"strings"

	authrepo "projectflow-backend/internal/auth/repository"
	"projectflow-backend/internal/comment/domain"
	"projectflow-backend/internal/comment/repository"
	notificationdomain "projectflow-backend/internal/notification/domain"
	notificationusecase "projectflow-backend/internal/notification/usecase"
	projectrepo "projectflow-backend/internal/project/repository"
	"projectflow-backend/internal/realtime"
	taskdomain "projectflow-backend/internal/task/domain"
	taskrepo "projectflow-backend/internal/task/repository"
	"projectflow-backend/pkg/apperror"
	"projectflow-backend/pkg/keylock"

	log "github.com/sirupsen/logrus"
)

// CommentUsecase defines the interface for task discussion
type CommentUsecase interface {
	// ListComments returns a task's comments oldest first with their authors
	ListComments(ctx context.Context, userID, taskID string) ([]*domain.Comment, error)
	CreateComment(ctx context.Context, userID, taskID, content string) (*domain.Comment, error)
	// DeleteComment removes a comment; only its author may
	DeleteComment(ctx context.Context, userID, commentID string) error
}

type commentUsecase struct {
	commentRepo repository.CommentRepository
	taskRepo    taskrepo.TaskRepository
	projectRepo projectrepo.ProjectRepository
	profileRepo authrepo.ProfileRepository
	locks       *keylock.Map
	publisher   realtime.Publisher
	notifier    notificationusecase.Notifier
}

// NewCommentUsecase creates a new instance of commentUsecase. notifier may be nil.
func NewCommentUsecase(
	commentRepo repository.CommentRepository,
	taskRepo taskrepo.TaskRepository,
	projectRepo projectrepo.ProjectRepository,
	profileRepo authrepo.ProfileRepository,
	locks *keylock.Map,
	publisher realtime.Publisher,
	notifier notificationusecase.Notifier,
) CommentUsecase {
	return &commentUsecase{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		profileRepo: profileRepo,
		locks:       locks,
		publisher:   publisher,
		notifier:    notifier,
	}
}

func (u *commentUsecase) ListComments(ctx context.Context, userID, taskID string) ([]*domain.Comment, error) {
	if _, err := u.findTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	comments, err := u.commentRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperror.Store(err, "list comments")
	}
	u.attachAuthors(ctx, comments)
	if comments == nil {
		comments = []*domain.Comment{}
	}
	return comments, nil
}

func (u *commentUsecase) CreateComment(ctx context.Context, userID, taskID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Validation("content is required")
	}
	task, err := u.findTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{TaskID: taskID, UserID: userID, Content: content}

	// Holding the board lock keeps the comment from landing on a task being deleted.
	unlock := u.locks.Lock(task.ProjectID)
	err = func() error {
		current, err := u.taskRepo.FindByID(ctx, taskID)
		if err != nil {
			return err
		}
		if current == nil {
			return apperror.NotFound("task not found")
		}
		return u.commentRepo.Create(ctx, comment)
	}()
	unlock()
	if err != nil {
		return nil, apperror.Store(err, "create comment")
	}

	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityComment, realtime.OpCreate, task.ProjectID, comment.ID, userID))
	u.notifyParticipants(ctx, task, comment)
	u.attachAuthors(ctx, []*domain.Comment{comment})
	return comment, nil
}

func (u *commentUsecase) DeleteComment(ctx context.Context, userID, commentID string) error {
	comment, err := u.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return apperror.Store(err, "load comment")
	}
	if comment == nil {
		return apperror.NotFound("comment not found")
	}
	task, err := u.findTask(ctx, userID, comment.TaskID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return apperror.NotFound("comment not found")
		}
		return err
	}
	if comment.UserID != userID {
		return apperror.Forbidden("only the author can delete a comment")
	}

	if err := u.commentRepo.Delete(ctx, commentID); err != nil {
		return apperror.Store(err, "delete comment")
	}
	realtime.Emit(ctx, u.publisher, realtime.NewEvent(realtime.EntityComment, realtime.OpDelete, task.ProjectID, commentID, userID))
	return nil
}

func (u *commentUsecase) findTask(ctx context.Context, userID, taskID string) (*taskdomain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, apperror.Store(err, "load task")
	}
	if task == nil {
		return nil, apperror.NotFound("task not found")
	}
	member, err := u.projectRepo.FindMember(ctx, task.ProjectID, userID)
	if err != nil {
		return nil, apperror.Store(err, "load membership")
	}
	if member == nil {
		return nil, apperror.NotFound("task not found")
	}
	return task, nil
}

func (u *commentUsecase) attachAuthors(ctx context.Context, comments []*domain.Comment) {
	if len(comments) == 0 {
		return
	}
	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.UserID
	}
	profiles, err := u.profileRepo.FindByIDs(ctx, ids)
	if err != nil {
		log.WithError(err).Warn("[CommentUsecase] Failed to load author profiles")
		return
	}
	for _, c := range comments {
		c.User = profiles[c.UserID]
	}
}

// notifyParticipants tells the task's assignee and creator about a new
// comment, skipping its author
func (u *commentUsecase) notifyParticipants(ctx context.Context, task *taskdomain.Task, comment *domain.Comment) {
	if u.notifier == nil {
		return
	}
	recipients := map[string]bool{task.CreatedBy: true}
	if task.AssigneeID != nil {
		recipients[*task.AssigneeID] = true
	}
	delete(recipients, comment.UserID)

	preview := comment.Content
	if len(preview) > 120 {
		preview = preview[:117] + "..."
	}
	for userID := range recipients {
		message := preview
		u.notifier.Notify(ctx, &notificationdomain.Notification{
			UserID:  userID,
			Type:    notificationdomain.TypeCommentAdded,
			Title:   "New comment on " + task.Title,
			Message: &message,
			Data: map[string]interface{}{
				"task_id":    task.ID,
				"project_id": task.ProjectID,
				"comment_id": comment.ID,
				"actor_id":   comment.UserID,
			},
		})
	}
}
