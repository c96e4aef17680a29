package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	notificationdomain "projectflow-backend/internal/notification/domain"
	notificationusecase "projectflow-backend/internal/notification/usecase"
	"projectflow-backend/internal/task/repository"

	log "github.com/sirupsen/logrus"
)

// TaskReminderScheduler notifies assignees about tasks coming due
type TaskReminderScheduler struct {
	taskRepo repository.TaskRepository
	notifier notificationusecase.Notifier
	interval time.Duration
	lead     time.Duration
	now      func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewTaskReminderScheduler creates a new scheduler. Every interval it
// reminds assignees of tasks due within lead.
func NewTaskReminderScheduler(
	taskRepo repository.TaskRepository,
	notifier notificationusecase.Notifier,
	interval, lead time.Duration,
) *TaskReminderScheduler {
	return &TaskReminderScheduler{
		taskRepo: taskRepo,
		notifier: notifier,
		interval: interval,
		lead:     lead,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *TaskReminderScheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	log.Printf("[TaskScheduler] Starting task reminder scheduler (interval: %s, lead: %s)", s.interval, s.lead)

	go func() {
		defer close(s.done)

		// Run immediately on start
		s.CheckAndSendReminders(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.CheckAndSendReminders(context.Background())
			case <-s.stopChan:
				log.Println("[TaskScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler and waits for the loop to exit
func (s *TaskReminderScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.started.Load() {
		<-s.done
	}
}

// CheckAndSendReminders runs one reminder pass and returns how many
// reminders were sent
func (s *TaskReminderScheduler) CheckAndSendReminders(ctx context.Context) int {
	tasks, err := s.taskRepo.FindDueForReminder(ctx, s.now().UTC().Add(s.lead))
	if err != nil {
		log.Printf("[TaskScheduler] Error finding pending reminders: %v", err)
		return 0
	}
	if len(tasks) == 0 {
		return 0
	}

	log.Printf("[TaskScheduler] Found %d tasks with pending reminders", len(tasks))

	sent := 0
	for _, task := range tasks {
		if task.AssigneeID == nil || task.DueDate == nil {
			continue
		}

		// Claim before notifying; a due date edited since the read keeps its reminder armed
		claimed, err := s.taskRepo.MarkReminderSent(ctx, task.ID, *task.DueDate)
		if err != nil {
			log.Printf("[TaskScheduler] Error marking reminder as sent for task %s: %v", task.ID, err)
			continue
		}
		if !claimed {
			continue
		}

		message := fmt.Sprintf("Due %s", task.DueDate.UTC().Format("Jan 2, 2006 15:04 MST"))
		if s.now().After(*task.DueDate) {
			message = fmt.Sprintf("Overdue since %s", task.DueDate.UTC().Format("Jan 2, 2006 15:04 MST"))
		}

		s.notifier.Notify(ctx, &notificationdomain.Notification{
			UserID:  *task.AssigneeID,
			Type:    notificationdomain.TypeTaskDue,
			Title:   "Reminder: " + task.Title,
			Message: &message,
			Data: map[string]interface{}{
				"task_id":    task.ID,
				"project_id": task.ProjectID,
				"priority":   string(task.Priority),
				"due_date":   task.DueDate.UTC().Format(time.RFC3339),
			},
		})
		sent++
	}
	return sent
}
