package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	authrepo "projectflow-backend/internal/auth/repository"
	commentdomain "projectflow-backend/internal/comment/domain"
	notificationdomain "projectflow-backend/internal/notification/domain"
	projectdomain "projectflow-backend/internal/project/domain"
	projectrepo "projectflow-backend/internal/project/repository"
	"projectflow-backend/internal/realtime"
	"projectflow-backend/internal/task/domain"
	"projectflow-backend/internal/task/ordering"
	"projectflow-backend/internal/task/repository"
	"projectflow-backend/internal/testutil"
	"projectflow-backend/pkg/apperror"
	"projectflow-backend/pkg/keylock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const owner = "user-owner"

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*notificationdomain.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n *notificationdomain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

type fixture struct {
	db          *gorm.DB
	uc          TaskUsecase
	projectRepo projectrepo.ProjectRepository
	events      *testutil.Recorder
	notifier    *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	projects := projectrepo.NewProjectRepository(db)
	events := &testutil.Recorder{}
	notifier := &fakeNotifier{}
	uc := NewTaskUsecase(repository.NewGormTaskRepository(db), projects, authrepo.NewProfileRepository(db), keylock.New(), events)
	uc.SetNotifier(notifier)
	testutil.SeedProfile(t, db, owner, "Owner")
	return &fixture{db: db, uc: uc, projectRepo: projects, events: events, notifier: notifier}
}

// project creates a project owned by owner and returns its columns by name.
func (f *fixture) project(t *testing.T, name string) (*projectdomain.Project, map[string]string) {
	t.Helper()
	p := &projectdomain.Project{Name: name, OwnerID: owner}
	columns, err := f.projectRepo.CreateWithDefaults(context.Background(), p)
	require.NoError(t, err)
	byName := make(map[string]string, len(columns))
	for _, c := range columns {
		byName[c.Name] = c.ID
	}
	return p, byName
}

func (f *fixture) addMember(t *testing.T, projectID, userID string) {
	t.Helper()
	testutil.SeedProfile(t, f.db, userID, userID)
	require.NoError(t, f.projectRepo.AddMember(context.Background(), &projectdomain.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      projectdomain.RoleMember,
	}))
}

func (f *fixture) create(t *testing.T, columnID string, titles ...string) map[string]*domain.Task {
	t.Helper()
	out := make(map[string]*domain.Task, len(titles))
	for _, title := range titles {
		task, err := f.uc.CreateTask(context.Background(), owner, columnID, TaskCreateRequest{Title: title})
		require.NoError(t, err)
		out[title] = task
	}
	return out
}

// board returns task titles per column name and asserts every column is dense.
func (f *fixture) board(t *testing.T, projectID string) map[string][]string {
	t.Helper()
	columns, err := f.uc.ListColumns(context.Background(), owner, projectID)
	require.NoError(t, err)
	out := make(map[string][]string, len(columns))
	for _, c := range columns {
		titles := make([]string, 0, len(c.Tasks))
		for i, task := range c.Tasks {
			require.Equal(t, i, task.Position, "column %s position %d holds %d", c.Name, i, task.Position)
			titles = append(titles, task.Title)
		}
		out[c.Name] = titles
	}
	return out
}

func TestListColumnsReturnsDefaultColumnsInOrder(t *testing.T) {
	f := newFixture(t)
	p, _ := f.project(t, "Launch")

	columns, err := f.uc.ListColumns(context.Background(), owner, p.ID)
	require.NoError(t, err)
	require.Len(t, columns, 4)
	for i, c := range columns {
		assert.Equal(t, projectdomain.DefaultColumns[i], c.Name)
		assert.Equal(t, i, c.Position)
		assert.NotNil(t, c.Tasks)
	}
}

func TestListColumnsHidesProjectsOutsideScope(t *testing.T) {
	f := newFixture(t)
	p, _ := f.project(t, "Private")

	_, err := f.uc.ListColumns(context.Background(), "stranger", p.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.uc.ListColumns(context.Background(), owner, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCreateTaskAppendsToColumn(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")

	first, err := f.uc.CreateTask(context.Background(), owner, cols["Review"], TaskCreateRequest{Title: "first"})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, domain.PriorityMedium, first.Priority)
	assert.Equal(t, owner, first.CreatedBy)
	assert.Equal(t, p.ID, first.ProjectID)

	second, err := f.uc.CreateTask(context.Background(), owner, cols["Review"], TaskCreateRequest{Title: "second", Priority: "urgent"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Position)
	assert.Equal(t, domain.PriorityUrgent, second.Priority)

	events := f.events.Events()
	require.Len(t, events, 2)
	for i, task := range []*domain.Task{first, second} {
		assert.Equal(t, realtime.EntityTask, events[i].Entity)
		assert.Equal(t, realtime.OpCreate, events[i].Op)
		assert.Equal(t, p.ID, events[i].ProjectID)
		assert.Equal(t, task.ID, events[i].EntityID)
		assert.Equal(t, owner, events[i].ActorID)
	}
}

func TestCreateTaskDensifiesColumnWithGaps(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	tasks := f.create(t, cols["To Do"], "A", "B")
	require.NoError(t, f.db.Model(&domain.Task{}).Where("id = ?", tasks["B"].ID).Update("position", 5).Error)

	created := f.create(t, cols["To Do"], "C")

	assert.Equal(t, 2, created["C"].Position)
	assert.Equal(t, []string{"A", "B", "C"}, f.board(t, p.ID)["To Do"])
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	stranger := "stranger"
	bad := "tomorrow-ish"

	cases := map[string]TaskCreateRequest{
		"empty title":         {Title: ""},
		"whitespace title":    {Title: "   "},
		"unknown priority":    {Title: "t", Priority: "critical"},
		"malformed due date":  {Title: "t", DueDate: &bad},
		"assignee not member": {Title: "t", AssigneeID: &stranger},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.uc.CreateTask(context.Background(), owner, cols["To Do"], req)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}

	assert.Empty(t, f.events.Events())
	assert.Empty(t, f.board(t, p.ID)["To Do"])
}

func TestCreateTaskUnknownColumn(t *testing.T) {
	f := newFixture(t)
	_, cols := f.project(t, "Launch")

	_, err := f.uc.CreateTask(context.Background(), owner, "missing", TaskCreateRequest{Title: "t"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.uc.CreateTask(context.Background(), "stranger", cols["To Do"], TaskCreateRequest{Title: "t"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCreateTaskWithAssigneeNotifies(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	f.addMember(t, p.ID, "alice")
	alice := "alice"
	due := "2030-01-02"

	task, err := f.uc.CreateTask(context.Background(), owner, cols["To Do"], TaskCreateRequest{
		Title:      "write docs",
		AssigneeID: &alice,
		DueDate:    &due,
	})
	require.NoError(t, err)
	require.NotNil(t, task.Assignee)
	assert.Equal(t, "alice", task.Assignee.ID)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC), *task.DueDate)

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, "alice", n.UserID)
	assert.Equal(t, notificationdomain.TypeTaskAssigned, n.Type)
	assert.Equal(t, task.ID, n.Data["task_id"])
}

func TestUpdateTaskKeepsPlacement(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	f.addMember(t, p.ID, "bob")
	tasks := f.create(t, cols["To Do"], "A", "B")
	f.events.Reset()

	require.NoError(t, f.db.Model(&domain.Task{}).Where("id = ?", tasks["B"].ID).Update("reminder_sent", true).Error)

	title := "B renamed"
	priority := "high"
	due := "2031-05-06T10:00:00Z"
	bob := "bob"
	updated, err := f.uc.UpdateTask(context.Background(), owner, tasks["B"].ID, TaskUpdateRequest{
		Title:      &title,
		Priority:   &priority,
		DueDate:    &due,
		AssigneeID: &bob,
	})
	require.NoError(t, err)
	assert.Equal(t, "B renamed", updated.Title)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)
	assert.Equal(t, 1, updated.Position)
	assert.Equal(t, cols["To Do"], updated.ColumnID)
	assert.False(t, updated.ReminderSent)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, "bob", *updated.AssigneeID)

	assert.Equal(t, []string{"A", "B renamed"}, f.board(t, p.ID)["To Do"])
	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.OpUpdate, events[0].Op)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "bob", f.notifier.sent[0].UserID)

	empty := ""
	cleared, err := f.uc.UpdateTask(context.Background(), owner, tasks["B"].ID, TaskUpdateRequest{AssigneeID: &empty, DueDate: &empty})
	require.NoError(t, err)
	assert.Nil(t, cleared.AssigneeID)
	assert.Nil(t, cleared.DueDate)
	assert.Len(t, f.notifier.sent, 1)
}

func TestUpdateTaskErrors(t *testing.T) {
	f := newFixture(t)
	_, cols := f.project(t, "Launch")
	tasks := f.create(t, cols["To Do"], "A")
	f.events.Reset()

	blank := " "
	_, err := f.uc.UpdateTask(context.Background(), owner, tasks["A"].ID, TaskUpdateRequest{Title: &blank})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.uc.UpdateTask(context.Background(), owner, tasks["A"].ID, TaskUpdateRequest{Priority: &blank})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	title := "x"
	_, err = f.uc.UpdateTask(context.Background(), owner, "missing", TaskUpdateRequest{Title: &title})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.Empty(t, f.events.Events())
}

func TestDeleteTaskClosesGapAndRemovesComments(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	tasks := f.create(t, cols["To Do"], "A", "B", "C")
	require.NoError(t, f.db.Create(&commentdomain.Comment{ID: "c1", TaskID: tasks["B"].ID, UserID: owner, Content: "hi"}).Error)
	f.events.Reset()

	require.NoError(t, f.uc.DeleteTask(context.Background(), owner, tasks["B"].ID))

	assert.Equal(t, []string{"A", "C"}, f.board(t, p.ID)["To Do"])

	var comments int64
	require.NoError(t, f.db.Model(&commentdomain.Comment{}).Where("task_id = ?", tasks["B"].ID).Count(&comments).Error)
	assert.Zero(t, comments)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.OpDelete, events[0].Op)
	assert.Equal(t, tasks["B"].ID, events[0].EntityID)

	err := f.uc.DeleteTask(context.Background(), owner, tasks["B"].ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Len(t, f.events.Events(), 1)
}

func TestDeleteTaskRollsBackWhenStoreFails(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	tasks := f.create(t, cols["To Do"], "A", "B", "C", "D")
	before := f.board(t, p.ID)
	f.events.Reset()

	// Deleting A renumbers B, C and D; fail the second write.
	remove := testutil.FailNthUpdate(t, f.db, 2, errors.New("disk full"))
	err := f.uc.DeleteTask(context.Background(), owner, tasks["A"].ID)
	remove()

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrStore)
	assert.Equal(t, before, f.board(t, p.ID))
	assert.Empty(t, f.events.Events())

	reloaded, err := f.uc.GetTask(context.Background(), owner, tasks["A"].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Position)
}

func TestMoveTaskToTopOfSameColumn(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	tasks := f.create(t, cols["To Do"], "A", "B", "C")
	f.events.Reset()

	moved, err := f.uc.MoveTask(context.Background(), owner, tasks["B"].ID, cols["To Do"], 0)
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Position)

	assert.Equal(t, []string{"B", "A", "C"}, f.board(t, p.ID)["To Do"])
	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.OpMove, events[0].Op)
	assert.Equal(t, realtime.EntityTask, events[0].Entity)
}

func TestMoveTaskAcrossColumns(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	todo := f.create(t, cols["To Do"], "A", "B")
	f.create(t, cols["In Progress"], "X")

	moved, err := f.uc.MoveTask(context.Background(), owner, todo["A"].ID, cols["In Progress"], 1)
	require.NoError(t, err)
	assert.Equal(t, cols["In Progress"], moved.ColumnID)
	assert.Equal(t, 1, moved.Position)

	b := f.board(t, p.ID)
	assert.Equal(t, []string{"B"}, b["To Do"])
	assert.Equal(t, []string{"X", "A"}, b["In Progress"])
}

func TestMoveTaskIntoEmptyColumnAndClamp(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	tasks := f.create(t, cols["To Do"], "A", "B")

	_, err := f.uc.MoveTask(context.Background(), owner, tasks["A"].ID, cols["Done"], 0)
	require.NoError(t, err)
	_, err = f.uc.MoveTask(context.Background(), owner, tasks["B"].ID, cols["Done"], 42)
	require.NoError(t, err)

	b := f.board(t, p.ID)
	assert.Empty(t, b["To Do"])
	assert.Equal(t, []string{"A", "B"}, b["Done"])
}

func TestMoveTaskIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	tasks := f.create(t, cols["To Do"], "A", "B", "C", "D")
	f.create(t, cols["Review"], "X", "Y")

	_, err := f.uc.MoveTask(context.Background(), owner, tasks["C"].ID, cols["Review"], 1)
	require.NoError(t, err)
	once := f.board(t, p.ID)

	_, err = f.uc.MoveTask(context.Background(), owner, tasks["C"].ID, cols["Review"], 1)
	require.NoError(t, err)
	assert.Equal(t, once, f.board(t, p.ID))

	_, err = f.uc.MoveTask(context.Background(), owner, tasks["A"].ID, cols["To Do"], 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "D"}, f.board(t, p.ID)["To Do"])
}

func TestMoveTaskToColumnOfAnotherProject(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	other, otherCols := f.project(t, "Other")
	tasks := f.create(t, cols["To Do"], "A", "B")
	f.create(t, otherCols["To Do"], "Z")
	f.events.Reset()

	_, err := f.uc.MoveTask(context.Background(), owner, tasks["A"].ID, otherCols["To Do"], 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	assert.Equal(t, []string{"A", "B"}, f.board(t, p.ID)["To Do"])
	assert.Equal(t, []string{"Z"}, f.board(t, other.ID)["To Do"])
	assert.Empty(t, f.events.Events())
}

func TestMoveTaskNotFound(t *testing.T) {
	f := newFixture(t)
	_, cols := f.project(t, "Launch")
	tasks := f.create(t, cols["To Do"], "A")

	_, err := f.uc.MoveTask(context.Background(), owner, "missing", cols["To Do"], 0)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.uc.MoveTask(context.Background(), owner, tasks["A"].ID, "missing", 0)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.uc.MoveTask(context.Background(), "stranger", tasks["A"].ID, cols["Done"], 0)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestMoveTaskRollsBackWhenStoreFails(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	todo := f.create(t, cols["To Do"], "A", "B", "C")
	f.create(t, cols["In Progress"], "X")
	before := f.board(t, p.ID)
	f.events.Reset()

	// Moving A to the top of In Progress renumbers B, C, A and X; fail the second write.
	remove := testutil.FailNthUpdate(t, f.db, 2, errors.New("disk full"))
	_, err := f.uc.MoveTask(context.Background(), owner, todo["A"].ID, cols["In Progress"], 0)
	remove()

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrStore)
	assert.Equal(t, before, f.board(t, p.ID))
	assert.Empty(t, f.events.Events())
}

func TestPublishFailureDoesNotFailMove(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	tasks := f.create(t, cols["To Do"], "A", "B")
	f.events.Err = errors.New("bus down")

	_, err := f.uc.MoveTask(context.Background(), owner, tasks["B"].ID, cols["To Do"], 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, f.board(t, p.ID)["To Do"])
}

func TestConcurrentMovesKeepColumnsDense(t *testing.T) {
	f := newFixture(t)
	p, cols := f.project(t, "Launch")
	var ids []string
	for i := 0; i < 12; i++ {
		task, err := f.uc.CreateTask(context.Background(), owner, cols[projectdomain.DefaultColumns[i%4]], TaskCreateRequest{Title: fmt.Sprintf("t%d", i)})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		rng := rand.New(rand.NewSource(int64(w)))
		g.Go(func() error {
			for i := 0; i < 15; i++ {
				task := ids[rng.Intn(len(ids))]
				column := cols[projectdomain.DefaultColumns[rng.Intn(4)]]
				if _, err := f.uc.MoveTask(context.Background(), owner, task, column, rng.Intn(6)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	total := 0
	for _, titles := range f.board(t, p.ID) {
		total += len(titles)
	}
	assert.Equal(t, len(ids), total)

	for _, name := range projectdomain.DefaultColumns {
		slots, err := repository.NewGormTaskRepository(f.db).ListSlots(context.Background(), cols[name])
		require.NoError(t, err)
		assert.True(t, ordering.IsDense(slots), "column %s", name)
	}
}
