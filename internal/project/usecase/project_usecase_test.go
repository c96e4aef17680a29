package usecase

import (
	"context"
	"testing"

	authrepo "projectflow-backend/internal/auth/repository"
	commentdomain "projectflow-backend/internal/comment/domain"
	"projectflow-backend/internal/project/domain"
	"projectflow-backend/internal/project/repository"
	"projectflow-backend/internal/realtime"
	taskdomain "projectflow-backend/internal/task/domain"
	"projectflow-backend/internal/testutil"
	"projectflow-backend/pkg/apperror"
	"projectflow-backend/pkg/keylock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (ProjectUsecase, *gorm.DB, *testutil.Recorder) {
	t.Helper()
	db := testutil.NewTestDB(t)
	events := &testutil.Recorder{}
	uc := NewProjectUsecase(repository.NewProjectRepository(db), authrepo.NewProfileRepository(db), keylock.New(), events)
	for _, id := range []string{"owner", "alice", "bob"} {
		testutil.SeedProfile(t, db, id, id)
	}
	return uc, db, events
}

func strPtr(s string) *string { return &s }

func TestCreateProjectSeedsOwnerAndColumns(t *testing.T) {
	uc, _, events := setup(t)
	ctx := context.Background()

	created, err := uc.CreateProject(ctx, "owner", ProjectRequest{Name: strPtr("  Launch "), Description: strPtr("q3")})
	require.NoError(t, err)
	assert.Equal(t, "Launch", created.Name)
	assert.Equal(t, domain.DefaultColor, created.Color)
	require.Len(t, created.Columns, 4)
	for i, c := range created.Columns {
		assert.Equal(t, domain.DefaultColumns[i], c.Name)
		assert.Equal(t, i, c.Position)
	}

	members, err := uc.ListMembers(ctx, "owner", created.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.RoleOwner, members[0].Role)
	require.NotNil(t, members[0].Profile)

	got := events.Events()
	require.Len(t, got, 1)
	assert.Equal(t, realtime.EntityProject, got[0].Entity)
	assert.Equal(t, realtime.OpCreate, got[0].Op)
}

func TestCreateProjectValidation(t *testing.T) {
	uc, _, events := setup(t)

	_, err := uc.CreateProject(context.Background(), "owner", ProjectRequest{Name: strPtr(" ")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = uc.CreateProject(context.Background(), "owner", ProjectRequest{Name: strPtr("x"), Color: strPtr("blue")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	assert.Empty(t, events.Events())
}

func TestListProjectsOnlyReturnsMemberships(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	first, err := uc.CreateProject(ctx, "owner", ProjectRequest{Name: strPtr("first")})
	require.NoError(t, err)
	second, err := uc.CreateProject(ctx, "owner", ProjectRequest{Name: strPtr("second")})
	require.NoError(t, err)
	_, err = uc.CreateProject(ctx, "alice", ProjectRequest{Name: strPtr("alice's")})
	require.NoError(t, err)

	projects, err := uc.ListProjects(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{projects[0].ID, projects[1].ID})

	_, err = uc.GetProject(ctx, "bob", first.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestMembershipRules(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()
	p, err := uc.CreateProject(ctx, "owner", ProjectRequest{Name: strPtr("p")})
	require.NoError(t, err)

	added, err := uc.AddMember(ctx, "owner", p.ID, MemberRequest{Email: "ALICE@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice", added.UserID)
	assert.Equal(t, domain.RoleMember, added.Role)

	_, err = uc.AddMember(ctx, "owner", p.ID, MemberRequest{UserID: "alice"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = uc.AddMember(ctx, "owner", p.ID, MemberRequest{UserID: "bob", Role: "owner"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = uc.AddMember(ctx, "alice", p.ID, MemberRequest{UserID: "bob"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = uc.UpdateProject(ctx, "alice", p.ID, ProjectRequest{Name: strPtr("renamed")})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	err = uc.RemoveMember(ctx, "owner", p.ID, "owner")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	err = uc.RemoveMember(ctx, "owner", p.ID, "bob")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, uc.RemoveMember(ctx, "alice", p.ID, "alice"))
	_, err = uc.GetProject(ctx, "alice", p.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateProject(t *testing.T) {
	uc, _, events := setup(t)
	ctx := context.Background()
	p, err := uc.CreateProject(ctx, "owner", ProjectRequest{Name: strPtr("p"), Description: strPtr("d")})
	require.NoError(t, err)
	events.Reset()

	updated, err := uc.UpdateProject(ctx, "owner", p.ID, ProjectRequest{Color: strPtr("#10B981"), Description: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "p", updated.Name)
	assert.Equal(t, "#10B981", updated.Color)
	assert.Nil(t, updated.Description)

	reloaded, err := uc.GetProject(ctx, "owner", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "#10B981", reloaded.Color)
	assert.Nil(t, reloaded.Description)
	assert.Len(t, events.Events(), 1)
}

func TestDeleteProjectCascades(t *testing.T) {
	uc, db, events := setup(t)
	ctx := context.Background()
	p, err := uc.CreateProject(ctx, "owner", ProjectRequest{Name: strPtr("p")})
	require.NoError(t, err)
	_, err = uc.AddMember(ctx, "owner", p.ID, MemberRequest{UserID: "alice", Role: domain.RoleAdmin})
	require.NoError(t, err)

	task := &taskdomain.Task{ID: "t1", ColumnID: p.Columns[0].ID, ProjectID: p.ID, Title: "t", Priority: taskdomain.PriorityLow, CreatedBy: "owner"}
	require.NoError(t, db.Create(task).Error)
	require.NoError(t, db.Create(&commentdomain.Comment{ID: "c1", TaskID: "t1", UserID: "owner", Content: "c"}).Error)
	events.Reset()

	err = uc.DeleteProject(ctx, "alice", p.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	require.NoError(t, uc.DeleteProject(ctx, "owner", p.ID))

	for _, model := range []interface{}{&domain.Project{}, &domain.Column{}, &domain.ProjectMember{}, &taskdomain.Task{}, &commentdomain.Comment{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T rows left", model)
	}
	got := events.Events()
	require.Len(t, got, 1)
	assert.Equal(t, realtime.OpDelete, got[0].Op)
}
