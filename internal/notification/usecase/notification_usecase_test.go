package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	authrepo "projectflow-backend/internal/auth/repository"
	"projectflow-backend/internal/notification/domain"
	"projectflow-backend/internal/notification/repository"
	"projectflow-backend/internal/testutil"
	"projectflow-backend/pkg/apperror"
	"projectflow-backend/pkg/fcm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	mu     sync.Mutex
	calls  [][]string
	last   fcm.NotificationData
	reject []string
	err    error
}

func (f *fakePusher) SendToDevices(_ context.Context, tokens []string, n fcm.NotificationData) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tokens)
	f.last = n
	return f.reject, f.err
}

func newUsecase(t *testing.T, pusher Pusher) (NotificationUsecase, authrepo.DeviceTokenRepository) {
	t.Helper()
	db := testutil.NewTestDB(t)
	tokens := authrepo.NewDeviceTokenRepository(db)
	return NewNotificationUsecase(repository.NewNotificationRepository(db), tokens, pusher), tokens
}

func notification(userID, title string) *domain.Notification {
	return &domain.Notification{
		UserID: userID,
		Type:   domain.TypeTaskAssigned,
		Title:  title,
		Data:   map[string]interface{}{"project_id": "p1", "task_id": "t1"},
	}
}

func TestNotifyListAndMarkRead(t *testing.T) {
	uc, _ := newUsecase(t, nil)
	ctx := context.Background()

	older := notification("alice", "older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	uc.Notify(ctx, older)
	uc.Notify(ctx, notification("alice", "newer"))
	uc.Notify(ctx, notification("bob", "other"))

	list, err := uc.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Title)
	assert.Equal(t, "older", list[1].Title)
	assert.Equal(t, "p1", list[0].Data["project_id"])

	count, err := uc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, uc.MarkAsRead(ctx, "alice", list[0].ID))
	require.NoError(t, uc.MarkAsRead(ctx, "alice", list[0].ID))
	count, err = uc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	err = uc.MarkAsRead(ctx, "bob", list[1].ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	n, err := uc.MarkAllAsRead(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	count, err = uc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = uc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNotifyPushesAndPrunesRejectedTokens(t *testing.T) {
	pusher := &fakePusher{reject: []string{"stale-token"}}
	uc, tokens := newUsecase(t, pusher)
	ctx := context.Background()
	require.NoError(t, tokens.SaveToken(ctx, "alice", "good-token", "web"))
	require.NoError(t, tokens.SaveToken(ctx, "alice", "stale-token", "android"))

	msg := "write docs"
	n := notification("alice", "You were assigned a task")
	n.Message = &msg
	uc.Notify(ctx, n)
	uc.Wait()

	require.Len(t, pusher.calls, 1)
	assert.ElementsMatch(t, []string{"good-token", "stale-token"}, pusher.calls[0])
	assert.Equal(t, "write docs", pusher.last.Body)
	assert.Equal(t, "t1", pusher.last.Data["task_id"])
	assert.Equal(t, domain.TypeTaskAssigned, pusher.last.Data["type"])
	assert.Equal(t, "/projects/p1", pusher.last.Link)

	left, err := tokens.GetTokensByUserID(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "good-token", left[0].Token)
}

func TestNotifySkipsPushWithoutTokens(t *testing.T) {
	pusher := &fakePusher{err: errors.New("should not be called")}
	uc, _ := newUsecase(t, pusher)

	uc.Notify(context.Background(), notification("carol", "hello"))
	uc.Wait()

	assert.Empty(t, pusher.calls)
	list, err := uc.List(context.Background(), "carol", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
