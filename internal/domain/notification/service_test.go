package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fieldwork/internal/pkg/apperror"
)

type recordingPusher struct {
	events map[int64][]*Event
}

func (p *recordingPusher) Push(userID int64, event *Event) bool {
	if p.events == nil {
		p.events = make(map[int64][]*Event)
	}
	p.events[userID] = append(p.events[userID], event)
	return true
}

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:notification_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Notification{}))
	return NewRepository(db)
}

func TestNotifyStoresAndPushes(t *testing.T) {
	pusher := &recordingPusher{}
	svc := NewService(setupTestRepo(t), pusher, nil)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, 5, "You have been assigned to job \"Tower A\""))

	list, unread, total, err := svc.List(ctx, 5, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), unread)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "You have been assigned to job \"Tower A\"", list[0].Message)

	require.Len(t, pusher.events[5], 1)
	assert.Equal(t, EventNotification, pusher.events[5][0].Type)
}

func TestNotifyRejectsEmptyInput(t *testing.T) {
	svc := NewService(setupTestRepo(t), nil, nil)

	assert.ErrorIs(t, svc.Notify(context.Background(), 0, "hello"), apperror.ErrInvalidInput)
	assert.ErrorIs(t, svc.Notify(context.Background(), 3, "   "), apperror.ErrInvalidInput)
}

func TestMarkAsReadIsScopedToOwner(t *testing.T) {
	svc := NewService(setupTestRepo(t), nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, 5, "first"))
	require.NoError(t, svc.Notify(ctx, 5, "second"))
	list, _, _, err := svc.List(ctx, 5, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = svc.MarkAsRead(ctx, list[0].ID, 6)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	n, err := svc.MarkAsRead(ctx, list[0].ID, 5)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.NotNil(t, n.ReadAt)

	unread, err := svc.UnreadCount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	updated, err := svc.MarkAllAsRead(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
}

func TestCleanupDeletesOnlyOldReadNotifications(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	old := time.Now().AddDate(0, 0, -120)

	require.NoError(t, repo.Create(ctx, &Notification{UserID: 1, Message: "old read", IsRead: true, CreatedAt: old}))
	require.NoError(t, repo.Create(ctx, &Notification{UserID: 1, Message: "old unread", CreatedAt: old}))
	require.NoError(t, repo.Create(ctx, &Notification{UserID: 1, Message: "new read", IsRead: true}))

	deleted, err := NewCleanupService(repo, nil).RunOnce(ctx, DefaultCleanupConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err := repo.ListByUser(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
