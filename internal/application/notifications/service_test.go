package notifications

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"autostand-backend/internal/domain"
	"autostand-backend/internal/infrastructure/database"
	"autostand-backend/internal/pkg/apperror"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupNotifications(t *testing.T) (*Service, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Service{DB: db, Rdb: rdb}, db, mr
}

func seedUser(t *testing.T, db *gorm.DB, username string) domain.User {
	t.Helper()
	u := domain.User{Name: "Test", Surname: username, Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestNotify_Validates(t *testing.T) {
	svc, _, _ := setupNotifications(t)
	err := svc.Notify(context.Background(), nil, Notice{RecipientID: uuid.New(), Type: TypeNewMessage})
	assert.ErrorIs(t, err, errEmptyNotice)
}

func TestListAndMarkRead(t *testing.T) {
	svc, db, _ := setupNotifications(t)
	ctx := context.Background()
	u := seedUser(t, db, "ana")
	other := seedUser(t, db, "rui")
	actor := u.Actor()

	for i := 0; i < 12; i++ {
		require.NoError(t, svc.Notify(ctx, nil, Notice{RecipientID: u.UserID, Type: TypeNewMessage, Title: "Nova Mensagem", Message: "Olá"}))
	}
	require.NoError(t, svc.Notify(ctx, nil, Notice{RecipientID: other.UserID, Type: TypeNewMessage, Title: "Nova Mensagem", Message: "Olá"}))

	unread, err := svc.List(ctx, actor, true)
	require.NoError(t, err)
	assert.Len(t, unread, 10)

	count, err := svc.UnreadCount(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)

	first := unread[0].NotificationID
	n, err := svc.MarkRead(ctx, actor, &first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err = svc.UnreadCount(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(11), count)

	n, err = svc.MarkRead(ctx, actor, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	all, err := svc.List(ctx, actor, false)
	require.NoError(t, err)
	assert.Len(t, all, 12)
	for _, row := range all {
		assert.True(t, row.Read)
	}

	otherCount, err := svc.UnreadCount(ctx, other.Actor())
	require.NoError(t, err)
	assert.Equal(t, int64(1), otherCount)
}

func TestMarkRead_ForeignNotification(t *testing.T) {
	svc, db, _ := setupNotifications(t)
	ctx := context.Background()
	u := seedUser(t, db, "ana")
	other := seedUser(t, db, "rui")
	require.NoError(t, svc.Notify(ctx, nil, Notice{RecipientID: other.UserID, Type: TypeNewMessage, Title: "t", Message: "m"}))

	var n domain.Notification
	require.NoError(t, db.First(&n).Error)
	_, err := svc.MarkRead(ctx, u.Actor(), &n.NotificationID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUnreadCount_UsesCache(t *testing.T) {
	svc, db, mr := setupNotifications(t)
	ctx := context.Background()
	u := seedUser(t, db, "ana")
	require.NoError(t, mr.Set(unreadKeyPrefix+u.UserID.String(), "7"))

	count, err := svc.UnreadCount(ctx, u.Actor())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

type failingSink struct{}

func (failingSink) Notify(ctx context.Context, db *gorm.DB, n Notice) error {
	return errors.New("inbox unavailable")
}

func TestNotifyBestEffort_SwallowsFailure(t *testing.T) {
	_, db, _ := setupNotifications(t)
	ctx := context.Background()
	u := seedUser(t, db, "ana")

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, tx.Model(&domain.User{}).Where("user_id = ?", u.UserID).Update("location", "Porto").Error)
		NotifyBestEffort(ctx, failingSink{}, tx, Notice{RecipientID: u.UserID})
		return nil
	})
	require.NoError(t, err)

	var reloaded domain.User
	require.NoError(t, db.First(&reloaded, "user_id = ?", u.UserID).Error)
	require.NotNil(t, reloaded.Location)
	assert.Equal(t, "Porto", *reloaded.Location)
}

func TestNotify_CountCachedDuringTransactionIsDroppedAfterCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.db")
	writerDB, err := database.Open("sqlite:" + path)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(writerDB))
	readerDB, err := database.Open("sqlite:" + path)
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	writer := &Service{DB: writerDB, Rdb: rdb}
	reader := &Service{DB: readerDB, Rdb: rdb}
	u := seedUser(t, writerDB, "ana")

	ctx, flush := Deferred(context.Background())
	err = writerDB.Transaction(func(tx *gorm.DB) error {
		NotifyBestEffort(ctx, writer, tx, Notice{RecipientID: u.UserID, Type: TypeNewMessage, Title: "Nova Mensagem", Message: "Olá"})
		count, err := reader.UnreadCount(context.Background(), u.Actor())
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
		return nil
	})
	require.NoError(t, err)
	flush()

	assert.False(t, mr.Exists(unreadKeyPrefix+u.UserID.String()))
	count, err := reader.UnreadCount(context.Background(), u.Actor())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 5*time.Minute, mr.TTL(unreadKeyPrefix+u.UserID.String()))
}

func TestDeferred_FlushWithoutNoticesIsNoop(t *testing.T) {
	_, flush := Deferred(context.Background())
	assert.NotPanics(t, flush)
	assert.NotPanics(t, flush)
}
