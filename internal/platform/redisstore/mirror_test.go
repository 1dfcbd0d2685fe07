package redisstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-api/internal/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func newTestTask(t *testing.T) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(
		uuid.New(), "Write release notes", "for the 1.4 cut",
		domain.PriorityHigh, domain.StatusPending, nil, nil,
	)
	require.NoError(t, err)
	return task
}

func TestRedisTaskMirror_Upsert(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	mirror := NewRedisTaskMirror(client, nil)
	task := newTestTask(t)

	mirror.MirrorUpsert(context.Background(), task)

	raw, err := mr.Get("mirror:task:" + task.ID.String())
	require.NoError(t, err)

	var doc domain.Task
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, task.ID, doc.ID)
	assert.Equal(t, task.Title, doc.Title)
	assert.Equal(t, task.Priority, doc.Priority)
}

func TestRedisTaskMirror_Delete(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	mirror := NewRedisTaskMirror(client, nil)
	task := newTestTask(t)

	mirror.MirrorUpsert(context.Background(), task)
	mirror.MirrorDelete(context.Background(), task.ID)

	assert.False(t, mr.Exists("mirror:task:"+task.ID.String()))
}

func TestRedisTaskMirror_SwallowsFailures(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	mirror := NewRedisTaskMirror(client, nil)
	task := newTestTask(t)

	mr.Close()

	// Must not panic or block; failures are logged only. Repeated failures
	// trip the breaker, which must also stay invisible to the caller.
	for i := 0; i < 6; i++ {
		mirror.MirrorUpsert(context.Background(), task)
	}
	mirror.MirrorDelete(context.Background(), task.ID)
}

func TestRedisTaskMirror_DetachedFromCallerCancellation(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	mirror := NewRedisTaskMirror(client, nil)
	task := newTestTask(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mirror.MirrorUpsert(ctx, task)

	assert.True(t, mr.Exists("mirror:task:"+task.ID.String()))
}

func TestNoopTaskMirror(t *testing.T) {
	t.Parallel()

	var mirror TaskMirror = NoopTaskMirror{}
	task := newTestTask(t)

	mirror.MirrorUpsert(context.Background(), task)
	mirror.MirrorDelete(context.Background(), task.ID)
}

func TestRedisTokenDenylist_RevokeAndCheck(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	denylist := NewRedisTokenDenylist(client, nil)
	ctx := context.Background()

	revoked, err := denylist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, denylist.Revoke(ctx, "jti-1", time.Minute))

	revoked, err = denylist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Entries expire with the token's remaining lifetime.
	mr.FastForward(2 * time.Minute)

	revoked, err = denylist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisTokenDenylist_ExpiredTTLIsNoop(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	denylist := NewRedisTokenDenylist(client, nil)

	require.NoError(t, denylist.Revoke(context.Background(), "jti-2", -time.Second))
	assert.False(t, mr.Exists("denylist:refresh:jti-2"))
}

func TestRedisTokenDenylist_ErrorsPropagate(t *testing.T) {
	t.Parallel()

	client, mr := setupTestRedis(t)
	denylist := NewRedisTokenDenylist(client, nil)
	mr.Close()

	_, err := denylist.IsRevoked(context.Background(), "jti-3")
	assert.Error(t, err)

	assert.Error(t, denylist.Revoke(context.Background(), "jti-3", time.Minute))
}
