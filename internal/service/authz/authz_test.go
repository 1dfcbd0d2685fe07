package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/mocks"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

func setupEngine(t *testing.T) (*Engine, *mocks.MockTaskStore, *domain.Task, uuid.UUID, uuid.UUID, uuid.UUID) {
	t.Helper()

	tasks := mocks.NewMockTaskStore()
	engine := NewEngine(tasks)

	owner := uuid.New()
	member := uuid.New()
	outsider := uuid.New()

	task, err := domain.NewTask(owner, "Quarterly report", "", "", "", nil, nil)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(context.Background(), task))
	tasks.AddShare(task.ID, member)

	return engine, tasks, task, owner, member, outsider
}

func TestEngine_OwnerMayDoEverything(t *testing.T) {
	t.Parallel()

	engine, _, task, owner, _, _ := setupEngine(t)
	ctx := context.Background()

	for _, action := range []Action{
		ActionView, ActionEdit, ActionDelete, ActionToggleCompletion, ActionManageSharing,
	} {
		got, relation, err := engine.Authorize(ctx, owner, task.ID, action, false)
		require.NoError(t, err, "action %s", action)
		assert.Equal(t, store.RelationOwner, relation)
		assert.Equal(t, task.ID, got.ID)
	}
}

func TestEngine_SharedMemberMayOnlyView(t *testing.T) {
	t.Parallel()

	engine, _, task, _, member, _ := setupEngine(t)
	ctx := context.Background()

	got, relation, err := engine.Authorize(ctx, member, task.ID, ActionView, false)
	require.NoError(t, err)
	assert.Equal(t, store.RelationShared, relation)
	assert.Equal(t, task.ID, got.ID)

	for _, action := range []Action{ActionEdit, ActionDelete, ActionManageSharing} {
		_, relation, err := engine.Authorize(ctx, member, task.ID, action, false)
		assert.ErrorIs(t, err, ErrNotOwner, "action %s", action)
		assert.Equal(t, store.RelationShared, relation)
	}

	_, _, err = engine.Authorize(ctx, member, task.ID, ActionToggleCompletion, false)
	assert.ErrorIs(t, err, ErrOwnerOnlyCompletion)
}

func TestEngine_OutsiderGetsNotFound(t *testing.T) {
	t.Parallel()

	engine, _, task, _, _, outsider := setupEngine(t)
	ctx := context.Background()

	for _, action := range []Action{ActionView, ActionEdit, ActionDelete} {
		_, relation, err := engine.Authorize(ctx, outsider, task.ID, action, false)
		assert.ErrorIs(t, err, store.ErrTaskNotFound, "action %s", action)
		assert.Equal(t, store.RelationNone, relation)
	}
}

func TestEngine_NotFoundIndistinguishable(t *testing.T) {
	t.Parallel()

	engine, _, task, _, _, outsider := setupEngine(t)
	ctx := context.Background()

	// A task that belongs to someone else and a task id that doesn't exist
	// must produce the exact same error.
	_, _, errExisting := engine.Authorize(ctx, outsider, task.ID, ActionView, false)
	_, _, errMissing := engine.Authorize(ctx, outsider, uuid.New(), ActionView, false)

	require.Error(t, errExisting)
	require.Error(t, errMissing)
	assert.Equal(t, errExisting, errMissing)
}

func TestEngine_PropagatesLockFlag(t *testing.T) {
	t.Parallel()

	tasks := mocks.NewMockTaskStore()
	engine := NewEngine(tasks)

	var gotLock bool
	tasks.FindForUserFn = func(_ context.Context, _, _ uuid.UUID, lockForUpdate bool) (*domain.Task, store.Relation, error) {
		gotLock = lockForUpdate
		return nil, store.RelationNone, store.ErrTaskNotFound
	}

	_, _, _ = engine.Authorize(context.Background(), uuid.New(), uuid.New(), ActionEdit, true)
	assert.True(t, gotLock)
}
