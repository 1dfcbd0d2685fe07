package api

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

func TestNewTaskResponse(t *testing.T) {
	t.Parallel()

	newTask := func(t *testing.T, due *time.Time) *domain.Task {
		t.Helper()
		task, err := domain.NewTask(
			uuid.New(), "Title", "Desc",
			domain.PriorityHigh, domain.StatusPending, due, nil)
		require.NoError(t, err)
		return task
	}

	t.Run("relation sets is_owner", func(t *testing.T) {
		task := newTask(t, nil)
		assert.True(t, newTaskResponse(task, store.RelationOwner).IsOwner)
		assert.False(t, newTaskResponse(task, store.RelationShared).IsOwner)
	})

	t.Run("nil tags serialize as empty list", func(t *testing.T) {
		task := newTask(t, nil)
		task.Tags = nil
		resp := newTaskResponse(task, store.RelationOwner)
		assert.NotNil(t, resp.Tags)
		assert.Empty(t, resp.Tags)
	})

	t.Run("no due date means no schedule fields", func(t *testing.T) {
		resp := newTaskResponse(newTask(t, nil), store.RelationOwner)
		assert.False(t, resp.IsOverdue)
		assert.Nil(t, resp.DaysUntilDue)
	})

	t.Run("future due date", func(t *testing.T) {
		due := time.Now().UTC().Add(72*time.Hour + time.Minute)
		resp := newTaskResponse(newTask(t, &due), store.RelationOwner)
		assert.False(t, resp.IsOverdue)
		require.NotNil(t, resp.DaysUntilDue)
		assert.Equal(t, 3, *resp.DaysUntilDue)
	})

	t.Run("past due date on a pending task is overdue", func(t *testing.T) {
		due := time.Now().UTC().Add(-48 * time.Hour)
		resp := newTaskResponse(newTask(t, &due), store.RelationOwner)
		assert.True(t, resp.IsOverdue)
		require.NotNil(t, resp.DaysUntilDue)
		assert.Negative(t, *resp.DaysUntilDue)
	})

	t.Run("cancelled task past due is still overdue", func(t *testing.T) {
		due := time.Now().UTC().Add(-48 * time.Hour)
		task := newTask(t, &due)
		require.NoError(t, task.ApplyStatus(domain.StatusCancelled))
		resp := newTaskResponse(task, store.RelationOwner)
		assert.True(t, resp.IsOverdue)
		assert.False(t, resp.IsCompleted)
	})

	t.Run("completed task is never overdue", func(t *testing.T) {
		due := time.Now().UTC().Add(-48 * time.Hour)
		task := newTask(t, &due)
		task.ToggleCompletion()
		resp := newTaskResponse(task, store.RelationOwner)
		assert.False(t, resp.IsOverdue)
		assert.True(t, resp.IsCompleted)
		assert.NotNil(t, resp.CompletedAt)
	})
}

func TestNewStatsResponse(t *testing.T) {
	t.Parallel()

	resp := newStatsResponse(&store.TaskStats{
		Total:          10,
		Completed:      4,
		Pending:        3,
		InProgress:     3,
		Overdue:        2,
		CompletionRate: 40,
		ByPriority:     store.PriorityBreakdown{Urgent: 1, High: 2, Medium: 3, Low: 4},
	})

	assert.Equal(t, 10, resp.Total)
	assert.InDelta(t, 40.0, resp.CompletionRate, 0.01)
	assert.Equal(t, 1, resp.PriorityBreakdown.Urgent)
	assert.Equal(t, 4, resp.PriorityBreakdown.Low)
}
