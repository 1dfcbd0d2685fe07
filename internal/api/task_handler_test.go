package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskdeck/taskdeck-api/internal/api/shared"
	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/mocks"
	"github.com/taskdeck/taskdeck-api/internal/platform/redisstore"
	"github.com/taskdeck/taskdeck-api/internal/service"
	"github.com/taskdeck/taskdeck-api/internal/service/authz"
)

type taskHandlerFixture struct {
	handler   *TaskHandler
	taskStore *mocks.MockTaskStore
	ownerID   uuid.UUID
	memberID  uuid.UUID
	otherID   uuid.UUID
	task      *domain.Task
}

func newTaskHandlerFixture(t *testing.T) *taskHandlerFixture {
	t.Helper()

	taskStore := mocks.NewMockTaskStore()
	taskService := service.NewTaskService(
		taskStore,
		authz.NewEngine(taskStore),
		redisstore.NoopTaskMirror{},
		mocks.PassthroughTxRunner(),
		nil,
	)

	f := &taskHandlerFixture{
		handler:   NewTaskHandler(taskService),
		taskStore: taskStore,
		ownerID:   uuid.New(),
		memberID:  uuid.New(),
		otherID:   uuid.New(),
	}

	task, err := domain.NewTask(
		f.ownerID,
		"Ship release notes",
		"Draft and publish",
		domain.PriorityHigh,
		domain.StatusPending,
		nil,
		[]string{"release"},
	)
	require.NoError(t, err)
	require.NoError(t, taskStore.Create(context.Background(), task))
	taskStore.AddShare(task.ID, f.memberID)
	f.task = task

	return f
}

// doRequest performs the handler call with the caller's ID in the request
// context and, when pathID is non-empty, the chi "id" parameter set.
func doRequest(
	t *testing.T,
	handler http.HandlerFunc,
	method string,
	callerID uuid.UUID,
	pathID string,
	payload any,
) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	target := "/api/tasks"
	if pathID != "" {
		target = "/api/tasks/" + pathID
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")

	ctx := context.WithValue(req.Context(), shared.UserIDContextKey, callerID)
	if pathID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", pathID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	req = req.WithContext(ctx)

	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func decodeTask(t *testing.T, recorder *httptest.ResponseRecorder) TaskResponse {
	t.Helper()
	var resp TaskResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	return resp
}

func TestTaskHandler_Create(t *testing.T) {
	t.Parallel()

	f := newTaskHandlerFixture(t)

	recorder := doRequest(t, f.handler.Create, "POST", f.ownerID, "", map[string]any{
		"title":    "Write changelog",
		"priority": "urgent",
		"tags":     []string{"Docs", " docs ", "release", ""},
	})

	require.Equal(t, http.StatusCreated, recorder.Code)
	resp := decodeTask(t, recorder)
	assert.Equal(t, "Write changelog", resp.Title)
	assert.Equal(t, "urgent", resp.Priority)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, []string{"Docs", "docs", "release"}, resp.Tags)
	assert.True(t, resp.IsOwner)
}

func TestTaskHandler_Create_Invalid(t *testing.T) {
	t.Parallel()

	f := newTaskHandlerFixture(t)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{name: "missing title", payload: map[string]any{"priority": "low"}},
		{name: "bad priority", payload: map[string]any{"title": "x", "priority": "asap"}},
		{name: "bad status", payload: map[string]any{"title": "x", "status": "paused"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := doRequest(t, f.handler.Create, "POST", f.ownerID, "", tt.payload)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)

			var resp shared.ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
			assert.Equal(t, CodeValidationError, resp.Code)
		})
	}
}

func TestTaskHandler_Get(t *testing.T) {
	t.Parallel()

	f := newTaskHandlerFixture(t)
	taskID := f.task.ID.String()

	t.Run("owner sees is_owner true", func(t *testing.T) {
		recorder := doRequest(t, f.handler.Get, "GET", f.ownerID, taskID, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		resp := decodeTask(t, recorder)
		assert.Equal(t, f.task.ID, resp.ID)
		assert.True(t, resp.IsOwner)
	})

	t.Run("shared member sees is_owner false", func(t *testing.T) {
		recorder := doRequest(t, f.handler.Get, "GET", f.memberID, taskID, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		resp := decodeTask(t, recorder)
		assert.False(t, resp.IsOwner)
	})

	t.Run("outsider gets 404", func(t *testing.T) {
		recorder := doRequest(t, f.handler.Get, "GET", f.otherID, taskID, nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		recorder := doRequest(t, f.handler.Get, "GET", f.ownerID, "not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestTaskHandler_NotFoundBodiesMatch(t *testing.T) {
	t.Parallel()

	f := newTaskHandlerFixture(t)

	forExisting := doRequest(t, f.handler.Get, "GET", f.otherID, f.task.ID.String(), nil)
	forMissing := doRequest(t, f.handler.Get, "GET", f.otherID, uuid.NewString(), nil)

	require.Equal(t, http.StatusNotFound, forExisting.Code)
	require.Equal(t, http.StatusNotFound, forMissing.Code)

	var respA, respB shared.ErrorResponse
	require.NoError(t, json.NewDecoder(forExisting.Body).Decode(&respA))
	require.NoError(t, json.NewDecoder(forMissing.Body).Decode(&respB))
	assert.Equal(t, respA.Error, respB.Error)
	assert.Equal(t, respA.Code, respB.Code)
}

func TestTaskHandler_Update(t *testing.T) {
	t.Parallel()

	f := newTaskHandlerFixture(t)
	taskID := f.task.ID.String()

	t.Run("owner patches a subset of fields", func(t *testing.T) {
		recorder := doRequest(t, f.handler.Update, "PATCH", f.ownerID, taskID, map[string]any{
			"status": "in_progress",
		})
		require.Equal(t, http.StatusOK, recorder.Code)
		resp := decodeTask(t, recorder)
		assert.Equal(t, "in_progress", resp.Status)
		assert.Equal(t, "Ship release notes", resp.Title)
	})

	t.Run("shared member is refused as not owner", func(t *testing.T) {
		recorder := doRequest(t, f.handler.Update, "PATCH", f.memberID, taskID, map[string]any{
			"title": "hijacked",
		})
		assert.Equal(t, http.StatusForbidden, recorder.Code)

		var resp shared.ErrorResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.Equal(t, CodeForbidden, resp.Code)
	})

	t.Run("outsider gets 404", func(t *testing.T) {
		recorder := doRequest(t, f.handler.Update, "PATCH", f.otherID, taskID, map[string]any{
			"title": "hijacked",
		})
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("due date set and cleared", func(t *testing.T) {
		due := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
		recorder := doRequest(t, f.handler.Update, "PUT", f.ownerID, taskID, map[string]any{
			"due_date": due.Format(time.RFC3339),
		})
		require.Equal(t, http.StatusOK, recorder.Code)
		resp := decodeTask(t, recorder)
		require.NotNil(t, resp.DueDate)
		assert.True(t, resp.DueDate.Equal(due))

		recorder = doRequest(t, f.handler.Update, "PATCH", f.ownerID, taskID, map[string]any{
			"clear_due_date": true,
		})
		require.Equal(t, http.StatusOK, recorder.Code)
		resp = decodeTask(t, recorder)
		assert.Nil(t, resp.DueDate)
	})
}

func TestTaskHandler_Delete(t *testing.T) {
	t.Parallel()

	f := newTaskHandlerFixture(t)
	taskID := f.task.ID.String()

	t.Run("shared member is refused", func(t *testing.T) {
		recorder := doRequest(t, f.handler.Delete, "DELETE", f.memberID, taskID, nil)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("owner deletes", func(t *testing.T) {
		recorder := doRequest(t, f.handler.Delete, "DELETE", f.ownerID, taskID, nil)
		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Empty(t, recorder.Body.Bytes())
	})

	t.Run("second delete is 404", func(t *testing.T) {
		recorder := doRequest(t, f.handler.Delete, "DELETE", f.ownerID, taskID, nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestTaskHandler_ToggleCompletion(t *testing.T) {
	t.Parallel()

	f := newTaskHandlerFixture(t)
	taskID := f.task.ID.String()

	t.Run("owner completes and reopens", func(t *testing.T) {
		recorder := doRequest(t, f.handler.ToggleCompletion, "PATCH", f.ownerID, taskID, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		resp := decodeTask(t, recorder)
		assert.True(t, resp.IsCompleted)
		assert.Equal(t, "completed", resp.Status)

		recorder = doRequest(t, f.handler.ToggleCompletion, "PATCH", f.ownerID, taskID, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		resp = decodeTask(t, recorder)
		assert.False(t, resp.IsCompleted)
		assert.Equal(t, "pending", resp.Status)
	})

	t.Run("shared member is refused", func(t *testing.T) {
		recorder := doRequest(t, f.handler.ToggleCompletion, "PATCH", f.memberID, taskID, nil)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("outsider gets 404", func(t *testing.T) {
		recorder := doRequest(t, f.handler.ToggleCompletion, "PATCH", f.otherID, taskID, nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func listRequest(
	t *testing.T,
	f *taskHandlerFixture,
	callerID uuid.UUID,
	query string,
) (*httptest.ResponseRecorder, PaginatedResponse) {
	t.Helper()

	req := httptest.NewRequest("GET", "/api/tasks"+query, nil)
	ctx := context.WithValue(req.Context(), shared.UserIDContextKey, callerID)
	req = req.WithContext(ctx)

	recorder := httptest.NewRecorder()
	f.handler.List(recorder, req)

	var resp PaginatedResponse
	if recorder.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	}
	return recorder, resp
}

func TestTaskHandler_List(t *testing.T) {
	t.Parallel()

	f := newTaskHandlerFixture(t)

	// Five more owned tasks on top of the shared fixture task.
	for i := 0; i < 5; i++ {
		task, err := domain.NewTask(
			f.ownerID,
			fmt.Sprintf("Task %d", i),
			"",
			domain.PriorityLow,
			domain.StatusPending,
			nil,
			nil,
		)
		require.NoError(t, err)
		require.NoError(t, f.taskStore.Create(context.Background(), task))
	}

	t.Run("owner sees all tasks", func(t *testing.T) {
		recorder, resp := listRequest(t, f, f.ownerID, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, 6, resp.Count)
		assert.Len(t, resp.Results, 6)
		assert.Nil(t, resp.Next)
		assert.Nil(t, resp.Previous)
	})

	t.Run("shared member sees only the shared task", func(t *testing.T) {
		recorder, resp := listRequest(t, f, f.memberID, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, f.task.ID, resp.Results[0].ID)
		assert.False(t, resp.Results[0].IsOwner)
	})

	t.Run("outsider sees nothing", func(t *testing.T) {
		recorder, resp := listRequest(t, f, f.otherID, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, 0, resp.Count)
		assert.Empty(t, resp.Results)
	})

	t.Run("priority filter", func(t *testing.T) {
		recorder, resp := listRequest(t, f, f.ownerID, "?priority=high")
		require.Equal(t, http.StatusOK, recorder.Code)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, f.task.ID, resp.Results[0].ID)
	})

	t.Run("priority ordering ranks urgency not alphabet", func(t *testing.T) {
		recorder, resp := listRequest(t, f, f.ownerID, "?ordering=-priority")
		require.Equal(t, http.StatusOK, recorder.Code)
		require.NotEmpty(t, resp.Results)
		assert.Equal(t, "high", resp.Results[0].Priority)
	})

	t.Run("pagination with next and previous links", func(t *testing.T) {
		recorder, resp := listRequest(t, f, f.ownerID, "?page=2&page_size=2")
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, 6, resp.Count)
		assert.Len(t, resp.Results, 2)
		require.NotNil(t, resp.Next)
		require.NotNil(t, resp.Previous)
		assert.Contains(t, *resp.Next, "page=3")
		assert.Contains(t, *resp.Previous, "page=1")
	})

	t.Run("last page has no next link", func(t *testing.T) {
		recorder, resp := listRequest(t, f, f.ownerID, "?page=3&page_size=2")
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Nil(t, resp.Next)
		require.NotNil(t, resp.Previous)
	})

	t.Run("invalid page is rejected", func(t *testing.T) {
		recorder, _ := listRequest(t, f, f.ownerID, "?page=zero")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("invalid ordering key is rejected", func(t *testing.T) {
		recorder, _ := listRequest(t, f, f.ownerID, "?ordering=color")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestTaskHandler_Stats(t *testing.T) {
	t.Parallel()

	f := newTaskHandlerFixture(t)

	completed, err := domain.NewTask(
		f.ownerID, "Done already", "", domain.PriorityLow, domain.StatusPending, nil, nil)
	require.NoError(t, err)
	completed.ToggleCompletion()
	require.NoError(t, f.taskStore.Create(context.Background(), completed))

	req := httptest.NewRequest("GET", "/api/tasks/stats", nil)
	ctx := context.WithValue(req.Context(), shared.UserIDContextKey, f.ownerID)
	req = req.WithContext(ctx)

	recorder := httptest.NewRecorder()
	f.handler.Stats(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp StatsResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Completed)
	assert.Equal(t, 1, resp.Pending)
	assert.InDelta(t, 50.0, resp.CompletionRate, 0.01)
	assert.Equal(t, 1, resp.PriorityBreakdown.High)
	assert.Equal(t, 1, resp.PriorityBreakdown.Low)
}
