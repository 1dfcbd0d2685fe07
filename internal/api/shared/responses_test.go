package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	t.Run("writes body and content type", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)

		RespondWithJSON(recorder, req, http.StatusOK, map[string]string{"hello": "world"})

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
		assert.Equal(t, "world", body["hello"])
	})

	t.Run("no body on 204", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/test", nil)

		RespondWithJSON(recorder, req, http.StatusNoContent, nil)

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Empty(t, recorder.Body.Bytes())
	})
}

func TestRespondWithError(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req = req.WithContext(SetTraceID(req.Context()))

	RespondWithError(recorder, req, http.StatusNotFound, "not_found", "Task not found")

	assert.Equal(t, http.StatusNotFound, recorder.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "Task not found", resp.Error)
	assert.Equal(t, "not_found", resp.Code)
	assert.Empty(t, resp.Fields)
	assert.Len(t, resp.TraceID, 32, "trace ID should come from the request context")
}

func TestRespondWithError_Fields(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/test", nil)

	RespondWithError(recorder, req, http.StatusBadRequest, "validation_error", "Validation failed",
		WithFields(map[string]string{"email": "must be a valid email address"}))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "must be a valid email address", resp.Fields["email"])
}

func TestRespondWithErrorAndLog_HidesInternalDetail(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)

	internalErr := errors.New("pq: connection to postgres://user:hunter2@db:5432 failed")
	RespondWithErrorAndLog(recorder, req, http.StatusInternalServerError,
		"internal_error", "An unexpected error occurred", internalErr)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	raw := recorder.Body.String()
	assert.NotContains(t, raw, "hunter2")
	assert.NotContains(t, raw, "postgres://")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	assert.Equal(t, "An unexpected error occurred", resp.Error)
}

func TestRespondWithErrorAndLog_NilError(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req = req.WithContext(context.Background())

	RespondWithErrorAndLog(recorder, req, http.StatusBadRequest,
		"validation_error", "Validation failed", nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
