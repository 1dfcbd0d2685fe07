package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/taskdeck/taskdeck-api/internal/api/shared"
	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/service"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// Pagination bounds
const (
	defaultPageSize = 20
	maxPageSize     = 1000
)

// TaskHandler handles task CRUD, listing and completion-toggle requests.
type TaskHandler struct {
	taskService *service.TaskService
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	if taskService == nil {
		panic("taskService cannot be nil")
	}
	return &TaskHandler{taskService: taskService}
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Create(r.Context(), userID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TaskPriority(req.Priority),
		Status:      domain.TaskStatus(req.Status),
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, newTaskResponse(task, store.RelationOwner))
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, relation, err := h.taskService.Get(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(task, relation))
}

// Update handles PUT and PATCH /api/tasks/{id}. Both apply the present
// fields; PUT bodies simply carry all of them.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	input := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDue,
		Tags:        req.Tags,
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		input.Priority = &p
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		input.Status = &s
	}

	task, err := h.taskService.Update(r.Context(), userID, taskID, input)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(task, store.RelationOwner))
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), userID, taskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// ToggleCompletion handles PATCH /api/tasks/{id}/toggle.
func (h *TaskHandler) ToggleCompletion(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskService.ToggleCompletion(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(task, store.RelationOwner))
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	input, err := parseListQuery(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, total, err := h.taskService.List(r.Context(), userID, *input)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	results := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		relation := store.RelationShared
		if task.OwnerID == userID {
			relation = store.RelationOwner
		}
		results = append(results, newTaskResponse(task, relation))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PaginatedResponse{
		Count:    total,
		Next:     pageURL(r.URL, input.Page, total, +1),
		Previous: pageURL(r.URL, input.Page, total, -1),
		Results:  results,
	})
}

// Stats handles GET /api/tasks/stats.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	stats, err := h.taskService.Stats(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newStatsResponse(stats))
}

// parseListQuery turns the list endpoint's query parameters into the service
// input, applying pagination bounds.
func parseListQuery(query url.Values) (*service.ListTasksInput, error) {
	input := &service.ListTasksInput{
		Ordering: query.Get("ordering"),
		Page:     store.Page{Number: 1, Size: defaultPageSize},
	}

	if v := query.Get("status"); v != "" {
		input.Filter.Status = domain.TaskStatus(v)
	}
	if v := query.Get("priority"); v != "" {
		input.Filter.Priority = domain.TaskPriority(v)
	}
	input.Filter.Search = query.Get("search")

	if v := query.Get("due_date_from"); v != "" {
		ts, err := parseQueryTime(v)
		if err != nil {
			return nil, domain.NewValidationError("due_date_from", "has invalid format", domain.ErrValidation)
		}
		input.Filter.DueFrom = &ts
	}
	if v := query.Get("due_date_to"); v != "" {
		ts, err := parseQueryTime(v)
		if err != nil {
			return nil, domain.NewValidationError("due_date_to", "has invalid format", domain.ErrValidation)
		}
		input.Filter.DueTo = &ts
	}
	if v := query.Get("overdue"); v == "true" || v == "1" {
		input.Filter.OverdueOnly = true
	}

	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return nil, domain.NewValidationError("page", "must be a positive integer", domain.ErrValidation)
		}
		input.Page.Number = page
	}
	if v := query.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return nil, domain.NewValidationError("page_size", "must be a positive integer", domain.ErrValidation)
		}
		if size > maxPageSize {
			size = maxPageSize
		}
		input.Page.Size = size
	}

	return input, nil
}

func parseQueryTime(v string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", v)
}

// pageURL builds the relative URL of the adjacent page, or nil past either
// edge of the result set.
func pageURL(u *url.URL, page store.Page, total, direction int) *string {
	target := page.Number + direction
	if target < 1 {
		return nil
	}
	if direction > 0 && page.Number*page.Size >= total {
		return nil
	}
	if direction < 0 && page.Number <= 1 {
		return nil
	}

	copied := *u
	query := copied.Query()
	query.Set("page", fmt.Sprintf("%d", target))
	copied.RawQuery = query.Encode()
	s := copied.String()
	return &s
}
