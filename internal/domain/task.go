package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskPriority represents the priority level of a task.
type TaskPriority string

// Possible task priority values, ordered low to urgent.
const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Rank returns the numeric ordering rank of the priority (low=1 .. urgent=4).
// Used for priority ordering instead of lexical comparison.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 0
	}
}

// TaskStatus represents the workflow state of a task.
type TaskStatus string

// Possible task status values
const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Common validation errors for Task. All wrap ErrValidation so callers can
// classify them with a single errors.Is check.
var (
	ErrEmptyTaskID      = fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	ErrEmptyTaskOwnerID = fmt.Errorf("%w: task owner ID cannot be empty", ErrValidation)
	ErrEmptyTaskTitle   = fmt.Errorf("%w: task title cannot be empty", ErrValidation)
	ErrTaskTitleTooLong = fmt.Errorf("%w: task title must be at most 200 characters", ErrValidation)
	ErrInvalidPriority  = fmt.Errorf("%w: invalid task priority", ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: invalid task status", ErrValidation)
)

// Task represents a single to-do item owned by a user and optionally shared
// with other users. IsCompleted and CompletedAt are derived from Status:
// IsCompleted is true exactly when Status is completed, and CompletedAt is
// set at the transition into completed and cleared on leaving it.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	OwnerID     uuid.UUID    `json:"owner_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	DueDate     *time.Time   `json:"due_date"`
	Tags        []string     `json:"tags"`
	IsCompleted bool         `json:"is_completed"`
	CompletedAt *time.Time   `json:"completed_at"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewTask creates a new Task owned by the given user. Empty priority and
// status default to medium and pending. Tags are normalized.
// Returns an error if validation fails.
func NewTask(
	ownerID uuid.UUID,
	title, description string,
	priority TaskPriority,
	status TaskStatus,
	dueDate *time.Time,
	tags []string,
) (*Task, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	if status == "" {
		status = StatusPending
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Priority:    priority,
		Status:      status,
		DueDate:     dueDate,
		Tags:        NormalizeTags(tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	task.syncCompletion(now)

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.OwnerID == uuid.Nil {
		return ErrEmptyTaskOwnerID
	}

	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTaskTitle
	}

	if utf8.RuneCountInString(t.Title) > 200 {
		return ErrTaskTitleTooLong
	}

	if !isValidPriority(t.Priority) {
		return ErrInvalidPriority
	}

	if !isValidStatus(t.Status) {
		return ErrInvalidStatus
	}

	return nil
}

// ApplyStatus sets a new status and reconciles the derived completion fields,
// bumping UpdatedAt. Returns an error if the status is invalid.
func (t *Task) ApplyStatus(status TaskStatus) error {
	if !isValidStatus(status) {
		return ErrInvalidStatus
	}

	now := time.Now().UTC()
	t.Status = status
	t.syncCompletion(now)
	t.UpdatedAt = now
	return nil
}

// ToggleCompletion flips the task between completed and pending.
// A non-completed task (pending, in_progress or cancelled) becomes completed
// with CompletedAt set; a completed task returns to pending with CompletedAt
// cleared.
func (t *Task) ToggleCompletion() {
	now := time.Now().UTC()
	if t.IsCompleted {
		t.Status = StatusPending
	} else {
		t.Status = StatusCompleted
	}
	t.syncCompletion(now)
	t.UpdatedAt = now
}

// syncCompletion enforces the invariant IsCompleted == (Status == completed)
// and keeps CompletedAt consistent with it.
func (t *Task) syncCompletion(now time.Time) {
	if t.Status == StatusCompleted {
		t.IsCompleted = true
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
	} else {
		t.IsCompleted = false
		t.CompletedAt = nil
	}
}

// IsOverdue reports whether the task is past its due date and not completed.
// Cancelled tasks past their due date still count as overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsCompleted {
		return false
	}
	return now.After(*t.DueDate)
}

// DaysUntilDue returns the whole number of days until the due date, rounded
// toward negative infinity so a task 12 hours past due reports -1, not 0.
// Returns false when the task has no due date.
func (t *Task) DaysUntilDue(now time.Time) (int, bool) {
	if t.DueDate == nil {
		return 0, false
	}
	const day = 24 * time.Hour
	d := t.DueDate.Sub(now)
	days := d / day
	if d%day < 0 {
		days--
	}
	return int(days), true
}

// NormalizeTags trims whitespace from each tag and drops empties,
// preserving order.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			normalized = append(normalized, tag)
		}
	}
	return normalized
}

// isValidPriority checks if the given priority is a valid TaskPriority.
func isValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// isValidStatus checks if the given status is a valid TaskStatus.
func isValidStatus(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}
