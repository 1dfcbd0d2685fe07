package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck-api/internal/domain"
)

// Relation describes the relationship between a user and a task.
type Relation int

// Possible relation values
const (
	// RelationNone means the user has no access to the task.
	RelationNone Relation = iota
	// RelationOwner means the user created the task and holds all rights.
	RelationOwner
	// RelationShared means the task was shared with the user (view only).
	RelationShared
)

// TaskFilter holds the optional criteria for listing visible tasks.
// Zero values mean "no constraint".
type TaskFilter struct {
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	Search      string // case-insensitive substring over title, description and tags
	DueFrom     *time.Time
	DueTo       *time.Time
	OverdueOnly bool
}

// Ordering keys accepted by TaskStore.List. A leading '-' reverses the order.
const (
	OrderCreatedAt = "created_at"
	OrderTitle     = "title"
	OrderDueDate   = "due_date"
	OrderPriority  = "priority" // ordered by rank low=1..urgent=4, not lexically
)

// Page describes a pagination window. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// TaskStats aggregates a user's owned tasks for the stats endpoint.
type TaskStats struct {
	Total          int
	Completed      int
	Pending        int
	InProgress     int
	Overdue        int
	CompletionRate float64
	ByPriority     PriorityBreakdown
}

// PriorityBreakdown counts owned tasks per priority level.
type PriorityBreakdown struct {
	Urgent int
	High   int
	Medium int
	Low    int
}

// TaskStore defines the interface for task data persistence, including the
// access-scoped lookups the authorization rules depend on.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors from the domain Task if data is invalid.
	// Returns ErrInvalidEntity if the owner does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// FindForUser retrieves a task only if the given user is its owner or a
	// shared member, along with the user's relation to it. Any other case,
	// including a task id that exists but belongs to someone else, returns
	// ErrTaskNotFound, so existence never leaks to non-members.
	//
	// When lockForUpdate is true the task row is locked until the surrounding
	// transaction ends; callers must then be operating on a store bound to a
	// transaction via WithTx.
	FindForUser(
		ctx context.Context,
		taskID, userID uuid.UUID,
		lockForUpdate bool,
	) (*domain.Task, Relation, error)

	// Update persists all mutable fields of an existing task, including the
	// derived completion fields. Returns ErrTaskNotFound if the task no
	// longer exists.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task by its ID. Share entries are removed by the
	// database's cascading delete. Returns ErrTaskNotFound if the task does
	// not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns the page of tasks visible to the user (owned or shared
	// with them) matching the filter, plus the total match count.
	// ordering is one of the Order* keys, optionally prefixed with '-';
	// empty means "-created_at".
	List(
		ctx context.Context,
		userID uuid.UUID,
		filter TaskFilter,
		ordering string,
		page Page,
	) ([]*domain.Task, int, error)

	// CountStats aggregates the user's owned tasks.
	CountStats(ctx context.Context, userID uuid.UUID) (*TaskStats, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
