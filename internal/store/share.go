package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck-api/internal/domain"
)

// ShareStore defines the interface for the task sharing relation. It is an
// owned join-table abstraction: rows pair a task with a user it is shared
// with, and the owner must never appear in their own task's share set;
// the sharing manager enforces that before calling Add.
type ShareStore interface {
	// Add inserts the user into the task's share set.
	// Returns ErrAlreadyShared if the user is already a member.
	// Returns ErrTaskNotFound if the task no longer exists.
	Add(ctx context.Context, taskID, userID uuid.UUID) error

	// Remove deletes the user from the task's share set.
	// Returns ErrNotShared if the user is not currently a member.
	Remove(ctx context.Context, taskID, userID uuid.UUID) error

	// ListMembers returns the public profiles of all users the task is
	// shared with, in the order they were added. Returns an empty slice
	// when the task has no members.
	ListMembers(ctx context.Context, taskID uuid.UUID) ([]domain.Profile, error)

	// WithTx returns a new ShareStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) ShareStore
}
