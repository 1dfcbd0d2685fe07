// Package authz decides what a caller may do with a task. Every task-scoped
// operation goes through Authorize, which combines the access-scoped lookup
// with the permission rules so handlers never have to reason about ownership
// themselves.
package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// Action is a task operation subject to authorization.
type Action string

// Task actions
const (
	ActionView             Action = "view"
	ActionEdit             Action = "edit"
	ActionDelete           Action = "delete"
	ActionToggleCompletion Action = "toggle_completion"
	ActionManageSharing    Action = "manage_sharing"
)

// Authorization errors
var (
	// ErrNotOwner is returned when a shared member attempts a mutating
	// action. Distinct from not-found: the member may see the task, just
	// not change it.
	ErrNotOwner = errors.New("only the task owner may perform this action")

	// ErrOwnerOnlyCompletion carries the completion-specific denial message.
	ErrOwnerOnlyCompletion = errors.New("only the task owner may change completion status")
)

// Engine evaluates the access rules against the task store.
type Engine struct {
	tasks store.TaskStore
}

// NewEngine creates an authorization engine over the given task store.
func NewEngine(tasks store.TaskStore) *Engine {
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	return &Engine{tasks: tasks}
}

// WithTx returns an engine bound to the transactional task store. Used by
// services that authorize inside a transaction with the row locked.
func (e *Engine) WithTx(tasks store.TaskStore) *Engine {
	return &Engine{tasks: tasks}
}

// Authorize loads the task and checks that the caller may perform the action
// on it. The rules, in order:
//
//  1. The owner may perform every action.
//  2. A shared member may view.
//  3. A shared member attempting any other action gets ErrNotOwner
//     (ErrOwnerOnlyCompletion for toggle_completion).
//  4. Anyone else gets store.ErrTaskNotFound, byte-identical to a
//     nonexistent task id.
//
// When lockForUpdate is true the underlying lookup locks the task row; the
// engine must then be bound to a transaction via WithTx.
func (e *Engine) Authorize(
	ctx context.Context,
	callerID, taskID uuid.UUID,
	action Action,
	lockForUpdate bool,
) (*domain.Task, store.Relation, error) {
	task, relation, err := e.tasks.FindForUser(ctx, taskID, callerID, lockForUpdate)
	if err != nil {
		return nil, store.RelationNone, err
	}

	if relation == store.RelationOwner {
		return task, relation, nil
	}

	// Shared members have read-only access.
	if action == ActionView {
		return task, relation, nil
	}
	if action == ActionToggleCompletion {
		return nil, relation, ErrOwnerOnlyCompletion
	}
	return nil, relation, ErrNotOwner
}
