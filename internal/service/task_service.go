package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/platform/redisstore"
	"github.com/taskdeck/taskdeck-api/internal/service/authz"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// CreateTaskInput carries the caller-supplied fields for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    domain.TaskPriority
	Status      domain.TaskStatus
	DueDate     *time.Time
	Tags        []string
}

// UpdateTaskInput carries a task update. Nil fields are left unchanged, which
// gives PATCH semantics; handlers implementing PUT populate every field.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *domain.TaskPriority
	Status      *domain.TaskStatus
	DueDate     *time.Time
	ClearDue    bool // remove the due date; DueDate must be nil
	Tags        []string
}

// ListTasksInput bundles the filter, ordering and pagination of a list call.
type ListTasksInput struct {
	Filter   store.TaskFilter
	Ordering string
	Page     store.Page
}

// TaskService implements the task operations on top of the store, the
// authorization engine and the secondary mirror.
type TaskService struct {
	tasks  store.TaskStore
	engine *authz.Engine
	mirror redisstore.TaskMirror
	runTx  store.TxRunner
	logger *slog.Logger
}

// NewTaskService creates a task service. mirror may not be nil; pass the
// no-op mirror when Redis is not configured.
func NewTaskService(
	tasks store.TaskStore,
	engine *authz.Engine,
	mirror redisstore.TaskMirror,
	runTx store.TxRunner,
	logger *slog.Logger,
) *TaskService {
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if engine == nil {
		panic("engine cannot be nil")
	}
	if mirror == nil {
		panic("mirror cannot be nil")
	}
	if runTx == nil {
		panic("runTx cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskService{
		tasks:  tasks,
		engine: engine,
		mirror: mirror,
		runTx:  runTx,
		logger: logger.With(slog.String("component", "task_service")),
	}
}

// Create makes a new task owned by the caller and mirrors it.
func (s *TaskService) Create(
	ctx context.Context,
	ownerID uuid.UUID,
	input CreateTaskInput,
) (*domain.Task, error) {
	task, err := domain.NewTask(
		ownerID,
		input.Title,
		input.Description,
		input.Priority,
		input.Status,
		input.DueDate,
		input.Tags,
	)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.mirror.MirrorUpsert(ctx, task)
	return task, nil
}

// Get returns the task if the caller is its owner or a shared member, along
// with the caller's relation to it.
func (s *TaskService) Get(
	ctx context.Context,
	callerID, taskID uuid.UUID,
) (*domain.Task, store.Relation, error) {
	return s.engine.Authorize(ctx, callerID, taskID, authz.ActionView, false)
}

// Update applies the input to the task. Owner-only; shared members get the
// not-owner error, outsiders not-found. Runs in a transaction with the task
// row locked so concurrent updates serialize.
func (s *TaskService) Update(
	ctx context.Context,
	callerID, taskID uuid.UUID,
	input UpdateTaskInput,
) (*domain.Task, error) {
	var updated *domain.Task

	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		task, _, err := s.engine.WithTx(txTasks).Authorize(
			ctx, callerID, taskID, authz.ActionEdit, true)
		if err != nil {
			return err
		}

		if err := applyUpdate(task, input); err != nil {
			return err
		}
		if err := txTasks.Update(ctx, task); err != nil {
			return err
		}

		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mirror.MirrorUpsert(ctx, updated)
	return updated, nil
}

// Delete removes the task. Owner-only. Share entries cascade away with it.
func (s *TaskService) Delete(ctx context.Context, callerID, taskID uuid.UUID) error {
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		if _, _, err := s.engine.WithTx(txTasks).Authorize(
			ctx, callerID, taskID, authz.ActionDelete, true); err != nil {
			return err
		}

		return txTasks.Delete(ctx, taskID)
	})
	if err != nil {
		return err
	}

	s.mirror.MirrorDelete(ctx, taskID)
	return nil
}

// ToggleCompletion flips the task between completed and pending. Owner-only,
// with the completion-specific denial for shared members.
func (s *TaskService) ToggleCompletion(
	ctx context.Context,
	callerID, taskID uuid.UUID,
) (*domain.Task, error) {
	var updated *domain.Task

	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		task, _, err := s.engine.WithTx(txTasks).Authorize(
			ctx, callerID, taskID, authz.ActionToggleCompletion, true)
		if err != nil {
			return err
		}

		task.ToggleCompletion()
		if err := txTasks.Update(ctx, task); err != nil {
			return err
		}

		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mirror.MirrorUpsert(ctx, updated)
	return updated, nil
}

// List returns the page of tasks visible to the caller plus the total match
// count.
func (s *TaskService) List(
	ctx context.Context,
	callerID uuid.UUID,
	input ListTasksInput,
) ([]*domain.Task, int, error) {
	return s.tasks.List(ctx, callerID, input.Filter, input.Ordering, input.Page)
}

// Stats aggregates the caller's owned tasks.
func (s *TaskService) Stats(ctx context.Context, callerID uuid.UUID) (*store.TaskStats, error) {
	return s.tasks.CountStats(ctx, callerID)
}

func applyUpdate(task *domain.Task, input UpdateTaskInput) error {
	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.Status != nil {
		if err := task.ApplyStatus(*input.Status); err != nil {
			return err
		}
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	} else if input.ClearDue {
		task.DueDate = nil
	}
	if input.Tags != nil {
		task.Tags = domain.NormalizeTags(input.Tags)
	}
	task.UpdatedAt = time.Now().UTC()
	return nil
}
