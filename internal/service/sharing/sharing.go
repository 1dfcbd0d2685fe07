// Package sharing manages a task's share list: who a task is shared with,
// granting access, and revoking it. Only owners may change the list; shared
// members may inspect it.
package sharing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/service/authz"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// Sharing errors
var (
	// ErrSelfShare is returned when an owner tries to share a task with
	// themselves.
	ErrSelfShare = errors.New("cannot share a task with its owner")
)

// SharedUsers is the share list of a task as seen by a caller with access.
type SharedUsers struct {
	Owner         domain.Profile
	Members       []domain.Profile
	CallerIsOwner bool
}

// Manager implements the sharing operations.
type Manager struct {
	tasks  store.TaskStore
	shares store.ShareStore
	users  store.UserStore
	engine *authz.Engine
	runTx  store.TxRunner
	logger *slog.Logger
}

// NewManager creates a sharing manager.
func NewManager(
	tasks store.TaskStore,
	shares store.ShareStore,
	users store.UserStore,
	engine *authz.Engine,
	runTx store.TxRunner,
	logger *slog.Logger,
) *Manager {
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if shares == nil {
		panic("shares cannot be nil")
	}
	if users == nil {
		panic("users cannot be nil")
	}
	if engine == nil {
		panic("engine cannot be nil")
	}
	if runTx == nil {
		panic("runTx cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		tasks:  tasks,
		shares: shares,
		users:  users,
		engine: engine,
		runTx:  runTx,
		logger: logger.With(slog.String("component", "sharing_manager")),
	}
}

// Share grants the user identified by email view access to the task. The
// preconditions are checked in a fixed order so the caller always sees the
// most fundamental failure first: access to the task (not-found for
// outsiders, then owner-only), then target existence, then the self-share
// and duplicate conflicts.
func (m *Manager) Share(
	ctx context.Context,
	callerID, taskID uuid.UUID,
	email string,
) (*domain.Profile, error) {
	var profile *domain.Profile

	err := m.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		engine := m.engine.WithTx(m.tasks.WithTx(tx))
		task, _, err := engine.Authorize(ctx, callerID, taskID, authz.ActionManageSharing, true)
		if err != nil {
			return err
		}

		target, err := m.users.WithTx(tx).GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		if target.ID == task.OwnerID {
			return ErrSelfShare
		}

		if err := m.shares.WithTx(tx).Add(ctx, taskID, target.ID); err != nil {
			return err
		}

		p := target.Profile()
		profile = &p
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "task shared",
		slog.String("task_id", taskID.String()),
		slog.String("owner_id", callerID.String()),
		slog.String("member_id", profile.ID.String()))
	return profile, nil
}

// Unshare revokes the target user's access to the task. Owner-only; removing
// a user the task is not shared with returns store.ErrNotShared.
func (m *Manager) Unshare(
	ctx context.Context,
	callerID, taskID, targetUserID uuid.UUID,
) error {
	err := m.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		engine := m.engine.WithTx(m.tasks.WithTx(tx))
		if _, _, err := engine.Authorize(ctx, callerID, taskID, authz.ActionManageSharing, true); err != nil {
			return err
		}

		return m.shares.WithTx(tx).Remove(ctx, taskID, targetUserID)
	})
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "task unshared",
		slog.String("task_id", taskID.String()),
		slog.String("owner_id", callerID.String()),
		slog.String("member_id", targetUserID.String()))
	return nil
}

// ListShared returns the owner, the share list and whether the caller is the
// owner. Available to the owner and to shared members.
func (m *Manager) ListShared(
	ctx context.Context,
	callerID, taskID uuid.UUID,
) (*SharedUsers, error) {
	task, relation, err := m.engine.Authorize(ctx, callerID, taskID, authz.ActionView, false)
	if err != nil {
		return nil, err
	}

	owner, err := m.users.GetByID(ctx, task.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task owner: %w", err)
	}

	members, err := m.shares.ListMembers(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return &SharedUsers{
		Owner:         owner.Profile(),
		Members:       members,
		CallerIsOwner: relation == store.RelationOwner,
	}, nil
}
