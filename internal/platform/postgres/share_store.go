package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/platform/logger"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// PostgresShareStore implements the store.ShareStore interface
// using a PostgreSQL database as the storage backend.
type PostgresShareStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresShareStore creates a new PostgreSQL implementation of the
// ShareStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
func NewPostgresShareStore(db store.DBTX, logger *slog.Logger) *PostgresShareStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresShareStore{
		db:     db,
		logger: logger.With(slog.String("component", "share_store")),
	}
}

// Ensure PostgresShareStore implements store.ShareStore interface
var _ store.ShareStore = (*PostgresShareStore)(nil)

// Add implements store.ShareStore.Add
func (s *PostgresShareStore) Add(ctx context.Context, taskID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO task_shares (task_id, user_id, created_at)
		VALUES ($1, $2, NOW())
	`
	_, err := s.db.ExecContext(ctx, query, taskID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("task already shared with user",
				slog.String("task_id", taskID.String()),
				slog.String("user_id", userID.String()))
			return store.ErrAlreadyShared
		}
		// The task may have been deleted between the caller's lookup and the
		// insert; the foreign key catches that race.
		if isForeignKeyViolation(err, "task_shares_task_id_fkey") {
			log.Debug("task vanished before share insert",
				slog.String("task_id", taskID.String()))
			return store.ErrTaskNotFound
		}
		if isForeignKeyViolation(err, "task_shares_user_id_fkey") {
			log.Debug("user vanished before share insert",
				slog.String("user_id", userID.String()))
			return store.ErrUserNotFound
		}

		log.Error("failed to add share",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return err
	}

	log.Info("task shared",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// Remove implements store.ShareStore.Remove
func (s *PostgresShareStore) Remove(ctx context.Context, taskID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM task_shares WHERE task_id = $1 AND user_id = $2`
	result, err := s.db.ExecContext(ctx, query, taskID, userID)
	if err != nil {
		log.Error("failed to remove share",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return err
	}
	if rowsAffected == 0 {
		log.Debug("no share entry to remove",
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return store.ErrNotShared
	}

	log.Info("task unshared",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// ListMembers implements store.ShareStore.ListMembers
func (s *PostgresShareStore) ListMembers(
	ctx context.Context,
	taskID uuid.UUID,
) ([]domain.Profile, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT u.id, u.email, u.display_name
		FROM task_shares s
		JOIN users u ON u.id = s.user_id
		WHERE s.task_id = $1
		ORDER BY s.created_at, u.id
	`
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		log.Error("failed to list share members",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	members := []domain.Profile{}
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.DisplayName); err != nil {
			log.Error("failed to scan member row",
				slog.String("error", err.Error()))
			return nil, err
		}
		members = append(members, p)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return members, nil
}

// WithTx implements store.ShareStore.WithTx
func (s *PostgresShareStore) WithTx(tx *sql.Tx) store.ShareStore {
	return &PostgresShareStore{
		db:     tx,
		logger: s.logger,
	}
}
