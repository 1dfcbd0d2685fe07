package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/platform/logger"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// taskColumns is the column list shared by all task queries, qualified with
// the tasks table alias "t".
const taskColumns = `t.id, t.owner_id, t.title, t.description, t.priority, t.status,
	t.due_date, t.tags, t.is_completed, t.completed_at, t.created_at, t.updated_at`

// visibilityPredicate restricts task rows to those the given user may see:
// tasks they own or tasks shared with them. Used with the task id as one
// placeholder and the user id as another.
const visibilityPredicate = `(t.owner_id = %[1]s OR EXISTS (
		SELECT 1 FROM task_shares s WHERE s.task_id = t.id AND s.user_id = %[1]s))`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		INSERT INTO tasks (id, owner_id, title, description, priority, status,
			due_date, tags, is_completed, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		tags,
		task.IsCompleted,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err, "") {
			log.Warn("foreign key violation during task creation",
				slog.String("task_id", task.ID.String()),
				slog.String("owner_id", task.OwnerID.String()))
			return fmt.Errorf("%w: owner with ID %s not found",
				store.ErrInvalidEntity, task.OwnerID)
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", task.OwnerID.String()))
	return nil
}

// FindForUser implements store.TaskStore.FindForUser
// The single query both loads the task and applies the visibility rule, so a
// task the user cannot see is indistinguishable from an absent one.
func (s *PostgresTaskStore) FindForUser(
	ctx context.Context,
	taskID, userID uuid.UUID,
	lockForUpdate bool,
) (*domain.Task, store.Relation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := fmt.Sprintf(`
		SELECT %s, (t.owner_id = $2) AS is_owner
		FROM tasks t
		WHERE t.id = $1 AND %s`,
		taskColumns,
		fmt.Sprintf(visibilityPredicate, "$2"),
	)
	if lockForUpdate {
		query += "\n\t\tFOR UPDATE OF t"
	}

	var isOwner bool
	task, err := scanTask(s.db.QueryRowContext(ctx, query, taskID, userID), &isOwner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not visible to user",
				slog.String("task_id", taskID.String()),
				slog.String("user_id", userID.String()))
			return nil, store.RelationNone, store.ErrTaskNotFound
		}
		log.Error("failed to find task for user",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, store.RelationNone, err
	}

	relation := store.RelationShared
	if isOwner {
		relation = store.RelationOwner
	}
	return task, relation, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, priority = $3, status = $4,
			due_date = $5, tags = $6, is_completed = $7, completed_at = $8,
			updated_at = $9
		WHERE id = $10
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		tags,
		task.IsCompleted,
		task.CompletedAt,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}
	if rowsAffected == 0 {
		log.Debug("task not found for update",
			slog.String("task_id", task.ID.String()))
		return store.ErrTaskNotFound
	}

	log.Info("task updated successfully",
		slog.String("task_id", task.ID.String()))
	return nil
}

// Delete implements store.TaskStore.Delete
// Share entries are removed by the ON DELETE CASCADE constraint on
// task_shares.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return err
	}
	if rowsAffected == 0 {
		log.Debug("task not found for delete",
			slog.String("task_id", id.String()))
		return store.ErrTaskNotFound
	}

	log.Info("task deleted successfully",
		slog.String("task_id", id.String()))
	return nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filter store.TaskFilter,
	ordering string,
	page store.Page,
) ([]*domain.Task, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := buildTaskPredicates(userID, filter)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tasks t WHERE %s`, where)
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count visible tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, err
	}

	orderClause, err := buildOrderClause(ordering)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks t
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		taskColumns, where, orderClause, len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query visible tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTaskFromRows(rows)
		if err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()))
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, 0, err
	}

	log.Debug("listed visible tasks",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(tasks)),
		slog.Int("total", total))
	return tasks, total, nil
}

// CountStats implements store.TaskStore.CountStats
func (s *PostgresTaskStore) CountStats(
	ctx context.Context,
	userID uuid.UUID,
) (*store.TaskStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE due_date < NOW()
				AND status <> 'completed'),
			COUNT(*) FILTER (WHERE priority = 'urgent'),
			COUNT(*) FILTER (WHERE priority = 'high'),
			COUNT(*) FILTER (WHERE priority = 'medium'),
			COUNT(*) FILTER (WHERE priority = 'low')
		FROM tasks
		WHERE owner_id = $1
	`

	var stats store.TaskStats
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.Total,
		&stats.Completed,
		&stats.Pending,
		&stats.InProgress,
		&stats.Overdue,
		&stats.ByPriority.Urgent,
		&stats.ByPriority.High,
		&stats.ByPriority.Medium,
		&stats.ByPriority.Low,
	)
	if err != nil {
		log.Error("failed to count task stats",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}

	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total) * 100
	}
	return &stats, nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// buildTaskPredicates assembles the WHERE clause and arguments for listing
// the tasks visible to userID under the given filter.
func buildTaskPredicates(userID uuid.UUID, filter store.TaskFilter) (string, []any) {
	args := []any{userID}
	conditions := []string{fmt.Sprintf(visibilityPredicate, "$1")}

	next := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conditions = append(conditions, "t.status = "+next(filter.Status))
	}
	if filter.Priority != "" {
		conditions = append(conditions, "t.priority = "+next(filter.Priority))
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		placeholder := next(pattern)
		conditions = append(conditions, fmt.Sprintf(
			`(t.title ILIKE %[1]s OR t.description ILIKE %[1]s OR EXISTS (
				SELECT 1 FROM jsonb_array_elements_text(t.tags) tag
				WHERE tag ILIKE %[1]s))`,
			placeholder))
	}
	if filter.DueFrom != nil {
		conditions = append(conditions, "t.due_date >= "+next(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		conditions = append(conditions, "t.due_date <= "+next(*filter.DueTo))
	}
	if filter.OverdueOnly {
		conditions = append(conditions,
			"t.due_date < "+next(time.Now().UTC()),
			"t.status IN ('pending', 'in_progress')")
	}

	return strings.Join(conditions, " AND "), args
}

// buildOrderClause maps an ordering key (optionally '-'-prefixed for
// descending) to a SQL ORDER BY expression. Priority orders by rank rather
// than lexically. The task id is appended as a tiebreaker so pagination is
// stable.
func buildOrderClause(ordering string) (string, error) {
	if ordering == "" {
		ordering = "-" + store.OrderCreatedAt
	}

	direction := "ASC"
	key := ordering
	if strings.HasPrefix(ordering, "-") {
		direction = "DESC"
		key = ordering[1:]
	}

	var expr string
	switch key {
	case store.OrderCreatedAt:
		expr = "t.created_at"
	case store.OrderTitle:
		expr = "t.title"
	case store.OrderDueDate:
		expr = "t.due_date"
	case store.OrderPriority:
		expr = `CASE t.priority
			WHEN 'low' THEN 1 WHEN 'medium' THEN 2
			WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 END`
	default:
		return "", fmt.Errorf("%w: unknown ordering key %q", store.ErrInvalidEntity, key)
	}

	return fmt.Sprintf("%s %s, t.id", expr, direction), nil
}

// escapeLike escapes LIKE metacharacters in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads a task row, decoding the JSONB tags column. extra receives
// any trailing selected expressions (e.g. the is_owner flag).
func scanTask(row rowScanner, extra ...any) (*domain.Task, error) {
	var task domain.Task
	var tags []byte

	dest := []any{
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Status,
		&task.DueDate,
		&tags,
		&task.IsCompleted,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &task.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}

	return &task, nil
}

// scanTaskFromRows reads the current row of a result set into a task.
func scanTaskFromRows(rows *sql.Rows) (*domain.Task, error) {
	return scanTask(rows)
}
