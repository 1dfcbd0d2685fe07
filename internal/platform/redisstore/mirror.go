package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/taskdeck/taskdeck-api/internal/domain"
)

// mirrorWriteTimeout bounds each mirror operation so a slow Redis can never
// hold up the request that triggered it.
const mirrorWriteTimeout = 2 * time.Second

// TaskMirror receives best-effort copies of task documents after the primary
// store has committed. Implementations must never return an error to the
// caller path; failures are logged and swallowed.
type TaskMirror interface {
	// MirrorUpsert writes the current state of the task to the mirror.
	MirrorUpsert(ctx context.Context, task *domain.Task)
	// MirrorDelete removes the task document from the mirror.
	MirrorDelete(ctx context.Context, taskID uuid.UUID)
}

// RedisTaskMirror mirrors task documents into Redis as JSON values keyed by
// task id. All writes go through a circuit breaker so a down Redis degrades
// to cheap short-circuited no-ops instead of per-request timeouts.
type RedisTaskMirror struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewRedisTaskMirror creates a mirror writing through the given client.
func NewRedisTaskMirror(client *redis.Client, logger *slog.Logger) *RedisTaskMirror {
	if client == nil {
		panic("client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "task_mirror"))

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "task-mirror",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("mirror circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &RedisTaskMirror{
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

var _ TaskMirror = (*RedisTaskMirror)(nil)

func mirrorKey(taskID uuid.UUID) string {
	return "mirror:task:" + taskID.String()
}

// MirrorUpsert implements TaskMirror.MirrorUpsert
func (m *RedisTaskMirror) MirrorUpsert(ctx context.Context, task *domain.Task) {
	m.execute(ctx, "upsert", task.ID, func(ctx context.Context) error {
		doc, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to encode task document: %w", err)
		}
		return m.client.Set(ctx, mirrorKey(task.ID), doc, 0).Err()
	})
}

// MirrorDelete implements TaskMirror.MirrorDelete
func (m *RedisTaskMirror) MirrorDelete(ctx context.Context, taskID uuid.UUID) {
	m.execute(ctx, "delete", taskID, func(ctx context.Context) error {
		return m.client.Del(ctx, mirrorKey(taskID)).Err()
	})
}

// execute runs one mirror operation through the breaker with a bounded
// timeout, detached from the caller's cancellation so a finished request
// does not abort the mirror write mid-flight.
func (m *RedisTaskMirror) execute(
	ctx context.Context,
	op string,
	taskID uuid.UUID,
	fn func(ctx context.Context) error,
) {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorWriteTimeout)
	defer cancel()

	_, err := m.breaker.Execute(func() (any, error) {
		return nil, fn(opCtx)
	})
	if err != nil {
		m.logger.Warn("mirror write failed",
			slog.String("op", op),
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return
	}

	m.logger.Debug("mirror write succeeded",
		slog.String("op", op),
		slog.String("task_id", taskID.String()))
}

// NoopTaskMirror is used when no Redis instance is configured.
type NoopTaskMirror struct{}

var _ TaskMirror = NoopTaskMirror{}

// MirrorUpsert implements TaskMirror.MirrorUpsert
func (NoopTaskMirror) MirrorUpsert(context.Context, *domain.Task) {}

// MirrorDelete implements TaskMirror.MirrorDelete
func (NoopTaskMirror) MirrorDelete(context.Context, uuid.UUID) {}
