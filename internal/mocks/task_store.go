package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing. It shares its data
// with MockShareStore so relation-dependent behavior (visibility, the shared
// relation) works the same way it does against the real database.
type MockTaskStore struct {
	// Function fields for customizable behavior
	CreateFn      func(ctx context.Context, task *domain.Task) error
	FindForUserFn func(ctx context.Context, taskID, userID uuid.UUID, lockForUpdate bool) (*domain.Task, store.Relation, error)
	UpdateFn      func(ctx context.Context, task *domain.Task) error
	DeleteFn      func(ctx context.Context, id uuid.UUID) error
	ListFn        func(ctx context.Context, userID uuid.UUID, filter store.TaskFilter, ordering string, page store.Page) ([]*domain.Task, int, error)

	// Data for default implementation
	Tasks  map[uuid.UUID]*domain.Task
	Shares map[uuid.UUID]map[uuid.UUID]time.Time // taskID -> userID -> added at
}

// NewMockTaskStore creates a new mock store with initialized defaults
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		Tasks:  make(map[uuid.UUID]*domain.Task),
		Shares: make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// Create implements the TaskStore interface
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}

	if err := task.Validate(); err != nil {
		return err
	}
	copied := *task
	m.Tasks[task.ID] = &copied
	return nil
}

// FindForUser implements the TaskStore interface
func (m *MockTaskStore) FindForUser(
	ctx context.Context,
	taskID, userID uuid.UUID,
	lockForUpdate bool,
) (*domain.Task, store.Relation, error) {
	if m.FindForUserFn != nil {
		return m.FindForUserFn(ctx, taskID, userID, lockForUpdate)
	}

	task, ok := m.Tasks[taskID]
	if !ok {
		return nil, store.RelationNone, store.ErrTaskNotFound
	}
	if task.OwnerID == userID {
		copied := *task
		return &copied, store.RelationOwner, nil
	}
	if _, shared := m.Shares[taskID][userID]; shared {
		copied := *task
		return &copied, store.RelationShared, nil
	}
	return nil, store.RelationNone, store.ErrTaskNotFound
}

// Update implements the TaskStore interface
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}

	if err := task.Validate(); err != nil {
		return err
	}
	if _, ok := m.Tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	m.Tasks[task.ID] = &copied
	return nil
}

// Delete implements the TaskStore interface
func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	if _, ok := m.Tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.Tasks, id)
	delete(m.Shares, id) // cascading delete
	return nil
}

// List implements the TaskStore interface
func (m *MockTaskStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filter store.TaskFilter,
	ordering string,
	page store.Page,
) ([]*domain.Task, int, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, userID, filter, ordering, page)
	}

	now := time.Now().UTC()
	matched := []*domain.Task{}
	for _, task := range m.Tasks {
		if task.OwnerID != userID {
			if _, shared := m.Shares[task.ID][userID]; !shared {
				continue
			}
		}
		if !matchesFilter(task, filter, now) {
			continue
		}
		copied := *task
		matched = append(matched, &copied)
	}

	if err := sortTasks(matched, ordering); err != nil {
		return nil, 0, err
	}

	total := len(matched)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if page.Size <= 0 || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// CountStats implements the TaskStore interface
func (m *MockTaskStore) CountStats(
	ctx context.Context,
	userID uuid.UUID,
) (*store.TaskStats, error) {
	now := time.Now().UTC()
	stats := &store.TaskStats{}
	for _, task := range m.Tasks {
		if task.OwnerID != userID {
			continue
		}
		stats.Total++
		switch task.Status {
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusInProgress:
			stats.InProgress++
		}
		if task.IsOverdue(now) {
			stats.Overdue++
		}
		switch task.Priority {
		case domain.PriorityUrgent:
			stats.ByPriority.Urgent++
		case domain.PriorityHigh:
			stats.ByPriority.High++
		case domain.PriorityMedium:
			stats.ByPriority.Medium++
		case domain.PriorityLow:
			stats.ByPriority.Low++
		}
	}
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total) * 100
	}
	return stats, nil
}

// WithTx implements the TaskStore interface; the mock has no transactions.
func (m *MockTaskStore) WithTx(_ *sql.Tx) store.TaskStore {
	return m
}

// AddShare records a share entry, mirroring MockShareStore.Add without its
// error handling. Convenient for test setup.
func (m *MockTaskStore) AddShare(taskID, userID uuid.UUID) {
	if m.Shares[taskID] == nil {
		m.Shares[taskID] = make(map[uuid.UUID]time.Time)
	}
	m.Shares[taskID][userID] = time.Now().UTC()
}

func matchesFilter(task *domain.Task, filter store.TaskFilter, now time.Time) bool {
	if filter.Status != "" && task.Status != filter.Status {
		return false
	}
	if filter.Priority != "" && task.Priority != filter.Priority {
		return false
	}
	if filter.Search != "" && !matchesSearch(task, filter.Search) {
		return false
	}
	if filter.DueFrom != nil && (task.DueDate == nil || task.DueDate.Before(*filter.DueFrom)) {
		return false
	}
	if filter.DueTo != nil && (task.DueDate == nil || task.DueDate.After(*filter.DueTo)) {
		return false
	}
	if filter.OverdueOnly {
		open := task.Status == domain.StatusPending || task.Status == domain.StatusInProgress
		if !open || task.DueDate == nil || !now.After(*task.DueDate) {
			return false
		}
	}
	return true
}

func matchesSearch(task *domain.Task, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(task.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(task.Description), needle) {
		return true
	}
	for _, tag := range task.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func sortTasks(tasks []*domain.Task, ordering string) error {
	if ordering == "" {
		ordering = "-" + store.OrderCreatedAt
	}
	desc := strings.HasPrefix(ordering, "-")
	key := strings.TrimPrefix(ordering, "-")

	var less func(a, b *domain.Task) bool
	switch key {
	case store.OrderCreatedAt:
		less = func(a, b *domain.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case store.OrderTitle:
		less = func(a, b *domain.Task) bool { return a.Title < b.Title }
	case store.OrderDueDate:
		less = func(a, b *domain.Task) bool {
			// NULLs sort last ascending, like postgres.
			switch {
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			default:
				return a.DueDate.Before(*b.DueDate)
			}
		}
	case store.OrderPriority:
		less = func(a, b *domain.Task) bool { return a.Priority.Rank() < b.Priority.Rank() }
	default:
		return fmt.Errorf("%w: unknown ordering key %q", store.ErrInvalidEntity, key)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if desc {
			return less(tasks[j], tasks[i])
		}
		return less(tasks[i], tasks[j])
	})
	return nil
}
