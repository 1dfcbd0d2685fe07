package mocks

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// MockShareStore implements store.ShareStore for testing. It operates on the
// share data of a MockTaskStore and resolves member profiles through a
// MockUserStore, so the three mocks compose the way the real stores do.
type MockShareStore struct {
	// Function fields for customizable behavior
	AddFn         func(ctx context.Context, taskID, userID uuid.UUID) error
	RemoveFn      func(ctx context.Context, taskID, userID uuid.UUID) error
	ListMembersFn func(ctx context.Context, taskID uuid.UUID) ([]domain.Profile, error)

	tasks *MockTaskStore
	users *MockUserStore
}

// NewMockShareStore creates a share store over the given task and user mocks.
func NewMockShareStore(tasks *MockTaskStore, users *MockUserStore) *MockShareStore {
	return &MockShareStore{
		tasks: tasks,
		users: users,
	}
}

var _ store.ShareStore = (*MockShareStore)(nil)

// Add implements the ShareStore interface
func (m *MockShareStore) Add(ctx context.Context, taskID, userID uuid.UUID) error {
	if m.AddFn != nil {
		return m.AddFn(ctx, taskID, userID)
	}

	if _, ok := m.tasks.Tasks[taskID]; !ok {
		return store.ErrTaskNotFound
	}
	if _, exists := m.tasks.Shares[taskID][userID]; exists {
		return store.ErrAlreadyShared
	}
	m.tasks.AddShare(taskID, userID)
	return nil
}

// Remove implements the ShareStore interface
func (m *MockShareStore) Remove(ctx context.Context, taskID, userID uuid.UUID) error {
	if m.RemoveFn != nil {
		return m.RemoveFn(ctx, taskID, userID)
	}

	if _, exists := m.tasks.Shares[taskID][userID]; !exists {
		return store.ErrNotShared
	}
	delete(m.tasks.Shares[taskID], userID)
	return nil
}

// ListMembers implements the ShareStore interface
func (m *MockShareStore) ListMembers(
	ctx context.Context,
	taskID uuid.UUID,
) ([]domain.Profile, error) {
	if m.ListMembersFn != nil {
		return m.ListMembersFn(ctx, taskID)
	}

	type entry struct {
		id      uuid.UUID
		addedAt time.Time
	}
	entries := []entry{}
	for userID, addedAt := range m.tasks.Shares[taskID] {
		entries = append(entries, entry{id: userID, addedAt: addedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].addedAt.Equal(entries[j].addedAt) {
			return entries[i].id.String() < entries[j].id.String()
		}
		return entries[i].addedAt.Before(entries[j].addedAt)
	})

	members := []domain.Profile{}
	for _, e := range entries {
		user, err := m.users.GetByID(ctx, e.id)
		if err != nil {
			continue
		}
		members = append(members, user.Profile())
	}
	return members, nil
}

// WithTx implements the ShareStore interface; the mock has no transactions.
func (m *MockShareStore) WithTx(_ *sql.Tx) store.ShareStore {
	return m
}
