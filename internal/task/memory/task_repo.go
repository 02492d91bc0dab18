// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

// Package memory provides an in-memory task.Repository for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tasktrack/tasktrack/internal/task"
)

// TaskRepository is an in-memory task.Repository. Each operation is atomic
// with respect to the others.
type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[ulid.ULID]task.Task
}

// NewTaskRepository creates an empty TaskRepository.
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[ulid.ULID]task.Task)}
}

// List returns copies of the owner's tasks in dashboard order.
func (r *TaskRepository) List(_ context.Context, ownerID ulid.ULID) ([]*task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*task.Task, 0)
	for _, t := range r.tasks {
		if t.OwnerID == ownerID {
			result = append(result, clone(t))
		}
	}
	task.SortForDashboard(result)
	return result, nil
}

// Get returns a copy of the task if it belongs to ownerID.
func (r *TaskRepository) Get(_ context.Context, id, ownerID ulid.ULID) (*task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.lookup(id, ownerID)
	if !ok {
		return nil, notFound(id)
	}
	return clone(t), nil
}

// Create stores a copy of t.
func (r *TaskRepository) Create(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.ID]; exists {
		return oops.Code("TASK_CREATE_FAILED").
			With("task_id", t.ID.String()).
			Errorf("task already exists")
	}
	r.tasks[t.ID] = *clone(*t)
	return nil
}

// Update applies p to the task if it belongs to ownerID.
func (r *TaskRepository) Update(_ context.Context, id, ownerID ulid.ULID, p task.Patch) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.lookup(id, ownerID)
	if !ok {
		return nil, notFound(id)
	}

	t.Title = p.Title
	if p.Description != nil {
		if *p.Description == "" {
			t.Description = nil
		} else {
			d := *p.Description
			t.Description = &d
		}
	}
	if p.Status != "" {
		t.Status = p.Status
	}
	if p.Priority != "" {
		t.Priority = p.Priority
	}
	t.DueDate = nil
	if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	t.UpdatedAt = p.UpdatedAt

	r.tasks[id] = t
	return clone(t), nil
}

// Delete removes the task if it belongs to ownerID.
func (r *TaskRepository) Delete(_ context.Context, id, ownerID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(id, ownerID); !ok {
		return notFound(id)
	}
	delete(r.tasks, id)
	return nil
}

// lookup must be called with r.mu held.
func (r *TaskRepository) lookup(id, ownerID ulid.ULID) (task.Task, bool) {
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return task.Task{}, false
	}
	return t, true
}

func notFound(id ulid.ULID) error {
	return oops.Code("TASK_NOT_FOUND").With("task_id", id.String()).Wrap(task.ErrNotFound)
}

// clone deep-copies the pointer fields so callers never share storage.
func clone(t task.Task) *task.Task {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return &t
}

// Compile-time interface check.
var _ task.Repository = (*TaskRepository)(nil)
