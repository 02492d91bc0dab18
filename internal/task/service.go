// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service applies request semantics on top of a Repository. The owner is
// always the authenticated caller and never comes from the request body.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for task lifecycle events.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a task Service.
func NewService(repo Repository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("TASK_INVALID_SERVICE").Errorf("task repository is required")
	}
	s := &Service{repo: repo, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns the owner's tasks in dashboard order. An owner with no tasks
// gets an empty, non-nil slice.
func (s *Service) List(ctx context.Context, ownerID ulid.ULID) ([]*Task, error) {
	tasks, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, oops.Code("TASK_LIST_FAILED").With("owner_id", ownerID.String()).Wrap(err)
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	return tasks, nil
}

// Get returns one of the owner's tasks.
func (s *Service) Get(ctx context.Context, ownerID ulid.ULID, rawID string) (*Task, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.Get(ctx, id, ownerID)
	if err != nil {
		return nil, wrapRepoErr(err, "TASK_GET_FAILED", id, ownerID)
	}
	return t, nil
}

// Create validates in and stores a new task for the owner.
func (s *Service) Create(ctx context.Context, ownerID ulid.ULID, in Input) (*Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	dueDate, err := ParseDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &Task{
		ID:          ulid.Make(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: normalizeDescription(in.Description),
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, oops.Code("TASK_CREATE_FAILED").
			With("task_id", t.ID.String()).
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	s.logger.DebugContext(ctx, "task created", "task_id", t.ID.String(), "owner_id", ownerID.String())
	return t, nil
}

// Update validates in and applies it to one of the owner's tasks.
// Omitted status, priority and description keep their stored values;
// an omitted due date clears it.
func (s *Service) Update(ctx context.Context, ownerID ulid.ULID, rawID string, in Input) (*Task, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	dueDate, err := ParseDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	patch := Patch{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     dueDate,
		UpdatedAt:   s.now().UTC(),
	}
	t, err := s.repo.Update(ctx, id, ownerID, patch)
	if err != nil {
		return nil, wrapRepoErr(err, "TASK_UPDATE_FAILED", id, ownerID)
	}
	return t, nil
}

// Delete permanently removes one of the owner's tasks.
func (s *Service) Delete(ctx context.Context, ownerID ulid.ULID, rawID string) error {
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return wrapRepoErr(err, "TASK_DELETE_FAILED", id, ownerID)
	}
	s.logger.DebugContext(ctx, "task deleted", "task_id", id.String(), "owner_id", ownerID.String())
	return nil
}

// wrapRepoErr passes ErrNotFound through untouched and codes everything else.
func wrapRepoErr(err error, code string, id, ownerID ulid.ULID) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return oops.Code(code).
		With("task_id", id.String()).
		With("owner_id", ownerID.String()).
		Wrap(err)
}

func normalizeDescription(d *string) *string {
	if d == nil || *d == "" {
		return nil
	}
	v := *d
	return &v
}
