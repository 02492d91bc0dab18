// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

// Package task defines owner-scoped tasks, their validation rules and the
// repository contract every storage backend implements.
package task

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tasktrack/tasktrack/pkg/errutil"
)

// Field limits.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// DateLayout is the calendar-date form accepted for due dates.
const DateLayout = "2006-01-02"

// Status is the lifecycle state of a task.
type Status string

// Statuses in rank order.
const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

var statusRank = map[Status]int{
	StatusPending:    0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank is the declaration order of s, or -1 for unknown values.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Priority is the urgency of a task.
type Priority string

// Priorities in rank order.
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

var priorityRank = map[Priority]int{
	PriorityLow:    0,
	PriorityMedium: 1,
	PriorityHigh:   2,
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank is the declaration order of p, or -1 for unknown values.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return -1
}

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID          ulid.ULID  `json:"id"`
	OwnerID     ulid.ULID  `json:"userId"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Input is the body of a create or update request. Empty Status and Priority
// mean "not given"; a nil Description means "not given" while an empty one
// means "no description".
type Input struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"dueDate"`
}

// Validate returns the first problem found, checking fields in declaration order.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errutil.Invalid("title", "Title is required")
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return errutil.Invalid("title", "Title must be 100 characters or less")
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > MaxDescriptionLength {
		return errutil.Invalid("description", "Description must be 500 characters or less")
	}
	if in.Status != "" && !in.Status.Valid() {
		return errutil.Invalid("status", "Invalid status")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return errutil.Invalid("priority", "Invalid priority")
	}
	if _, err := ParseDueDate(in.DueDate); err != nil {
		return err
	}
	return nil
}

// ParseDueDate accepts "YYYY-MM-DD" or an RFC 3339 timestamp and returns the
// calendar date at UTC midnight. An empty string means no due date.
func ParseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return nil, errutil.Invalid("dueDate", "Invalid due date")
	}
	y, m, d := t.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &date, nil
}

// Patch is a validated update. Nil Description and empty Status or Priority
// keep the stored value. A nil DueDate clears it.
type Patch struct {
	Title       string
	Description *string
	Status      Status
	Priority    Priority
	DueDate     *time.Time
	UpdatedAt   time.Time
}

// Repository persists tasks. Every method that addresses a single task
// matches on id and owner together and returns ErrNotFound when nothing matches.
type Repository interface {
	// List returns the owner's tasks in dashboard order.
	List(ctx context.Context, ownerID ulid.ULID) ([]*Task, error)

	// Get returns a single task.
	Get(ctx context.Context, id, ownerID ulid.ULID) (*Task, error)

	// Create stores a new task.
	Create(ctx context.Context, t *Task) error

	// Update applies p atomically and returns the stored result.
	Update(ctx context.Context, id, ownerID ulid.ULID, p Patch) (*Task, error)

	// Delete removes a task permanently.
	Delete(ctx context.Context, id, ownerID ulid.ULID) error
}

// ParseID parses a task ID from a URL. Malformed IDs are reported as
// ErrNotFound so they cannot be told apart from absent tasks.
func ParseID(raw string) (ulid.ULID, error) {
	id, err := ulid.ParseStrict(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code("TASK_NOT_FOUND").With("task_id", raw).Wrap(ErrNotFound)
	}
	return id, nil
}

// CompareForDashboard orders tasks by status rank ascending, priority rank
// descending, due date ascending with undated tasks last, then newest first.
func CompareForDashboard(a, b *Task) int {
	if c := cmp.Compare(a.Status.Rank(), b.Status.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); c != 0 {
		return c
	}
	switch {
	case a.DueDate == nil && b.DueDate != nil:
		return 1
	case a.DueDate != nil && b.DueDate == nil:
		return -1
	case a.DueDate != nil && b.DueDate != nil:
		if c := a.DueDate.Compare(*b.DueDate); c != 0 {
			return c
		}
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return b.ID.Compare(a.ID)
}

// SortForDashboard sorts tasks in place with CompareForDashboard.
func SortForDashboard(tasks []*Task) {
	slices.SortFunc(tasks, CompareForDashboard)
}
