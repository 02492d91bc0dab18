// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

// Package postgres provides the PostgreSQL-backed task.Repository.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tasktrack/tasktrack/internal/store"
	"github.com/tasktrack/tasktrack/internal/task"
)

var taskColumns = []string{
	"id", "owner_id", "title", "description", "status", "priority", "due_date", "created_at", "updated_at",
}

// Ranks follow the enum declaration order, not the alphabetical order of the stored text.
const (
	statusRankSQL   = "CASE status WHEN 'PENDING' THEN 0 WHEN 'IN_PROGRESS' THEN 1 WHEN 'COMPLETED' THEN 2 END"
	priorityRankSQL = "CASE priority WHEN 'LOW' THEN 0 WHEN 'MEDIUM' THEN 1 WHEN 'HIGH' THEN 2 END"
)

// TaskRepository implements task.Repository using PostgreSQL.
type TaskRepository struct {
	pool store.Pool
	psql squirrel.StatementBuilderType
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool store.Pool) *TaskRepository {
	return &TaskRepository{
		pool: pool,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func ownedBy(id, ownerID ulid.ULID) squirrel.Eq {
	return squirrel.Eq{"id": id.String(), "owner_id": ownerID.String()}
}

// List returns the owner's tasks in dashboard order.
func (r *TaskRepository) List(ctx context.Context, ownerID ulid.ULID) ([]*task.Task, error) {
	query, args, err := r.psql.Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"owner_id": ownerID.String()}).
		OrderBy(
			statusRankSQL+" ASC",
			priorityRankSQL+" DESC",
			"due_date ASC NULLS LAST",
			"created_at DESC",
			"id DESC",
		).
		ToSql()
	if err != nil {
		return nil, oops.Code("TASK_QUERY_BUILD_FAILED").With("operation", "list tasks").Wrap(err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("TASK_LIST_FAILED").
			With("operation", "list tasks").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	defer rows.Close()

	tasks := make([]*task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("TASK_LIST_FAILED").
			With("operation", "iterate tasks").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	return tasks, nil
}

// Get returns a single task owned by ownerID.
func (r *TaskRepository) Get(ctx context.Context, id, ownerID ulid.ULID) (*task.Task, error) {
	query, args, err := r.psql.Select(taskColumns...).
		From("tasks").
		Where(ownedBy(id, ownerID)).
		ToSql()
	if err != nil {
		return nil, oops.Code("TASK_QUERY_BUILD_FAILED").With("operation", "get task").Wrap(err)
	}

	t, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, oops.Code("TASK_GET_FAILED").
			With("operation", "get task").
			With("task_id", id.String()).
			Wrap(err)
	}
	return t, nil
}

// Create stores a new task.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	query, args, err := r.psql.Insert("tasks").
		Columns(taskColumns...).
		Values(
			t.ID.String(),
			t.OwnerID.String(),
			t.Title,
			t.Description,
			string(t.Status),
			string(t.Priority),
			t.DueDate,
			t.CreatedAt,
			t.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return oops.Code("TASK_QUERY_BUILD_FAILED").With("operation", "insert task").Wrap(err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return oops.Code("TASK_CREATE_FAILED").
			With("operation", "insert task").
			With("task_id", t.ID.String()).
			Wrap(err)
	}
	return nil
}

// Update applies p in one statement filtered by id and owner, so ownership
// is checked and the write happens atomically.
func (r *TaskRepository) Update(ctx context.Context, id, ownerID ulid.ULID, p task.Patch) (*task.Task, error) {
	query, args, err := r.psql.Update("tasks").
		Set("title", p.Title).
		Set("description", squirrel.Expr("CASE WHEN ?::text IS NULL THEN description ELSE NULLIF(?::text, '') END", p.Description, p.Description)).
		Set("status", squirrel.Expr("COALESCE(?::text, status)", nullIfEmpty(string(p.Status)))).
		Set("priority", squirrel.Expr("COALESCE(?::text, priority)", nullIfEmpty(string(p.Priority)))).
		Set("due_date", p.DueDate).
		Set("updated_at", p.UpdatedAt).
		Where(ownedBy(id, ownerID)).
		Suffix("RETURNING id, owner_id, title, description, status, priority, due_date, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, oops.Code("TASK_QUERY_BUILD_FAILED").With("operation", "update task").Wrap(err)
	}

	t, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, oops.Code("TASK_UPDATE_FAILED").
			With("operation", "update task").
			With("task_id", id.String()).
			Wrap(err)
	}
	return t, nil
}

// Delete removes a task owned by ownerID.
func (r *TaskRepository) Delete(ctx context.Context, id, ownerID ulid.ULID) error {
	query, args, err := r.psql.Delete("tasks").Where(ownedBy(id, ownerID)).ToSql()
	if err != nil {
		return oops.Code("TASK_QUERY_BUILD_FAILED").With("operation", "delete task").Wrap(err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return oops.Code("TASK_DELETE_FAILED").
			With("operation", "delete task").
			With("task_id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func notFound(id ulid.ULID) error {
	return oops.Code("TASK_NOT_FOUND").With("task_id", id.String()).Wrap(task.ErrNotFound)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// scanTask scans a single row into a Task.
// Callers are responsible for handling pgx.ErrNoRows.
func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		idStr       string
		ownerStr    string
		title       string
		description *string
		status      string
		priority    string
		dueDate     *time.Time
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(&idStr, &ownerStr, &title, &description, &status, &priority, &dueDate, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("TASK_SCAN_FAILED").With("operation", "scan task").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("TASK_INVALID_ID").With("id", idStr).Wrap(err)
	}
	ownerID, err := ulid.Parse(ownerStr)
	if err != nil {
		return nil, oops.Code("TASK_INVALID_OWNER_ID").With("owner_id", ownerStr).Wrap(err)
	}

	return &task.Task{
		ID:          id,
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Status:      task.Status(status),
		Priority:    task.Priority(priority),
		DueDate:     dueDate,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// Compile-time interface check.
var _ task.Repository = (*TaskRepository)(nil)
