// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasktrack/tasktrack/internal/task"
	"github.com/tasktrack/tasktrack/pkg/errutil"
)

var cols = []string{"id", "owner_id", "title", "description", "status", "priority", "due_date", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func sampleTask() *task.Task {
	desc := "notes"
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	return &task.Task{
		ID:          ulid.Make(),
		OwnerID:     ulid.Make(),
		Title:       "My Task",
		Description: &desc,
		Status:      task.StatusPending,
		Priority:    task.PriorityMedium,
		DueDate:     &due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func rowOf(tk *task.Task) []any {
	return []any{
		tk.ID.String(), tk.OwnerID.String(), tk.Title, tk.Description,
		string(tk.Status), string(tk.Priority), tk.DueDate, tk.CreatedAt, tk.UpdatedAt,
	}
}

func TestTaskRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("orders by rank and scopes by owner", func(t *testing.T) {
		mock := newMock(t)
		first := sampleTask()
		second := sampleTask()
		second.OwnerID = first.OwnerID
		second.Description = nil
		second.DueDate = nil

		mock.ExpectQuery(`SELECT id, owner_id, title, description, status, priority, due_date, created_at, updated_at FROM tasks WHERE owner_id = \$1 ORDER BY CASE status WHEN 'PENDING' THEN 0 .+ ASC, CASE priority .+ DESC, due_date ASC NULLS LAST, created_at DESC, id DESC`).
			WithArgs(first.OwnerID.String()).
			WillReturnRows(pgxmock.NewRows(cols).AddRow(rowOf(first)...).AddRow(rowOf(second)...))

		got, err := NewTaskRepository(mock).List(ctx, first.OwnerID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first, got[0])
		assert.Nil(t, got[1].Description)
		assert.Nil(t, got[1].DueDate)
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM tasks WHERE owner_id`).WillReturnRows(pgxmock.NewRows(cols))

		got, err := NewTaskRepository(mock).List(ctx, ulid.Make())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("query failure is coded", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM tasks`).WillReturnError(errors.New("connection refused"))

		_, err := NewTaskRepository(mock).List(ctx, ulid.Make())
		errutil.AssertErrorCode(t, err, "TASK_LIST_FAILED")
	})
}

func TestTaskRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("binds id and owner together", func(t *testing.T) {
		mock := newMock(t)
		tk := sampleTask()
		mock.ExpectQuery(`FROM tasks WHERE \(?id = \$1 AND owner_id = \$2\)?`).
			WithArgs(tk.ID.String(), tk.OwnerID.String()).
			WillReturnRows(pgxmock.NewRows(cols).AddRow(rowOf(tk)...))

		got, err := NewTaskRepository(mock).Get(ctx, tk.ID, tk.OwnerID)
		require.NoError(t, err)
		assert.Equal(t, tk, got)
	})

	t.Run("no row is not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM tasks WHERE \(?id = \$1 AND owner_id = \$2\)?`).
			WillReturnRows(pgxmock.NewRows(cols))

		_, err := NewTaskRepository(mock).Get(ctx, ulid.Make(), ulid.Make())
		assert.ErrorIs(t, err, task.ErrNotFound)
		errutil.AssertErrorCode(t, err, "TASK_NOT_FOUND")
	})
}

func TestTaskRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts every column", func(t *testing.T) {
		mock := newMock(t)
		tk := sampleTask()
		mock.ExpectExec(`INSERT INTO tasks \(id,owner_id,title,description,status,priority,due_date,created_at,updated_at\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6,\$7,\$8,\$9\)`).
			WithArgs(tk.ID.String(), tk.OwnerID.String(), tk.Title, tk.Description,
				"PENDING", "MEDIUM", tk.DueDate, tk.CreatedAt, tk.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewTaskRepository(mock).Create(ctx, tk))
	})

	t.Run("failure is coded", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO tasks`).WillReturnError(errors.New("fk violation"))

		err := NewTaskRepository(mock).Create(ctx, sampleTask())
		errutil.AssertErrorCode(t, err, "TASK_CREATE_FAILED")
	})
}

func TestTaskRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("single statement scoped by owner", func(t *testing.T) {
		mock := newMock(t)
		tk := sampleTask()
		tk.DueDate = nil
		tk.Title = "Renamed"
		mock.ExpectQuery(`UPDATE tasks SET title = \$1, description = CASE WHEN \$2::text IS NULL THEN description ELSE NULLIF\(\$3::text, ''\) END, status = COALESCE\(\$4::text, status\), priority = COALESCE\(\$5::text, priority\), due_date = \$6, updated_at = \$7 WHERE \(?id = \$8 AND owner_id = \$9\)? RETURNING`).
			WillReturnRows(pgxmock.NewRows(cols).AddRow(rowOf(tk)...))

		got, err := NewTaskRepository(mock).Update(ctx, tk.ID, tk.OwnerID, task.Patch{
			Title:     "Renamed",
			UpdatedAt: tk.UpdatedAt,
		})
		require.NoError(t, err)
		assert.Equal(t, tk, got)
	})

	t.Run("no row is not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE tasks SET`).WillReturnRows(pgxmock.NewRows(cols))

		_, err := NewTaskRepository(mock).Update(ctx, ulid.Make(), ulid.Make(), task.Patch{Title: "x"})
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("failure is coded", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE tasks SET`).WillReturnError(errors.New("check violation"))

		_, err := NewTaskRepository(mock).Update(ctx, ulid.Make(), ulid.Make(), task.Patch{Title: "x"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, task.ErrNotFound)
	})
}

func TestTaskRepository_Delete(t *testing.T) {
	ctx := context.Background()
	id, owner := ulid.Make(), ulid.Make()

	t.Run("deletes owned task", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM tasks WHERE \(?id = \$1 AND owner_id = \$2\)?`).
			WithArgs(id.String(), owner.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, NewTaskRepository(mock).Delete(ctx, id, owner))
	})

	t.Run("zero rows is not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM tasks`).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := NewTaskRepository(mock).Delete(ctx, id, owner)
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("failure is coded", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM tasks`).WillReturnError(errors.New("timeout"))

		err := NewTaskRepository(mock).Delete(ctx, id, owner)
		errutil.AssertErrorCode(t, err, "TASK_DELETE_FAILED")
	})
}
