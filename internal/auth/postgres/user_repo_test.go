// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasktrack/tasktrack/internal/auth"
	"github.com/tasktrack/tasktrack/pkg/errutil"
)

var userCols = []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}

func testUser() *auth.User {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &auth.User{
		ID:           ulid.Make(),
		Name:         "John Doe",
		Email:        "john@example.com",
		PasswordHash: "$2a$12$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_Create(t *testing.T) {
	user := testUser()

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantCode  string
	}{
		{
			name: "inserts user",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID.String(), user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation maps to email taken",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_lower_idx"})
			},
			wantErr:  auth.ErrEmailTaken,
			wantCode: "AUTH_EMAIL_TAKEN",
		},
		{
			name: "other errors are wrapped",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			err = NewUserRepository(mock).Create(context.Background(), user)
			if tt.wantCode == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	user := testUser()

	t.Run("returns stored user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(user.ID.String()).
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(user.ID.String(), user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt))

		got, err := NewUserRepository(mock).GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user is ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(user.ID.String()).
			WillReturnRows(pgxmock.NewRows(userCols))

		_, err = NewUserRepository(mock).GetByID(ctx, user.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("corrupt id is reported", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow("not-a-ulid", user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt))

		_, err = NewUserRepository(mock).GetByID(ctx, user.ID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	user := testUser()

	t.Run("matches case-insensitively", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`WHERE LOWER\(email\) = LOWER\(\$1\)`).
			WithArgs("John@Example.com").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(user.ID.String(), user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt))

		got, err := NewUserRepository(mock).GetByEmail(ctx, "John@Example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.PasswordHash, got.PasswordHash)
	})

	t.Run("unknown email is ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM users`).
			WillReturnRows(pgxmock.NewRows(userCols))

		_, err = NewUserRepository(mock).GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("query failure is wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM users`).
			WillReturnError(errors.New("connection reset"))

		_, err = NewUserRepository(mock).GetByEmail(ctx, "john@example.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
		assert.Contains(t, err.Error(), "connection reset")
	})
}
