// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasktrack/tasktrack/pkg/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("TEST_ERROR").
		With("key", "value").
		Errorf("something failed")

	errutil.LogError(context.Background(), logger, "operation failed", err, "route", "/tasks")

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "operation failed", logEntry["msg"])
	assert.Equal(t, "TEST_ERROR", logEntry["code"])
	assert.Equal(t, "/tasks", logEntry["route"])
	assert.Equal(t, "something failed", logEntry["error"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(context.Background(), logger, "operation failed", errors.New("standard error"))

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Contains(t, logEntry["error"], "standard error")
	assert.NotContains(t, logEntry, "code")
}

func TestCode(t *testing.T) {
	assert.Equal(t, "SESSION_INVALID", errutil.Code(oops.Code("SESSION_INVALID").Errorf("bad token")))
	assert.Equal(t, "", errutil.Code(errors.New("plain")))
}

func TestAsValidation(t *testing.T) {
	t.Run("finds wrapped validation error", func(t *testing.T) {
		err := oops.With("operation", "create task").Wrap(errutil.Invalid("title", "Title is required"))
		verr, ok := errutil.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "title", verr.Field)
		assert.Equal(t, "Title is required", verr.Error())
	})

	t.Run("rejects other errors", func(t *testing.T) {
		_, ok := errutil.AsValidation(errors.New("boom"))
		assert.False(t, ok)
	})
}
