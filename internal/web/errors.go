// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tasktrack/tasktrack/internal/auth"
	"github.com/tasktrack/tasktrack/internal/task"
	"github.com/tasktrack/tasktrack/pkg/errutil"
)

// Client-facing error messages.
const (
	msgInvalidBody        = "Invalid request body"
	msgNotAuthenticated   = "Not authenticated"
	msgInvalidCredentials = "Invalid email or password"
	msgEmailTaken         = "Email already registered"
	msgTaskNotFound       = "Task not found"
	msgInternal           = "Internal server error"
)

// errInvalidBody marks a request body that could not be decoded.
var errInvalidBody = errors.New("invalid request body")

type errorResponse struct {
	Error string `json:"error"`
}

// classifyError maps err to a status code and a message that is safe to return.
func classifyError(err error) (int, string) {
	if verr, ok := errutil.AsValidation(err); ok {
		return http.StatusBadRequest, verr.Message
	}

	var he *echo.HTTPError
	switch {
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, msgInvalidBody
	case errors.Is(err, errNotAuthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, msgNotAuthenticated
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, msgEmailTaken
	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound, msgTaskNotFound
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// handleError is the echo HTTPErrorHandler. Internal errors are logged with
// their full context and reach the client only as a generic message.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := classifyError(err)
	if status >= http.StatusInternalServerError {
		req := c.Request()
		errutil.LogError(req.Context(), s.logger, "request failed", err,
			"method", req.Method,
			"path", req.URL.Path)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, errorResponse{Error: msg})
	}
	if writeErr != nil {
		s.logger.WarnContext(c.Request().Context(), "failed to write error response", "error", writeErr)
	}
}
