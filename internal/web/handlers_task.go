// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tasktrack/tasktrack/internal/task"
)

type taskResponse struct {
	Task *task.Task `json:"task"`
}

type taskListResponse struct {
	Tasks []*task.Task `json:"tasks"`
}

func (s *Server) handleListTasks(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	tasks, err := s.tasks.List(c.Request().Context(), user.ID)
	s.metrics.RecordTask("list", outcome(err))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, taskListResponse{Tasks: tasks})
}

func (s *Server) handleCreateTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var in task.Input
	if err := bindBody(c, &in); err != nil {
		return err
	}

	created, err := s.tasks.Create(c.Request().Context(), user.ID, in)
	s.metrics.RecordTask("create", outcome(err))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, taskResponse{Task: created})
}

func (s *Server) handleGetTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	t, err := s.tasks.Get(c.Request().Context(), user.ID, c.Param("id"))
	s.metrics.RecordTask("get", outcome(err))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, taskResponse{Task: t})
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var in task.Input
	if err := bindBody(c, &in); err != nil {
		return err
	}

	updated, err := s.tasks.Update(c.Request().Context(), user.ID, c.Param("id"), in)
	s.metrics.RecordTask("update", outcome(err))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, taskResponse{Task: updated})
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	err = s.tasks.Delete(c.Request().Context(), user.ID, c.Param("id"))
	s.metrics.RecordTask("delete", outcome(err))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Task deleted successfully"})
}
