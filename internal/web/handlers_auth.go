// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/tasktrack/tasktrack/internal/auth"
)

type userResponse struct {
	User *auth.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// bindBody decodes the JSON request body only; path and query parameters are
// never mixed into request payloads.
func bindBody(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return oops.Code("INVALID_REQUEST_BODY").
			With("cause", err.Error()).
			Wrap(errInvalidBody)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (s *Server) handleRegister(c echo.Context) error {
	var in auth.RegisterInput
	if err := bindBody(c, &in); err != nil {
		return err
	}

	session, err := s.auth.Register(c.Request().Context(), in)
	s.metrics.RecordAuth("register", outcome(err))
	if err != nil {
		return err
	}

	s.setSessionCookie(c, session)
	return c.JSON(http.StatusCreated, userResponse{User: session.User})
}

func (s *Server) handleLogin(c echo.Context) error {
	var in auth.LoginInput
	if err := bindBody(c, &in); err != nil {
		return err
	}

	session, err := s.auth.Login(c.Request().Context(), in)
	s.metrics.RecordAuth("login", outcome(err))
	if err != nil {
		return err
	}

	s.setSessionCookie(c, session)
	return c.JSON(http.StatusOK, userResponse{User: session.User})
}

// handleLogout clears the cookie. Tokens are stateless, so there is nothing
// to revoke server-side and logout always succeeds.
func (s *Server) handleLogout(c echo.Context) error {
	s.clearSessionCookie(c)
	s.metrics.RecordAuth("logout", "success")
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (s *Server) handleMe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

func (s *Server) recordSessionFailure(err error) {
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, errNotAuthenticated) {
		s.metrics.RecordAuth("session", "rejected")
		return
	}
	s.metrics.RecordAuth("session", "error")
}
