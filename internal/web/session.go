// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tasktrack/tasktrack/internal/auth"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

const userContextKey = "tasktrack.user"

// errNotAuthenticated is returned by handlers that need a session and did not get one.
var errNotAuthenticated = errors.New("not authenticated")

func sessionToken(c echo.Context) string {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) setSessionCookie(c echo.Context, session *auth.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(s.auth.SessionTTL().Seconds())
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireSession resolves the session cookie to a user and stores it on the
// echo context. Token problems surface as auth.ErrInvalidToken, which the
// error handler turns into a 401.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := sessionToken(c)
		if token == "" {
			s.recordSessionFailure(errNotAuthenticated)
			return errNotAuthenticated
		}

		user, err := s.auth.Authenticate(c.Request().Context(), token)
		if err != nil {
			s.recordSessionFailure(err)
			return err
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// currentUser returns the user stored by requireSession.
func currentUser(c echo.Context) (*auth.User, error) {
	user, ok := c.Get(userContextKey).(*auth.User)
	if !ok || user == nil {
		return nil, errNotAuthenticated
	}
	return user, nil
}
