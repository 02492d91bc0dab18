// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

// Package web serves the TaskTrack HTTP API and the optional static frontend.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/tasktrack/tasktrack/internal/auth"
	"github.com/tasktrack/tasktrack/internal/observability"
	"github.com/tasktrack/tasktrack/internal/task"
)

// DefaultProtectedPaths returns the guard patterns that require a session.
func DefaultProtectedPaths() []string {
	return []string{"/dashboard", "/dashboard/**"}
}

// DefaultAuthPaths returns the guard patterns reserved for signed-out visitors.
func DefaultAuthPaths() []string {
	return []string{"/login", "/register"}
}

// Options configures a Server.
type Options struct {
	// Addr is a "host:port" listen address. Use ":0" in tests.
	Addr string

	Auth  *auth.Service
	Tasks *task.Service

	// Metrics is optional; nil disables HTTP and domain metrics.
	Metrics *observability.Metrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// ProtectedPaths and AuthPaths default to DefaultProtectedPaths and
	// DefaultAuthPaths when nil.
	ProtectedPaths []string
	AuthPaths      []string

	SecureCookies bool

	// StaticDir, when set, is served with index.html fallback for unknown paths.
	StaticDir string
}

// Server is the public HTTP server.
type Server struct {
	addr          string
	echo          *echo.Echo
	auth          *auth.Service
	tasks         *task.Service
	metrics       *observability.Metrics
	logger        *slog.Logger
	guard         *Guard
	secureCookies bool

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// New builds a Server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Auth == nil {
		return nil, oops.Code("WEB_INVALID_OPTIONS").Errorf("auth service is required")
	}
	if opts.Tasks == nil {
		return nil, oops.Code("WEB_INVALID_OPTIONS").Errorf("task service is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	protected := opts.ProtectedPaths
	if protected == nil {
		protected = DefaultProtectedPaths()
	}
	authOnly := opts.AuthPaths
	if authOnly == nil {
		authOnly = DefaultAuthPaths()
	}

	guard, err := NewGuard(protected, authOnly)
	if err != nil {
		return nil, err
	}

	s := &Server{
		addr:          opts.Addr,
		echo:          echo.New(),
		auth:          opts.Auth,
		tasks:         opts.Tasks,
		metrics:       opts.Metrics,
		logger:        logger,
		guard:         guard,
		secureCookies: opts.SecureCookies,
	}
	s.routes(opts.StaticDir)
	return s, nil
}

func (s *Server) routes(staticDir string) {
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(requestID())
	e.Use(tracing())
	e.Use(s.httpMetrics)
	e.Use(requestLogger(s.logger))
	e.Use(middleware.Recover())
	e.Use(s.guard.Middleware(s.auth.VerifyToken))
	if staticDir != "" {
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  staticDir,
			HTML5: true,
		}))
	}

	authGroup := e.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/logout", s.handleLogout)
	authGroup.GET("/me", s.handleMe, s.requireSession)

	tasks := e.Group("/tasks", s.requireSession)
	tasks.GET("", s.handleListTasks)
	tasks.POST("", s.handleCreateTask)
	tasks.GET("/:id", s.handleGetTask)
	tasks.PUT("/:id", s.handleUpdateTask)
	tasks.DELETE("/:id", s.handleDeleteTask)
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving. The returned channel receives a serve error if the
// server fails after starting and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_ALREADY_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server. Stopping a server that is not
// running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.Code("WEB_SHUTDOWN_FAILED").
				With("operation", "shutdown web server").
				Wrap(err)
		}
	}

	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
