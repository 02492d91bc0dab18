// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tasktrack/tasktrack/internal/auth"
	authmemory "github.com/tasktrack/tasktrack/internal/auth/memory"
	authpostgres "github.com/tasktrack/tasktrack/internal/auth/postgres"
	"github.com/tasktrack/tasktrack/internal/config"
	"github.com/tasktrack/tasktrack/internal/logging"
	"github.com/tasktrack/tasktrack/internal/observability"
	"github.com/tasktrack/tasktrack/internal/store"
	"github.com/tasktrack/tasktrack/internal/task"
	taskmemory "github.com/tasktrack/tasktrack/internal/task/memory"
	taskpostgres "github.com/tasktrack/tasktrack/internal/task/postgres"
	"github.com/tasktrack/tasktrack/internal/web"
	"github.com/tasktrack/tasktrack/internal/xdg"
)

const serviceName = "tasktrack"

// shutdownTimeout bounds graceful shutdown of both servers.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the TaskTrack HTTP server. Configuration is read from defaults,
the --config file, TASKTRACK_* environment variables and flags, in that order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := xdg.ResolveConfigFile(configFile)
			if err != nil {
				return fmt.Errorf("failed to locate configuration: %w", err)
			}
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().String("env", config.EnvDevelopment, "environment (development or production)")
	cmd.Flags().String("http-addr", ":8080", "HTTP listen address")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("store", config.StorePostgres, "storage backend (postgres or memory)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (default: DATABASE_URL)")

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, url string) (DatabasePool, error) {
			pool, err := store.Connect(ctx, url, store.DefaultConnectOptions)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.WebServerFactory == nil {
		deps.WebServerFactory = func(opts web.Options) (WebServer, error) {
			srv, err := web.New(opts)
			if err != nil {
				return nil, err
			}
			return srv, nil
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.SetDefault(serviceName, version, cfg.LogFormat)
	logger.Info("starting tasktrack",
		"env", cfg.Env,
		"http_addr", cfg.HTTPAddr,
		"store", cfg.Store,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		users auth.UserRepository
		tasks task.Repository
	)
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data will not survive a restart")
		users = authmemory.NewUserRepository()
		tasks = taskmemory.NewTaskRepository()
	default:
		pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		users = authpostgres.NewUserRepository(pool)
		tasks = taskpostgres.NewTaskRepository(pool)
	}

	tokens := auth.NewTokenService(auth.NewSigningKey(cfg.Auth.JWTSecret, logger), cfg.Auth.SessionTTL)
	authSvc, err := auth.NewServiceWithLogger(users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, logger)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}
	taskSvc, err := task.NewService(tasks, task.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}

	var ready atomic.Bool

	// Start observability server if configured
	var (
		obsServer ObservabilityServer
		metrics   *observability.Metrics
	)
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, ready.Load)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}

	webServer, err := deps.WebServerFactory(web.Options{
		Addr:           cfg.HTTPAddr,
		Auth:           authSvc,
		Tasks:          taskSvc,
		Metrics:        metrics,
		Logger:         logger,
		ProtectedPaths: cfg.Web.ProtectedPaths,
		AuthPaths:      cfg.Web.AuthPaths,
		SecureCookies:  cfg.Auth.SecureCookies,
		StaticDir:      cfg.Web.StaticDir,
	})
	if err != nil {
		stopObservability(obsServer)
		return fmt.Errorf("failed to create web server: %w", err)
	}
	webErrChan, err := webServer.Start()
	if err != nil {
		stopObservability(obsServer)
		return fmt.Errorf("failed to start web server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, webErrChan, "web")

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ready.Store(true)
	cmd.Println("TaskTrack listening on " + webServer.Addr())
	logger.Info("tasktrack ready", "http_addr", webServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func stopObservability(obsServer ObservabilityServer) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		slog.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels the context when a server reports a failure.
// It exits when an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
