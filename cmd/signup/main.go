// Command signup serves the live two-step signup form.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gabrielmiguelok/livesignup/internal/app"
	"github.com/gabrielmiguelok/livesignup/internal/config"
	"github.com/gabrielmiguelok/livesignup/internal/observability"
	"github.com/gabrielmiguelok/livesignup/internal/signup"
	"github.com/gabrielmiguelok/livesignup/pkg/logging"
	"github.com/gabrielmiguelok/livesignup/pkg/shutdown"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "signup: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(cfg, os.Stdout)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTelServiceName, version, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	auditLog, err := app.OpenAudit(cfg.AuditLogPath)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	a, err := app.New(cfg, app.Deps{
		Logger:  logger,
		Audit:   auditLog,
		Handoff: signup.LogHandoff{Logger: logger},
		Version: version,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: live sessions hold the connection open.
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	a.Router.Sessions().StartCleanupRoutine(cleanupCtx, time.Minute)

	sh := shutdown.NewHandler(shutdown.Config{Timeout: cfg.ShutdownTimeout, Logger: logger})
	sh.Register("drain", shutdown.PriorityDrain, func(context.Context) error {
		a.Health.SetShuttingDown()
		stopCleanup()
		return nil
	})
	sh.Register("http", shutdown.PriorityHTTP, srv.Shutdown)
	sh.Register("live_sessions", shutdown.PriorityLive, a.Router.Sessions().CloseAll)
	sh.RegisterCloser("app", shutdown.PriorityLive, a)
	sh.RegisterCloser("audit", shutdown.PriorityAudit, auditLog)
	sh.Register("tracer", shutdown.PriorityTelemetry, shutdownTracer)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			logging.String("addr", cfg.HTTPAddr),
			logging.String("env", cfg.Env),
			logging.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	waitErr := make(chan error, 1)
	go func() { waitErr <- sh.Wait(ctx) }()

	select {
	case err := <-errCh:
		logger.Error("server failed", logging.Err(err))
		if serr := sh.Shutdown(); serr != nil {
			return errors.Join(err, serr)
		}
		return err
	case err := <-waitErr:
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("stopped")
		return nil
	}
}
