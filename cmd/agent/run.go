package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/activity-logger/internal/activity"
	"github.com/Priya8975/activity-logger/internal/agentapi"
	"github.com/Priya8975/activity-logger/internal/identity"
	"github.com/Priya8975/activity-logger/internal/lifecycle"
	"github.com/Priya8975/activity-logger/internal/queue"
	"github.com/Priya8975/activity-logger/internal/recorder"
	"github.com/Priya8975/activity-logger/internal/worker"
	"github.com/spf13/cobra"
)

var shutdownWait time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runAgent(ctx)
	},
}

func init() {
	runCmd.Flags().DurationVar(&shutdownWait, "shutdown-wait", 15*time.Second, "how long to wait for the final flush on exit")
}

func runAgent(ctx context.Context) error {
	store, err := queue.Open(cfg.StorageDir, logger)
	if err != nil {
		return fmt.Errorf("opening event store: %w", err)
	}

	cache := identity.NewCache(cfg.StorageDir)
	userID := cfg.UserID
	if userID == "" {
		if userID, err = cache.Load(); err != nil {
			logger.Warn("ignoring unreadable username cache", "error", err)
		}
	}

	rec := recorder.New(store, cfg.Topic, userID, logger)

	hub := activity.NewHub()
	scope := activity.Scope{WorkspaceRoot: cfg.WorkspaceRoot, ProjectFolder: cfg.ProjectFolder}
	adapter := activity.NewAdapter(hub, rec, scope, cfg.Actions, logger)

	deliverer, err := newDeliverer(store)
	if err != nil {
		return err
	}

	scheduler := worker.NewScheduler(deliverer, cfg.FlushInterval, logger)
	scheduler.Start()

	deps := agentapi.Deps{
		Publisher: hub,
		Recorder:  rec,
		Flusher:   deliverer,
		Pending:   store,
		Cache:     cache,
		Logger:    logger,
	}
	if cfg.ValidateURL != "" {
		deps.Validator = identity.NewValidator(cfg.ValidateURL)
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      agentapi.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("agent listening",
			"addr", cfg.ListenAddr,
			"endpoint", deliverer.Endpoint(),
			"topic", cfg.Topic,
			"user_id", userID,
			"actions", adapter.Kinds(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("ingest server: %w", err)
	}

	logger.Info("shutting down agent...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ingest server forced to shutdown", "error", err)
	}

	done := lifecycle.NewController(adapter, scheduler, deliverer, logger).Close()
	select {
	case <-done:
	case <-time.After(shutdownWait):
		logger.Warn("final flush still running, exiting; pending events stay queued",
			"pending_events", store.Len(),
		)
	}

	logger.Info("agent stopped")
	return runErr
}

func newDeliverer(store *queue.FileStore) (*worker.Deliverer, error) {
	opts := worker.Options{
		Endpoint:    cfg.EndpointURL,
		MaxFailures: cfg.MaxFailures,
		DeadLetters: queue.NewDeadLetterLog(cfg.StorageDir),
	}

	d, err := worker.NewDeliverer(store, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring delivery: %w", err)
	}
	return d, nil
}
