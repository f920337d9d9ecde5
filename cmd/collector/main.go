package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/activity-logger/internal/api"
	"github.com/Priya8975/activity-logger/internal/config"
	"github.com/Priya8975/activity-logger/internal/engine"
	"github.com/Priya8975/activity-logger/internal/store"
	ws "github.com/Priya8975/activity-logger/internal/websocket"
	"github.com/Priya8975/activity-logger/internal/worker"
	"github.com/Priya8975/activity-logger/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadCollector()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx, migrations.FS); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Initialize Redis
	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	logger.Info("connected to Redis")

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	dedup := engine.NewDeduplicator(redisStore.Client(), cfg.DedupTTL, logger)
	ingestor := engine.NewIngestor(pgStore, dedup, hub, logger)

	// Persistence runs on its own context so queued batches drain after
	// the HTTP server stops.
	pool := worker.NewPool(cfg.NumWorkers, ingestor, logger)
	pool.Start(context.Background())

	router := api.NewRouter(api.Deps{
		Events:    pgStore,
		Users:     pgStore,
		Metrics:   pgStore,
		Pool:      pool,
		Limiter:   engine.NewRateLimiter(redisStore.Client(), logger),
		RateLimit: cfg.RateLimitPerSecond,
		Feed:      hub,
		Checks: map[string]api.Pinger{
			"postgres": pgStore,
			"redis":    redisStore,
		},
		Logger: logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("collector starting", "port", cfg.Port, "num_workers", cfg.NumWorkers)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down collector...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	pool.Stop()
	cancel()

	logger.Info("collector stopped")
}
