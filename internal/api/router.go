package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Priya8975/activity-logger/internal/domain"
	"github.com/Priya8975/activity-logger/internal/store"
	"github.com/Priya8975/activity-logger/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type EventLister interface {
	ListEvents(ctx context.Context, filter store.EventFilter) ([]domain.StoredEvent, error)
}

type UserDirectory interface {
	UserExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type MetricsSource interface {
	GetActivityMetrics(ctx context.Context) (*store.ActivityMetrics, error)
}

// Submitter hands a batch to the worker pool and waits for it to be stored.
// It fails fast with worker.ErrPoolFull when the pool is saturated.
type Submitter interface {
	Do(ctx context.Context, batch worker.Batch) error
}

type Limiter interface {
	Allow(ctx context.Context, userID string, limit int) bool
}

// Feed is the live websocket stream.
type Feed interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// Deps are the collector components behind the router. Limiter and Feed
// may be nil.
type Deps struct {
	Events    EventLister
	Users     UserDirectory
	Metrics   MetricsSource
	Pool      Submitter
	Limiter   Limiter
	RateLimit int
	Feed      Feed
	Checks    map[string]Pinger
	Logger    *slog.Logger
}

// NewRouter creates and configures the collector's HTTP router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// CORS for dashboard
	r.Use(corsMiddleware)

	ingestHandler := NewIngestHandler(deps.Pool, deps.Limiter, deps.RateLimit, deps.Logger)
	eventHandler := NewEventHandler(deps.Events)
	userHandler := NewUserHandler(deps.Users, deps.Logger)
	metricsHandler := NewMetricsHandler(deps.Metrics, deps.Feed)

	r.Post("/log", ingestHandler.Log)
	r.Post("/validate_user", userHandler.Validate)

	if deps.Feed != nil {
		r.Get("/ws", deps.Feed.HandleWebSocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler(deps.Checks))

		r.Get("/events", eventHandler.List)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Create)
			r.Get("/", userHandler.List)
		})

		r.Get("/metrics", metricsHandler.Metrics)
	})

	return r
}

// corsMiddleware adds CORS headers for dashboard development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
