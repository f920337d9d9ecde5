// Package agentapi is the loopback HTTP surface the host editor talks to.
package agentapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the agent's HTTP router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	h := &handler{deps: deps}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Post("/notifications/{kind}", h.Notify)
		r.Post("/actions", h.RecordAction)
		r.Put("/user", h.UpdateUser)
		r.Post("/flush", h.Flush)
	})

	return r
}
