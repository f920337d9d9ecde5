package api

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthHandler reports healthy only when every check pings.
func HealthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{
			Status:  "healthy",
			Version: "1.0.0",
		}
		status := http.StatusOK

		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		respondJSON(w, status, resp)
	}
}
