package api

import (
	"net/http"

	"github.com/Priya8975/activity-logger/internal/store"
)

type MetricsHandler struct {
	metrics MetricsSource
	feed    Feed
}

func NewMetricsHandler(m MetricsSource, feed Feed) *MetricsHandler {
	return &MetricsHandler{metrics: m, feed: feed}
}

// Metrics returns aggregated ingest statistics for the dashboard.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.metrics.GetActivityMetrics(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get metrics")
		return
	}

	type metricsResponse struct {
		store.ActivityMetrics
		WebSocketClients int `json:"websocket_clients"`
	}

	resp := metricsResponse{ActivityMetrics: *metrics}
	if h.feed != nil {
		resp.WebSocketClients = h.feed.ClientCount()
	}

	respondJSON(w, http.StatusOK, resp)
}
