package api

import (
	"net/http"
	"strconv"

	"github.com/Priya8975/activity-logger/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

type EventHandler struct {
	store EventLister
}

func NewEventHandler(s EventLister) *EventHandler {
	return &EventHandler{store: s}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultListLimit
	if limitStr := q.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = min(n, maxListLimit)
		}
	}

	events, err := h.store.ListEvents(r.Context(), store.EventFilter{
		UserID: q.Get("user_id"),
		Action: q.Get("action"),
		Limit:  limit,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	respondJSON(w, http.StatusOK, events)
}
