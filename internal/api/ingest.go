package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/Priya8975/activity-logger/internal/domain"
	"github.com/Priya8975/activity-logger/internal/worker"
)

const maxBatchBytes = 10 << 20

// Column widths of activity_events. Longer values would fail the insert.
const (
	maxIDLen        = 64
	maxTimestampLen = 32
	maxFieldLen     = 255
)

// IngestHandler accepts event batches posted by agents. A batch is handed to
// the worker pool and the request answers 202 only once it is stored.
type IngestHandler struct {
	pool      Submitter
	limiter   Limiter
	rateLimit int
	logger    *slog.Logger
	now       func() time.Time
}

func NewIngestHandler(pool Submitter, limiter Limiter, rateLimit int, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{
		pool:      pool,
		limiter:   limiter,
		rateLimit: rateLimit,
		logger:    logger,
		now:       time.Now,
	}
}

type ingestResponse struct {
	Accepted int `json:"accepted"`
}

func (h *IngestHandler) Log(w http.ResponseWriter, r *http.Request) {
	var events []domain.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBytes)).Decode(&events); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for _, e := range events {
		if err := validateEvent(e); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if len(events) == 0 {
		respondJSON(w, http.StatusAccepted, ingestResponse{Accepted: 0})
		return
	}

	if h.limiter != nil {
		for _, userID := range distinctUsers(events) {
			if !h.limiter.Allow(r.Context(), userID, h.rateLimit) {
				w.Header().Set("Retry-After", "1")
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
	}

	err := h.pool.Do(r.Context(), worker.Batch{Events: events, ReceivedAt: h.now()})
	if errors.Is(err, worker.ErrPoolFull) {
		h.logger.Warn("ingest queue full, rejecting batch", "event_count", len(events))
		respondError(w, http.StatusServiceUnavailable, "ingest queue full")
		return
	}
	if err != nil {
		h.logger.Error("failed to persist batch", "error", err, "event_count", len(events))
		respondError(w, http.StatusServiceUnavailable, "failed to persist batch")
		return
	}

	respondJSON(w, http.StatusAccepted, ingestResponse{Accepted: len(events)})
}

func validateEvent(e domain.Event) error {
	switch {
	case e.ID == "":
		return errors.New("every event needs an id")
	case e.Action == "":
		return errors.New("every event needs an action")
	case utf8.RuneCountInString(e.ID) > maxIDLen:
		return fmt.Errorf("event id longer than %d characters", maxIDLen)
	case utf8.RuneCountInString(e.Timestamp) > maxTimestampLen:
		return fmt.Errorf("event %s: timestamp longer than %d characters", e.ID, maxTimestampLen)
	case utf8.RuneCountInString(e.Action) > maxFieldLen:
		return fmt.Errorf("event %s: action longer than %d characters", e.ID, maxFieldLen)
	case utf8.RuneCountInString(e.UserID) > maxFieldLen:
		return fmt.Errorf("event %s: userId longer than %d characters", e.ID, maxFieldLen)
	case utf8.RuneCountInString(e.Topic) > maxFieldLen:
		return fmt.Errorf("event %s: topic longer than %d characters", e.ID, maxFieldLen)
	}
	return nil
}

func distinctUsers(events []domain.Event) []string {
	seen := make(map[string]struct{})
	var users []string
	for _, e := range events {
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		users = append(users, e.UserID)
	}
	return users
}
