package agentapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/activity-logger/internal/activity"
	"github.com/Priya8975/activity-logger/internal/identity"
	"github.com/Priya8975/activity-logger/internal/worker"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 8 << 20

// flushTimeout bounds a manual flush once the caller has gone away.
const flushTimeout = 30 * time.Second

// Publisher fans a notification out to subscribed adapters.
type Publisher interface {
	Publish(n activity.Notification) int
}

// ActionRecorder is the recorder surface the API needs.
type ActionRecorder interface {
	Record(action string, details map[string]any)
	UpdateUserID(userID string)
	UserID() string
	Topic() string
}

// UserValidator checks a user id with the collector.
type UserValidator interface {
	Validate(ctx context.Context, username string) error
}

// UserCache persists the accepted user id.
type UserCache interface {
	Save(username string) error
}

// Deps are the pipeline pieces behind the API. Validator and Cache are
// optional.
type Deps struct {
	Publisher Publisher
	Recorder  ActionRecorder
	Flusher   worker.Flusher
	Pending   interface{ Len() int }
	Validator UserValidator
	Cache     UserCache
	Logger    *slog.Logger
}

type handler struct {
	deps Deps
}

type statusResponse struct {
	Topic         string `json:"topic"`
	UserID        string `json:"userId"`
	PendingEvents int    `json:"pending_events"`
}

func (h *handler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{
		Topic:         h.deps.Recorder.Topic(),
		UserID:        h.deps.Recorder.UserID(),
		PendingEvents: h.deps.Pending.Len(),
	})
}

type notifyResponse struct {
	Kind      string `json:"kind"`
	Delivered int    `json:"delivered"`
}

// Notify decodes a notification for the kind in the path and publishes it.
func (h *handler) Notify(w http.ResponseWriter, r *http.Request) {
	kind := activity.Kind(chi.URLParam(r, "kind"))
	if !activity.Supported(kind) {
		respondError(w, http.StatusBadRequest, "unsupported activity kind")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	n, err := activity.Decode(kind, body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification payload")
		return
	}

	delivered := h.deps.Publisher.Publish(n)
	respondJSON(w, http.StatusAccepted, notifyResponse{Kind: string(kind), Delivered: delivered})
}

type recordActionRequest struct {
	Action  string         `json:"action"`
	Details map[string]any `json:"details"`
}

// RecordAction records a custom action directly, bypassing the adapter.
func (h *handler) RecordAction(w http.ResponseWriter, r *http.Request) {
	var req recordActionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		respondError(w, http.StatusBadRequest, "action is required")
		return
	}

	h.deps.Recorder.Record(req.Action, req.Details)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

type updateUserRequest struct {
	UserID string `json:"userId"`
}

func (h *handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if h.deps.Validator != nil {
		if err := h.deps.Validator.Validate(r.Context(), req.UserID); err != nil {
			if errors.Is(err, identity.ErrInvalidUser) {
				respondError(w, http.StatusUnprocessableEntity, "invalid user id")
				return
			}
			h.deps.Logger.Warn("user validation unavailable", "error", err)
			respondError(w, http.StatusBadGateway, "failed to validate user id")
			return
		}
	}

	if h.deps.Cache != nil {
		if err := h.deps.Cache.Save(req.UserID); err != nil {
			h.deps.Logger.Error("failed to cache user id", "error", err)
		}
	}

	h.deps.Recorder.UpdateUserID(req.UserID)
	respondJSON(w, http.StatusOK, map[string]string{"userId": req.UserID})
}

func (h *handler) Flush(w http.ResponseWriter, r *http.Request) {
	// The flush is shared with other callers, so one caller hanging up must
	// not cancel it for the rest.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), flushTimeout)
	defer cancel()

	result := h.deps.Flusher.Flush(ctx)
	respondJSON(w, http.StatusOK, result)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
