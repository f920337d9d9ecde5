package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Priya8975/activity-logger/internal/domain"
)

type UserHandler struct {
	users  UserDirectory
	logger *slog.Logger
}

func NewUserHandler(users UserDirectory, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Validate answers 200 for a registered username and 404 otherwise.
func (h *UserHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req domain.ValidateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	exists, err := h.users.UserExists(r.Context(), username)
	if err != nil {
		h.logger.Error("failed to check user", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to validate user")
		return
	}
	if !exists {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"username": username})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.ValidateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	user, err := h.users.CreateUser(r.Context(), username)
	if err != nil {
		h.logger.Error("failed to create user", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	respondJSON(w, http.StatusOK, users)
}
