package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	tc "go.temporal.io/sdk/client"

	"github.com/relwatch/relwatch/internal/notify"
	"github.com/relwatch/relwatch/internal/repository"
	relwatch "github.com/relwatch/relwatch/internal/temporal"
	"github.com/relwatch/relwatch/internal/temporal/workflows"
)

type UserHandler struct {
	users          repository.UserRepository
	tokens         *notify.UnsubscribeTokens
	temporalClient tc.Client
	logger         zerolog.Logger
}

func NewUserHandler(users repository.UserRepository, tokens *notify.UnsubscribeTokens, temporalClient tc.Client, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:          users,
		tokens:         tokens,
		temporalClient: temporalClient,
		logger:         logger.With().Str("handler", "user").Logger(),
	}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUser creates the user and its preference profile as one unit.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !strings.Contains(req.Email, "@") || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "a valid email and a password of at least 8 characters are required")
		return
	}

	user, err := h.users.CreateWithProfile(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Error().Err(err).Msg("user creation failed")
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// DeleteUser purges the account and everything hanging off it.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.users.Purge(r.Context(), userID); err != nil {
		h.logger.Error().Err(err).Int64("user", userID).Msg("purge failed")
		writeError(w, http.StatusInternalServerError, "could not delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type lastfmImportRequest struct {
	Username string `json:"username"`
	Period   string `json:"period"`
	Count    int    `json:"count"`
}

// ImportLastfm queues a Last.fm library import for the user.
func (h *UserHandler) ImportLastfm(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req lastfmImportRequest
	if err := decodeJSON(r, &req); err != nil || req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if req.Period == "" {
		req.Period = "overall"
	}
	if req.Count <= 0 || req.Count > 500 {
		req.Count = 50
	}

	opts := tc.StartWorkflowOptions{
		ID:        relwatch.LastfmImportWorkflowID + uuid.NewString(),
		TaskQueue: relwatch.TaskQueueName,
	}
	_, err := h.temporalClient.ExecuteWorkflow(r.Context(), opts, workflows.LastfmImportWorkflow,
		relwatch.LastfmImportParams{UserID: userID, Username: req.Username, Period: req.Period, Count: req.Count})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to queue lastfm import")
		writeError(w, http.StatusServiceUnavailable, "try again later")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// Unsubscribe flips the master notify switch off for the user a signed email
// token identifies.
func (h *UserHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	userID, err := h.tokens.Verify(token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token")
		return
	}
	if err := h.users.SetNotify(r.Context(), userID, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not unsubscribe")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}
