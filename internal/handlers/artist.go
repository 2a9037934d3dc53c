package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	tc "go.temporal.io/sdk/client"

	"github.com/relwatch/relwatch/internal/reconcile"
	"github.com/relwatch/relwatch/internal/repository"
	relwatch "github.com/relwatch/relwatch/internal/temporal"
	"github.com/relwatch/relwatch/internal/temporal/workflows"
)

type ArtistHandler struct {
	store          *reconcile.Store
	artists        repository.ArtistRepository
	users          repository.UserRepository
	temporalClient tc.Client
	logger         zerolog.Logger
}

func NewArtistHandler(
	store *reconcile.Store,
	artists repository.ArtistRepository,
	users repository.UserRepository,
	temporalClient tc.Client,
	logger zerolog.Logger,
) *ArtistHandler {
	return &ArtistHandler{
		store:          store,
		artists:        artists,
		users:          users,
		temporalClient: temporalClient,
		logger:         logger.With().Str("handler", "artist").Logger(),
	}
}

// CheckArtist queues an on-demand reconciliation for the artist. The work
// itself runs on the task queue; inside the cooldown window it becomes a
// no-op there.
func (h *ArtistHandler) CheckArtist(w http.ResponseWriter, r *http.Request) {
	mbid := mux.Vars(r)["mbid"]

	if _, err := h.artists.GetByMBID(r.Context(), mbid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artist not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "try again later")
		return
	}

	opts := tc.StartWorkflowOptions{
		ID:        relwatch.ReconcileWorkflowIDPrefix + uuid.NewString(),
		TaskQueue: relwatch.TaskQueueName,
	}
	_, err := h.temporalClient.ExecuteWorkflow(r.Context(), opts, workflows.ReconcileArtistWorkflow,
		relwatch.ReconcileParams{ArtistMBID: mbid})
	if err != nil {
		h.logger.Error().Err(err).Str("mbid", mbid).Msg("failed to queue reconciliation")
		writeError(w, http.StatusServiceUnavailable, "try again later")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type followRequest struct {
	MBID string `json:"mbid"`
}

// FollowArtist follows an artist for the user, importing the artist from the
// catalog on first sight.
func (h *ArtistHandler) FollowArtist(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req followRequest
	if err := decodeJSON(r, &req); err != nil || req.MBID == "" {
		writeError(w, http.StatusBadRequest, "mbid is required")
		return
	}

	artist, err := h.store.GetOrImport(r.Context(), req.MBID)
	switch {
	case errors.Is(err, reconcile.ErrBlockedArtist):
		writeError(w, http.StatusBadRequest, "this artist cannot be followed")
		return
	case errors.Is(err, reconcile.ErrUnknownArtist):
		writeError(w, http.StatusNotFound, "unknown artist")
		return
	case err != nil:
		h.logger.Warn().Err(err).Str("mbid", req.MBID).Msg("artist import failed")
		writeError(w, http.StatusServiceUnavailable, "try again later")
		return
	}

	if err := h.users.Follow(r.Context(), userID, artist.ID); err != nil {
		h.logger.Error().Err(err).Msg("follow failed")
		writeError(w, http.StatusInternalServerError, "could not follow artist")
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

func (h *ArtistHandler) UnfollowArtist(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	mbid := mux.Vars(r)["mbid"]

	artist, err := h.artists.GetByMBID(r.Context(), mbid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not unfollow artist")
		return
	}
	if err := h.users.Unfollow(r.Context(), userID, artist.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "could not unfollow artist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ArtistHandler) ListUserArtists(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	artists, err := h.artists.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list artists")
		return
	}
	writeJSON(w, http.StatusOK, artists)
}
