package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/repository"
)

const defaultPageSize = 50

type ReleaseHandler struct {
	artists  repository.ArtistRepository
	releases repository.ReleaseGroupRepository
	users    repository.UserRepository
	logger   zerolog.Logger
}

func NewReleaseHandler(
	artists repository.ArtistRepository,
	releases repository.ReleaseGroupRepository,
	users repository.UserRepository,
	logger zerolog.Logger,
) *ReleaseHandler {
	return &ReleaseHandler{
		artists:  artists,
		releases: releases,
		users:    users,
		logger:   logger.With().Str("handler", "release").Logger(),
	}
}

func (h *ReleaseHandler) ListArtistReleases(w http.ResponseWriter, r *http.Request) {
	mbid := mux.Vars(r)["mbid"]
	artist, err := h.artists.GetByMBID(r.Context(), mbid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not load artist")
		return
	}

	releases, err := h.releases.ListByArtist(r.Context(), artist.ID, queryInt(r, "limit", defaultPageSize), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list releases")
		return
	}
	writeJSON(w, http.StatusOK, releases)
}

// ListUserReleases lists non-deleted releases of the user's followed artists,
// restricted to the release types enabled in the user's profile; starred
// releases sort first, then newest by date.
func (h *ReleaseHandler) ListUserReleases(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	profile, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not load profile")
		return
	}

	types := profile.EnabledTypes()
	if len(types) == 0 {
		// A user tracking no release types sees no releases.
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}

	releases, err := h.releases.ListByUser(r.Context(), userID, types, queryInt(r, "limit", defaultPageSize), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list releases")
		return
	}
	writeJSON(w, http.StatusOK, releases)
}

func (h *ReleaseHandler) StarRelease(w http.ResponseWriter, r *http.Request) {
	h.setStar(w, r, true)
}

func (h *ReleaseHandler) UnstarRelease(w http.ResponseWriter, r *http.Request) {
	h.setStar(w, r, false)
}

func (h *ReleaseHandler) setStar(w http.ResponseWriter, r *http.Request, starred bool) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	releaseID, ok := pathID(r, "releaseID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid release id")
		return
	}
	if err := h.releases.SetStar(r.Context(), userID, releaseID, starred); err != nil {
		writeError(w, http.StatusInternalServerError, "could not update star")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
