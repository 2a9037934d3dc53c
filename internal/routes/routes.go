package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/relwatch/relwatch/internal/handlers"
)

// NewRouter sets up the API routes
func NewRouter(artist *handlers.ArtistHandler, release *handlers.ReleaseHandler, user *handlers.UserHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Users
	router.HandleFunc("/api/users", user.CreateUser).Methods(http.MethodPost)
	router.HandleFunc("/api/users/{userID}", user.DeleteUser).Methods(http.MethodDelete)
	router.HandleFunc("/api/users/{userID}/import/lastfm", user.ImportLastfm).Methods(http.MethodPost)
	router.HandleFunc("/api/unsubscribe", user.Unsubscribe).Methods(http.MethodGet)

	// Artists and follows
	router.HandleFunc("/api/artists/{mbid}/check", artist.CheckArtist).Methods(http.MethodPost)
	router.HandleFunc("/api/artists/{mbid}/releases", release.ListArtistReleases).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userID}/artists", artist.ListUserArtists).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userID}/artists", artist.FollowArtist).Methods(http.MethodPost)
	router.HandleFunc("/api/users/{userID}/artists/{mbid}", artist.UnfollowArtist).Methods(http.MethodDelete)

	// Releases and stars
	router.HandleFunc("/api/users/{userID}/releases", release.ListUserReleases).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userID}/releases/{releaseID}/star", release.StarRelease).Methods(http.MethodPut)
	router.HandleFunc("/api/users/{userID}/releases/{releaseID}/star", release.UnstarRelease).Methods(http.MethodDelete)

	return router
}
