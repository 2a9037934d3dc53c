// Package coverart resolves cover image URLs for release groups. The Cover
// Art Archive is the primary source; when it has nothing the resolver walks
// the release group's editions and asks Last.fm for each, and when every
// source comes up empty it settles on a fixed placeholder so the lookup is
// not repeated before the cooldown expires.
package coverart

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/lastfm"
	"github.com/relwatch/relwatch/internal/musicbrainz"
)

// releaseLookupLimit bounds how many editions of a release group are tried
// against Last.fm before giving up.
const releaseLookupLimit = 10

type Resolver struct {
	archiveURL     string
	placeholderURL string
	httpClient     *http.Client
	mb             *musicbrainz.Client
	lastfm         *lastfm.Client
	logger         zerolog.Logger
}

func NewResolver(archiveURL, placeholderURL string, mb *musicbrainz.Client, lfm *lastfm.Client, logger zerolog.Logger) *Resolver {
	return &Resolver{
		archiveURL:     archiveURL,
		placeholderURL: placeholderURL,
		// The archive answers with a redirect to the image; we want the
		// Location header, not the image bytes.
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		mb:     mb,
		lastfm: lfm,
		logger: logger.With().Str("component", "coverart").Logger(),
	}
}

// PlaceholderURL is the URL stored when no cover art could be found.
func (r *Resolver) PlaceholderURL() string { return r.placeholderURL }

// Resolve returns a cover image URL for the release group. It always returns
// a usable URL; the placeholder is the terminal fallback. An error is only
// returned when the archive itself could not be reached, so the caller can
// retry later instead of persisting the placeholder prematurely.
func (r *Resolver) Resolve(ctx context.Context, releaseGroupMBID string) (string, error) {
	coverURL, err := r.lookupArchive(ctx, releaseGroupMBID)
	if err != nil {
		return "", err
	}
	if coverURL != "" {
		return coverURL, nil
	}

	releases, err := r.mb.GetReleases(ctx, releaseGroupMBID, releaseLookupLimit)
	if err != nil {
		r.logger.Warn().Err(err).Str("mbid", releaseGroupMBID).Msg("release listing failed, falling back to placeholder")
		return r.placeholderURL, nil
	}
	for _, release := range releases {
		coverURL, err := r.lastfm.GetAlbumCover(ctx, release.ID)
		if err != nil {
			// Last.fm errors on albums it does not know; keep the
			// placeholder rather than hammering the remaining editions.
			r.logger.Debug().Err(err).Str("release", release.ID).Msg("lastfm album lookup failed")
			return r.placeholderURL, nil
		}
		if coverURL != "" {
			return coverURL, nil
		}
	}
	return r.placeholderURL, nil
}

func (r *Resolver) lookupArchive(ctx context.Context, releaseGroupMBID string) (string, error) {
	endpoint := fmt.Sprintf("%s/release-group/%s/front-250", r.archiveURL, url.PathEscape(releaseGroupMBID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cover art archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTemporaryRedirect || resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound {
		return resp.Header.Get("Location"), nil
	}
	// Only a definitive answer means "no art". A server-side failure must
	// surface as an error, or the placeholder would be persisted before the
	// archive ever got a real chance.
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("cover art archive returned status %d", resp.StatusCode)
	}
	return "", nil
}
