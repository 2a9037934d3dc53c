// Package musicbrainz is the client for the MusicBrainz ws/2 JSON API, the
// authoritative catalog for artists and release groups. Every request goes
// through the shared rate limiter; MusicBrainz bans clients that exceed its
// usage policy.
package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/ratelimit"
)

// ErrNotFound means the catalog has no record for the requested MBID. This is
// a permanent outcome, distinct from transient network or server failures
// which are returned as ordinary wrapped errors and retried on a later sweep.
var ErrNotFound = errors.New("musicbrainz: not found")

// Artist is the catalog's view of an artist. ID is the canonical MBID and may
// differ from the MBID it was requested under when the catalog has merged the
// artist into another identity.
type Artist struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SortName       string `json:"sort-name"`
	Disambiguation string `json:"disambiguation"`
}

// ReleaseGroup is one entry of an artist's release-group listing. Title,
// PrimaryType and FirstReleaseDate may each be empty; the reconciler decides
// what to do with incomplete entries.
type ReleaseGroup struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	PrimaryType      string `json:"primary-type"`
	FirstReleaseDate string `json:"first-release-date"`
}

// Release is one physical/digital edition of a release group, used only by
// the cover art fallback path.
type Release struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type releaseGroupPage struct {
	ReleaseGroups []ReleaseGroup `json:"release-groups"`
}

type releasePage struct {
	Releases []Release `json:"releases"`
}

type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	logger     zerolog.Logger
}

func NewClient(baseURL, userAgent string, limiter *ratelimit.Limiter, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		logger:     logger.With().Str("component", "musicbrainz").Logger(),
	}
}

// GetArtist resolves an MBID against the catalog. The returned artist carries
// the canonical MBID, which differs from the requested one after a merge.
func (c *Client) GetArtist(ctx context.Context, mbid string) (Artist, error) {
	var artist Artist
	endpoint := fmt.Sprintf("%s/artist/%s", c.baseURL, url.PathEscape(mbid))
	if err := c.get(ctx, endpoint, url.Values{}, &artist); err != nil {
		return Artist{}, err
	}
	return artist, nil
}

// GetReleaseGroups returns one page of the artist's release-group listing in
// catalog order. A page shorter than limit is the last one.
func (c *Client) GetReleaseGroups(ctx context.Context, artistMBID string, limit, offset int) ([]ReleaseGroup, error) {
	params := url.Values{}
	params.Set("artist", artistMBID)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var page releaseGroupPage
	if err := c.get(ctx, c.baseURL+"/release-group", params, &page); err != nil {
		return nil, err
	}
	return page.ReleaseGroups, nil
}

// GetReleases lists editions of a release group, used to look up cover art on
// Last.fm when the Cover Art Archive has nothing.
func (c *Client) GetReleases(ctx context.Context, releaseGroupMBID string, limit int) ([]Release, error) {
	params := url.Values{}
	params.Set("release-group", releaseGroupMBID)
	params.Set("limit", strconv.Itoa(limit))

	var page releasePage
	if err := c.get(ctx, c.baseURL+"/release", params, &page); err != nil {
		return nil, err
	}
	return page.Releases, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	params.Set("fmt", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("musicbrainz request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn().Int("status", resp.StatusCode).Str("url", endpoint).Msg("unexpected catalog response")
		return fmt.Errorf("musicbrainz returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
