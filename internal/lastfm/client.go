// Package lastfm is a minimal client for the Last.fm web API: album cover
// lookups for the cover art fallback path, and top-artist listings for the
// library import job.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(baseURL, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "lastfm").Logger(),
	}
}

// TopArtist is one entry of a user's top-artists chart. MBID may be empty
// for artists Last.fm has not linked to MusicBrainz.
type TopArtist struct {
	Name string `json:"name"`
	MBID string `json:"mbid"`
}

type topArtistsResponse struct {
	TopArtists struct {
		Artists []TopArtist `json:"artist"`
		Attr    struct {
			Page string `json:"page"`
		} `json:"@attr"`
	} `json:"topartists"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

type albumInfoResponse struct {
	Album struct {
		Images []struct {
			URL  string `json:"#text"`
			Size string `json:"size"`
		} `json:"image"`
	} `json:"album"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// GetTopArtists fetches one page of a user's top-artists chart for the given
// period ("overall", "12month", ...).
func (c *Client) GetTopArtists(ctx context.Context, username, period string, limit, page int) ([]TopArtist, error) {
	params := url.Values{}
	params.Set("user", username)
	params.Set("period", period)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(page))

	var resp topArtistsResponse
	if err := c.call(ctx, "user.getTopArtists", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != 0 {
		return nil, fmt.Errorf("lastfm error %d: %s", resp.Error, resp.Message)
	}
	if resp.TopArtists.Attr.Page != strconv.Itoa(page) {
		return nil, nil
	}
	return resp.TopArtists.Artists, nil
}

// GetAlbumCover returns the cover image URL for an album identified by its
// MusicBrainz release MBID, or "" when Last.fm has no usable image.
func (c *Client) GetAlbumCover(ctx context.Context, releaseMBID string) (string, error) {
	params := url.Values{}
	params.Set("mbid", releaseMBID)

	var resp albumInfoResponse
	if err := c.call(ctx, "album.getInfo", params, &resp); err != nil {
		return "", err
	}
	if resp.Error != 0 {
		return "", fmt.Errorf("lastfm error %d: %s", resp.Error, resp.Message)
	}

	// Prefer the largest image on offer.
	for _, size := range []string{"mega", "extralarge", "large"} {
		for _, img := range resp.Album.Images {
			if img.Size == size && img.URL != "" {
				return img.URL, nil
			}
		}
	}
	return "", nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "relwatch/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lastfm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lastfm returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
