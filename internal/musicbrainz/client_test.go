package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/ratelimit"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "relwatch-test/1.0", ratelimit.New(time.Millisecond), zerolog.Nop())
}

func TestGetArtist(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artist/da66103a-1307-400d-8261-89d856126867" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "relwatch-test/1.0" {
			t.Errorf("unexpected user agent %q", ua)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":             "da66103a-1307-400d-8261-89d856126867",
			"name":           "Nerf Herder",
			"sort-name":      "Nerf Herder",
			"disambiguation": "US pop punk band",
		})
	})

	artist, err := c.GetArtist(context.Background(), "da66103a-1307-400d-8261-89d856126867")
	if err != nil {
		t.Fatalf("GetArtist: %v", err)
	}
	if artist.Name != "Nerf Herder" || artist.Disambiguation != "US pop punk band" {
		t.Errorf("unexpected artist %+v", artist)
	}
}

func TestGetArtistNotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := c.GetArtist(context.Background(), "no-such-mbid")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetArtistServerErrorIsTransient(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.GetArtist(context.Background(), "whatever")
	if err == nil {
		t.Fatal("want error for 503")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("a 503 must not be reported as not-found")
	}
}

func TestGetReleaseGroups(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("artist") != "artist-mbid" || q.Get("limit") != "100" || q.Get("offset") != "200" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("fmt") != "json" {
			t.Errorf("fmt=json missing")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"release-groups": []map[string]string{
				{"id": "rg-1", "title": "Rockingham", "primary-type": "Album", "first-release-date": "2016-02-21"},
				{"id": "rg-2", "title": "Undated", "primary-type": "Album", "first-release-date": ""},
			},
		})
	})

	groups, err := c.GetReleaseGroups(context.Background(), "artist-mbid", 100, 200)
	if err != nil {
		t.Fatalf("GetReleaseGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].FirstReleaseDate != "2016-02-21" || groups[0].PrimaryType != "Album" {
		t.Errorf("unexpected group %+v", groups[0])
	}
}
