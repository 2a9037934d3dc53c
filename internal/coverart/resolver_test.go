package coverart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/lastfm"
	"github.com/relwatch/relwatch/internal/musicbrainz"
	"github.com/relwatch/relwatch/internal/ratelimit"
)

const placeholder = "https://example.com/placeholder.png"

func newResolver(t *testing.T, archive, mb, lfm http.HandlerFunc) *Resolver {
	t.Helper()
	archiveSrv := httptest.NewServer(archive)
	mbSrv := httptest.NewServer(mb)
	lfmSrv := httptest.NewServer(lfm)
	t.Cleanup(archiveSrv.Close)
	t.Cleanup(mbSrv.Close)
	t.Cleanup(lfmSrv.Close)

	mbClient := musicbrainz.NewClient(mbSrv.URL, "relwatch-test/1.0", ratelimit.New(time.Millisecond), zerolog.Nop())
	lfmClient := lastfm.NewClient(lfmSrv.URL, "test-key", zerolog.Nop())
	return NewResolver(archiveSrv.URL, placeholder, mbClient, lfmClient, zerolog.Nop())
}

func notCalled(t *testing.T, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("%s should not be called", name)
	}
}

func TestResolveFromArchive(t *testing.T) {
	r := newResolver(t,
		func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path != "/release-group/rg-1/front-250" {
				t.Errorf("unexpected path %s", req.URL.Path)
			}
			w.Header().Set("Location", "http://archive/cover.jpg")
			w.WriteHeader(http.StatusTemporaryRedirect)
		},
		notCalled(t, "musicbrainz"),
		notCalled(t, "lastfm"),
	)

	url, err := r.Resolve(context.Background(), "rg-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if url != "http://archive/cover.jpg" {
		t.Errorf("got %q, want archive cover", url)
	}
}

func TestResolveFallsBackToLastfm(t *testing.T) {
	r := newResolver(t,
		func(w http.ResponseWriter, req *http.Request) {
			http.NotFound(w, req)
		},
		func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte(`{"releases":[{"id":"rel-1","title":"Rockingham"}]}`))
		},
		func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte(`{"album":{"image":[{"#text":"http://lastfm/cover.png","size":"large"}]}}`))
		},
	)

	url, err := r.Resolve(context.Background(), "rg-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if url != "http://lastfm/cover.png" {
		t.Errorf("got %q, want lastfm cover", url)
	}
}

func TestResolvePlaceholderWhenNothingFound(t *testing.T) {
	r := newResolver(t,
		func(w http.ResponseWriter, req *http.Request) {
			http.NotFound(w, req)
		},
		func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte(`{"releases":[]}`))
		},
		notCalled(t, "lastfm"),
	)

	url, err := r.Resolve(context.Background(), "rg-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if url != placeholder {
		t.Errorf("got %q, want placeholder", url)
	}
}

func TestResolveArchiveServerErrorIsAnError(t *testing.T) {
	r := newResolver(t,
		func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		},
		notCalled(t, "musicbrainz"),
		notCalled(t, "lastfm"),
	)

	if _, err := r.Resolve(context.Background(), "rg-1"); err == nil {
		t.Fatal("want error when the archive answers 503")
	}
}

func TestResolveArchiveDownIsAnError(t *testing.T) {
	archiveSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	archiveURL := archiveSrv.URL
	archiveSrv.Close() // connection refused from here on

	mbClient := musicbrainz.NewClient("http://unused", "relwatch-test/1.0", ratelimit.New(time.Millisecond), zerolog.Nop())
	lfmClient := lastfm.NewClient("http://unused", "test-key", zerolog.Nop())
	r := NewResolver(archiveURL, placeholder, mbClient, lfmClient, zerolog.Nop())

	if _, err := r.Resolve(context.Background(), "rg-1"); err == nil {
		t.Fatal("want error when the archive is unreachable")
	}
}
