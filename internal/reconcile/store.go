package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/models"
	"github.com/relwatch/relwatch/internal/musicbrainz"
	"github.com/relwatch/relwatch/internal/repository"
)

// importPageSize bounds the eager release fetch for a freshly imported
// artist, so the artist page has something to show right away without paging
// through the whole catalog.
const importPageSize = 11

// Catalog is the slice of the MusicBrainz client the reconciler needs.
type Catalog interface {
	GetArtist(ctx context.Context, mbid string) (musicbrainz.Artist, error)
	GetReleaseGroups(ctx context.Context, artistMBID string, limit, offset int) ([]musicbrainz.ReleaseGroup, error)
}

// Store resolves external artist identities to local records, importing from
// the catalog on first sight.
type Store struct {
	artists  repository.ArtistRepository
	releases repository.ReleaseGroupRepository
	catalog  Catalog
	logger   zerolog.Logger
}

func NewStore(artists repository.ArtistRepository, releases repository.ReleaseGroupRepository, catalog Catalog, logger zerolog.Logger) *Store {
	return &Store{
		artists:  artists,
		releases: releases,
		catalog:  catalog,
		logger:   logger.With().Str("component", "artist_store").Logger(),
	}
}

// GetOrImport returns the local artist for the MBID, creating it from catalog
// data when it does not exist yet. Blacklisted MBIDs fail with
// ErrBlockedArtist and are never persisted; an MBID the catalog does not know
// fails with ErrUnknownArtist. Any other error is transient and worth a
// retry.
func (s *Store) GetOrImport(ctx context.Context, mbid string) (models.Artist, error) {
	if models.IsBlacklistedMBID(mbid) {
		return models.Artist{}, ErrBlockedArtist
	}

	artist, err := s.artists.GetByMBID(ctx, mbid)
	if err == nil {
		return artist, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return models.Artist{}, fmt.Errorf("look up artist %s: %w", mbid, err)
	}

	data, err := s.catalog.GetArtist(ctx, mbid)
	if err != nil {
		if errors.Is(err, musicbrainz.ErrNotFound) {
			return models.Artist{}, ErrUnknownArtist
		}
		return models.Artist{}, fmt.Errorf("fetch artist %s: %w", mbid, err)
	}

	artist, err = s.artists.Create(ctx, models.Artist{
		MBID:           mbid,
		Name:           data.Name,
		SortName:       data.SortName,
		Disambiguation: data.Disambiguation,
	})
	if errors.Is(err, repository.ErrDuplicateArtist) {
		// Someone imported the artist while we were querying the catalog.
		return s.artists.GetByMBID(ctx, mbid)
	}
	if err != nil {
		return models.Artist{}, fmt.Errorf("create artist %s: %w", mbid, err)
	}

	s.logger.Info().Str("mbid", mbid).Str("name", artist.Name).Msg("imported new artist")

	// Seed a handful of releases so the artist is not empty until the first
	// full reconciliation. Failures here are not fatal: the sweep fills the
	// gap soon enough.
	if err := s.seedReleases(ctx, artist); err != nil {
		s.logger.Warn().Err(err).Str("mbid", mbid).Msg("eager release fetch failed")
	}

	return artist, nil
}

func (s *Store) seedReleases(ctx context.Context, artist models.Artist) error {
	page, err := s.catalog.GetReleaseGroups(ctx, artist.MBID, importPageSize, 0)
	if err != nil {
		return err
	}

	var changes repository.PageChanges
	for _, rg := range page {
		date := models.ParsePartialDate(rg.FirstReleaseDate)
		if date == 0 || rg.PrimaryType == "" || rg.Title == "" {
			continue
		}
		changes.Creates = append(changes.Creates, models.ReleaseGroup{
			ArtistID: artist.ID,
			MBID:     rg.ID,
			Name:     rg.Title,
			Type:     rg.PrimaryType,
			Date:     date,
		})
	}

	// A brand-new artist has no followers yet, so no notifications are due
	// for the seeded rows.
	_, err = s.releases.ApplyPage(ctx, changes)
	return err
}
