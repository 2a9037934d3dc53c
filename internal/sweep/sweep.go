// Package sweep drives the two periodic maintenance passes: the release sweep
// that reconciles the longest-unchecked artist, and the cover art sweep that
// resolves one missing cover image. Each invocation does at most one unit of
// work; cadence comes from the task queue's cron schedules.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/coverart"
	"github.com/relwatch/relwatch/internal/reconcile"
	"github.com/relwatch/relwatch/internal/repository"
)

type Sweeper struct {
	artists    repository.ArtistRepository
	releases   repository.ReleaseGroupRepository
	reconciler *reconcile.Reconciler
	resolver   *coverart.Resolver
	cooldown   time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

func NewSweeper(
	artists repository.ArtistRepository,
	releases repository.ReleaseGroupRepository,
	reconciler *reconcile.Reconciler,
	resolver *coverart.Resolver,
	cooldown time.Duration,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		artists:    artists,
		releases:   releases,
		reconciler: reconciler,
		resolver:   resolver,
		cooldown:   cooldown,
		logger:     logger.With().Str("component", "sweep").Logger(),
		now:        time.Now,
	}
}

// CheckNextArtist reconciles the artist with the oldest (or missing)
// last-check stamp. An empty artist table and an artist still inside its
// cooldown are both silent, normal outcomes.
func (s *Sweeper) CheckNextArtist(ctx context.Context) error {
	artist, err := s.artists.NextForReleaseCheck(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pick next artist: %w", err)
	}

	_, err = s.reconciler.ReconcileArtist(ctx, artist.MBID)
	if reconcile.IsCooldown(err) {
		// The oldest artist is still cooling down, so every artist is.
		s.logger.Debug().Str("mbid", artist.MBID).Msg("all artists inside cooldown window")
		return nil
	}
	return err
}

// CheckNextCoverArt resolves cover art for one release group whose art is
// missing or still the placeholder, skipping entries inside their cooldown.
// A resolver failure leaves the row unstamped so a later sweep retries it.
func (s *Sweeper) CheckNextCoverArt(ctx context.Context) error {
	cutoff := s.now().Add(-s.cooldown)
	rg, err := s.releases.NextCoverArtCandidate(ctx, s.resolver.PlaceholderURL(), cutoff)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pick cover art candidate: %w", err)
	}

	coverURL, err := s.resolver.Resolve(ctx, rg.MBID)
	if err != nil {
		return fmt.Errorf("resolve cover art for %s: %w", rg.MBID, err)
	}

	if err := s.releases.SetCoverArt(ctx, rg.ID, coverURL, s.now()); err != nil {
		return fmt.Errorf("store cover art for %s: %w", rg.MBID, err)
	}

	s.logger.Info().Str("mbid", rg.MBID).Str("url", coverURL).Msg("updated cover art")
	return nil
}
