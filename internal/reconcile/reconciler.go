// Package reconcile brings the locally stored release catalog of an artist
// into agreement with MusicBrainz. It is the write path for artists and
// release groups: rows are created, updated and soft-deleted here and nowhere
// else, with each catalog page committed as one unit.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/models"
	"github.com/relwatch/relwatch/internal/musicbrainz"
	"github.com/relwatch/relwatch/internal/repository"
)

// Notifier receives newly created, qualifying release groups. Satisfied by
// notify.Dispatcher.
type Notifier interface {
	ReleaseCreated(ctx context.Context, artist models.Artist, release models.ReleaseGroup) (int, error)
}

// Result summarises one reconciliation cycle.
type Result struct {
	Created     int
	Updated     int
	SoftDeleted int
	// Merged is set when the catalog reported a different canonical MBID and
	// the cycle ended early after repointing followers.
	Merged bool
	// MergedInto holds the canonical MBID after a merge.
	MergedInto string
	Notified   int
}

type Reconciler struct {
	store      *Store
	artists    repository.ArtistRepository
	releases   repository.ReleaseGroupRepository
	catalog    Catalog
	dispatcher Notifier
	pageSize   int
	cooldown   time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

func NewReconciler(
	store *Store,
	artists repository.ArtistRepository,
	releases repository.ReleaseGroupRepository,
	catalog Catalog,
	dispatcher Notifier,
	pageSize int,
	cooldown time.Duration,
	logger zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		store:      store,
		artists:    artists,
		releases:   releases,
		catalog:    catalog,
		dispatcher: dispatcher,
		pageSize:   pageSize,
		cooldown:   cooldown,
		logger:     logger.With().Str("component", "reconciler").Logger(),
		now:        time.Now,
	}
}

// ReconcileArtist runs one reconciliation cycle for a stored artist.
//
// Inside the cooldown window it is a no-op returning a CooldownError with the
// remaining wait. Catalog failures abort the cycle without stamping the
// artist's last-check time, so the next sweep retries promptly; pages already
// committed stay committed. On a catalog-side merge the follow edges move to
// the canonical artist, the stale artist and its releases are deleted, and
// the cycle ends without further fetching.
func (r *Reconciler) ReconcileArtist(ctx context.Context, mbid string) (Result, error) {
	artist, err := r.artists.GetByMBID(ctx, mbid)
	if err != nil {
		return Result{}, fmt.Errorf("load artist %s: %w", mbid, err)
	}

	if artist.LastReleaseCheck != nil {
		if elapsed := r.now().Sub(*artist.LastReleaseCheck); elapsed < r.cooldown {
			return Result{}, &CooldownError{Remaining: r.cooldown - elapsed}
		}
	}

	logger := r.logger.With().Str("mbid", mbid).Logger()
	logger.Info().Msg("checking artist")

	data, err := r.catalog.GetArtist(ctx, mbid)
	if err != nil {
		// Not-found and transient failures are treated alike here: leave all
		// state untouched and let the next sweep retry.
		logger.Warn().Err(err).Msg("could not fetch artist data")
		return Result{}, fmt.Errorf("fetch artist %s: %w", mbid, err)
	}

	if data.ID != mbid {
		return r.mergeArtist(ctx, artist, data.ID, logger)
	}

	if artist.Name != data.Name || artist.SortName != data.SortName || artist.Disambiguation != data.Disambiguation {
		logger.Info().Msg("artist changed, updating")
		if err := r.artists.UpdateInfo(ctx, artist.ID, data.Name, data.SortName, data.Disambiguation); err != nil {
			return Result{}, fmt.Errorf("update artist %s: %w", mbid, err)
		}
		artist.Name, artist.SortName, artist.Disambiguation = data.Name, data.SortName, data.Disambiguation
	}

	result, err := r.syncReleaseGroups(ctx, artist, logger)
	if err != nil {
		return result, err
	}

	if err := r.artists.SetLastReleaseCheck(ctx, artist.ID, r.now()); err != nil {
		return result, fmt.Errorf("stamp artist %s: %w", mbid, err)
	}
	return result, nil
}

// mergeArtist handles the catalog reassigning this artist's identity. The
// canonical record is resolved (or imported) first; if that fails for any
// reason the old record is left alone and the next sweep tries again. The
// merged-into artist keeps its own check schedule, so its releases arrive on
// a later cycle.
func (r *Reconciler) mergeArtist(ctx context.Context, old models.Artist, canonicalMBID string, logger zerolog.Logger) (Result, error) {
	logger.Info().Str("canonical", canonicalMBID).Msg("artist merged, repointing followers")

	target, err := r.store.GetOrImport(ctx, canonicalMBID)
	if err != nil {
		if errors.Is(err, ErrBlockedArtist) || errors.Is(err, ErrUnknownArtist) {
			logger.Warn().Err(err).Msg("merge target not usable, keeping old artist")
			// Stamp the check anyway: the sweep picks the least recently
			// checked artist, and an unstamped row would be re-picked every
			// tick until the catalog changes its mind.
			if err := r.artists.SetLastReleaseCheck(ctx, old.ID, r.now()); err != nil {
				return Result{}, fmt.Errorf("stamp artist %s: %w", old.MBID, err)
			}
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("resolve merge target %s: %w", canonicalMBID, err)
	}

	if err := r.artists.RepointFollowers(ctx, old.ID, target.ID); err != nil {
		return Result{}, fmt.Errorf("repoint followers: %w", err)
	}
	if err := r.artists.DeleteWithReleases(ctx, old.ID); err != nil {
		return Result{}, fmt.Errorf("delete merged artist: %w", err)
	}

	return Result{Merged: true, MergedInto: canonicalMBID}, nil
}

func (r *Reconciler) syncReleaseGroups(ctx context.Context, artist models.Artist, logger zerolog.Logger) (Result, error) {
	var result Result

	// Everything stored for the artist, soft-deleted rows included. Entries
	// are removed as catalog pages confirm them; whatever is left at the end
	// is no longer listed upstream.
	current, err := r.releases.MapByArtist(ctx, artist.ID)
	if err != nil {
		return result, fmt.Errorf("load stored release groups: %w", err)
	}

	offset := 0
	for {
		page, err := r.catalog.GetReleaseGroups(ctx, artist.MBID, r.pageSize, offset)
		if err != nil {
			return result, fmt.Errorf("fetch release groups at offset %d: %w", offset, err)
		}
		logger.Debug().Int("count", len(page)).Int("offset", offset).Msg("fetched release groups")

		changes := r.diffPage(artist.ID, page, current)
		created, err := r.releases.ApplyPage(ctx, changes)
		if err != nil {
			return result, fmt.Errorf("apply page at offset %d: %w", offset, err)
		}
		result.Created += len(created)
		result.Updated += len(changes.Updates)
		result.SoftDeleted += len(changes.SoftDeletes)

		for _, rg := range created {
			notified, err := r.dispatcher.ReleaseCreated(ctx, artist, rg)
			if err != nil {
				// The release row is committed; failing the cycle would not
				// bring the notification back. Log and move on.
				logger.Error().Err(err).Str("release", rg.MBID).Msg("notification dispatch failed")
				continue
			}
			result.Notified += notified
		}

		if len(page) < r.pageSize {
			break
		}
		offset += r.pageSize
	}

	// The catalog no longer lists whatever is still in the index.
	var gone []int64
	for _, rg := range current {
		if !rg.IsDeleted {
			gone = append(gone, rg.ID)
		}
	}
	if err := r.releases.SoftDeleteByID(ctx, gone); err != nil {
		return result, fmt.Errorf("soft-delete unlisted release groups: %w", err)
	}
	result.SoftDeleted += len(gone)

	return result, nil
}

// diffPage turns one catalog page into the set of writes that bring stored
// state into line with it. Entries confirmed by the page are removed from
// current; entries this page soft-deletes are updated in place so the final
// sweep stays idempotent.
func (r *Reconciler) diffPage(artistID int64, page []musicbrainz.ReleaseGroup, current map[string]models.ReleaseGroup) repository.PageChanges {
	var changes repository.PageChanges

	for _, entry := range page {
		date := models.ParsePartialDate(entry.FirstReleaseDate)

		// A release without a usable date or a type is never tracked. An
		// existing row is soft-deleted rather than removed, so a later
		// reappearance of the same MBID cannot re-trigger notifications.
		if date == 0 || entry.PrimaryType == "" {
			if local, ok := current[entry.ID]; ok && !local.IsDeleted {
				changes.SoftDeletes = append(changes.SoftDeletes, local.ID)
				local.IsDeleted = true
				current[entry.ID] = local
			}
			continue
		}

		if local, ok := current[entry.ID]; ok {
			updated := local
			changed := false
			if updated.IsDeleted {
				updated.IsDeleted = false
				changed = true
			}
			// MusicBrainz occasionally returns empty titles (MBS-4285);
			// never let one clobber a stored title.
			if entry.Title != "" && updated.Name != entry.Title {
				updated.Name = entry.Title
				changed = true
			}
			if updated.Type != entry.PrimaryType {
				updated.Type = entry.PrimaryType
				changed = true
			}
			if updated.Date != date {
				updated.Date = date
				changed = true
			}
			if changed {
				changes.Updates = append(changes.Updates, updated)
			}
			delete(current, entry.ID)
		} else if entry.Title != "" {
			changes.Creates = append(changes.Creates, models.ReleaseGroup{
				ArtistID: artistID,
				MBID:     entry.ID,
				Name:     entry.Title,
				Type:     entry.PrimaryType,
				Date:     date,
			})
		}
	}

	return changes
}
