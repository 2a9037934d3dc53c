package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/lastfm"
	"github.com/relwatch/relwatch/internal/repository"
)

const lastfmPageSize = 50

// LastfmImporter follows a user's Last.fm top artists. Chart entries without
// a MusicBrainz link, blacklisted pseudo-artists and MBIDs the catalog does
// not know are skipped; transient catalog failures abort the import so the
// job can be retried.
type LastfmImporter struct {
	store  *Store
	users  repository.UserRepository
	lastfm *lastfm.Client
	logger zerolog.Logger
}

func NewLastfmImporter(store *Store, users repository.UserRepository, lfm *lastfm.Client, logger zerolog.Logger) *LastfmImporter {
	return &LastfmImporter{
		store:  store,
		users:  users,
		lastfm: lfm,
		logger: logger.With().Str("component", "lastfm_import").Logger(),
	}
}

// Import follows up to count artists from the user's top chart for the given
// period and returns how many follow edges it created or confirmed.
func (i *LastfmImporter) Import(ctx context.Context, userID int64, username, period string, count int) (int, error) {
	followed := 0
	seen := make(map[string]struct{})
	for page := 1; followed < count; page++ {
		// The page size must stay fixed across the run: Last.fm windows the
		// chart by limit*page, so changing the limit mid-run re-slices the
		// chart and serves entries twice while skipping others.
		artists, err := i.lastfm.GetTopArtists(ctx, username, period, lastfmPageSize, page)
		if err != nil {
			return followed, fmt.Errorf("fetch top artists page %d: %w", page, err)
		}
		if len(artists) == 0 {
			break
		}

		for _, entry := range artists {
			if entry.MBID == "" {
				continue
			}
			if _, dup := seen[entry.MBID]; dup {
				continue
			}
			seen[entry.MBID] = struct{}{}
			artist, err := i.store.GetOrImport(ctx, entry.MBID)
			if err != nil {
				if errors.Is(err, ErrBlockedArtist) || errors.Is(err, ErrUnknownArtist) {
					i.logger.Debug().Err(err).Str("mbid", entry.MBID).Msg("skipping chart entry")
					continue
				}
				return followed, fmt.Errorf("import artist %s: %w", entry.MBID, err)
			}
			if err := i.users.Follow(ctx, userID, artist.ID); err != nil {
				return followed, fmt.Errorf("follow artist %s: %w", entry.MBID, err)
			}
			followed++
			if followed == count {
				break
			}
		}

		if len(artists) < lastfmPageSize {
			break
		}
	}

	i.logger.Info().Int64("user", userID).Str("username", username).Int("followed", followed).Msg("lastfm import finished")
	return followed, nil
}
