// Package notify fans out new-release notifications to the users following an
// artist. The notifications table is the idempotency ledger: one row per
// (user, release group) pairing, written at most once, so re-running the
// dispatcher for the same release never double-sends.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/models"
	"github.com/relwatch/relwatch/internal/repository"
)

type Dispatcher struct {
	users     repository.UserRepository
	ledger    repository.NotificationRepository
	mailer    Mailer
	tokens    *UnsubscribeTokens
	urlFormat string
	logger    zerolog.Logger
}

func NewDispatcher(
	users repository.UserRepository,
	ledger repository.NotificationRepository,
	mailer Mailer,
	tokens *UnsubscribeTokens,
	unsubscribeURLFormat string,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		users:     users,
		ledger:    ledger,
		mailer:    mailer,
		tokens:    tokens,
		urlFormat: unsubscribeURLFormat,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
	}
}

// ReleaseCreated is called by the reconciler right after it creates a release
// group. Only freshly created, non-deleted releases with a date and a type
// qualify; updates and un-deletes never notify. It returns the number of
// users queued. Mail transport failures are logged and counted as failed
// sends, never returned: delivery is best-effort and not retried here.
func (d *Dispatcher) ReleaseCreated(ctx context.Context, artist models.Artist, release models.ReleaseGroup) (int, error) {
	if release.IsDeleted || release.Date == 0 || release.Type == "" {
		return 0, nil
	}

	followers, err := d.users.FollowersWithPrefs(ctx, artist.ID)
	if err != nil {
		return 0, fmt.Errorf("load followers: %w", err)
	}

	queued := 0
	for _, follower := range followers {
		if !d.eligible(&follower.Profile, release.Type) {
			continue
		}

		created, err := d.ledger.Create(ctx, follower.User.ID, release.ID)
		if err != nil {
			return queued, fmt.Errorf("record notification: %w", err)
		}
		if !created {
			// Already queued for this pairing, possibly by a racing worker.
			continue
		}
		queued++

		if ok := d.send(follower.User, artist, release); !ok {
			d.logger.Warn().
				Str("email", follower.User.Email).
				Str("release", release.MBID).
				Msg("notification email failed")
		}
	}

	if queued > 0 {
		d.logger.Info().
			Str("artist", artist.MBID).
			Str("release", release.MBID).
			Int("users", queued).
			Msg("notified followers of new release")
	}
	return queued, nil
}

func (d *Dispatcher) eligible(profile *models.UserProfile, releaseType string) bool {
	return profile.Notify && profile.EmailVerified && profile.Wants(releaseType)
}

// send reports delivery success as a boolean.
func (d *Dispatcher) send(user models.User, artist models.Artist, release models.ReleaseGroup) bool {
	unsubscribeURL := ""
	if token, err := d.tokens.Generate(user.ID); err == nil {
		unsubscribeURL = fmt.Sprintf(d.urlFormat, token)
	}
	if err := d.mailer.SendRelease(user.Email, artist, release, unsubscribeURL); err != nil {
		return false
	}
	return true
}
