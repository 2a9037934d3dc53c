package activities

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/reconcile"
	"github.com/relwatch/relwatch/internal/sweep"
	relwatch "github.com/relwatch/relwatch/internal/temporal"
)

// Activities is registered on the worker; the workflow side only references
// the method signatures.
type Activities struct {
	Reconciler *reconcile.Reconciler
	Importer   *reconcile.LastfmImporter
	Sweeper    *sweep.Sweeper
	Logger     zerolog.Logger
}

// ReconcileArtistActivity reconciles one artist. A cooldown no-op and a
// blocked or unknown identity are terminal outcomes, not failures worth a
// requeue; transient catalog errors surface as activity errors and are
// retried by the next sweep cycle.
func (a *Activities) ReconcileArtistActivity(ctx context.Context, params relwatch.ReconcileParams) error {
	result, err := a.Reconciler.ReconcileArtist(ctx, params.ArtistMBID)
	if err != nil {
		if reconcile.IsCooldown(err) {
			a.Logger.Info().Str("mbid", params.ArtistMBID).Msg(err.Error())
			return nil
		}
		if errors.Is(err, reconcile.ErrBlockedArtist) || errors.Is(err, reconcile.ErrUnknownArtist) {
			a.Logger.Warn().Err(err).Str("mbid", params.ArtistMBID).Msg("reconciliation not applicable")
			return nil
		}
		return err
	}

	a.Logger.Info().
		Str("mbid", params.ArtistMBID).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("soft_deleted", result.SoftDeleted).
		Int("notified", result.Notified).
		Bool("merged", result.Merged).
		Msg("artist reconciled")
	return nil
}

func (a *Activities) ReleaseSweepActivity(ctx context.Context) error {
	return errors.Wrap(a.Sweeper.CheckNextArtist(ctx), "release sweep")
}

func (a *Activities) CoverArtSweepActivity(ctx context.Context) error {
	return errors.Wrap(a.Sweeper.CheckNextCoverArt(ctx), "cover art sweep")
}

func (a *Activities) LastfmImportActivity(ctx context.Context, params relwatch.LastfmImportParams) error {
	followed, err := a.Importer.Import(ctx, params.UserID, params.Username, params.Period, params.Count)
	if err != nil {
		return errors.Wrapf(err, "lastfm import for user %d", params.UserID)
	}
	a.Logger.Info().Int64("user", params.UserID).Int("followed", followed).Msg("lastfm import complete")
	return nil
}
