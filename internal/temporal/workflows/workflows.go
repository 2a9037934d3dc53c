package workflows

import (
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	relwatch "github.com/relwatch/relwatch/internal/temporal"
	"github.com/relwatch/relwatch/internal/temporal/activities"
)

// Retries are left to the sweep cycle: a failed job simply waits for the next
// cron tick instead of being re-driven by Temporal, which keeps the cooldown
// semantics in one place.
func activityOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: relwatch.DefaultActivityTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
}

// ReconcileArtistWorkflow reconciles one artist's releases on demand.
func ReconcileArtistWorkflow(ctx workflow.Context, params relwatch.ReconcileParams) error {
	ctx = activityOptions(ctx)
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting artist reconciliation", "ArtistMBID", params.ArtistMBID)

	var a *activities.Activities
	if err := workflow.ExecuteActivity(ctx, a.ReconcileArtistActivity, params).Get(ctx, nil); err != nil {
		logger.Error("Artist reconciliation failed.", "error", err)
		return err
	}
	return nil
}

// ReleaseSweepWorkflow runs one step of the release sweep; scheduled on a
// cron, each run picks and reconciles the longest-unchecked artist.
func ReleaseSweepWorkflow(ctx workflow.Context) error {
	ctx = activityOptions(ctx)

	var a *activities.Activities
	return workflow.ExecuteActivity(ctx, a.ReleaseSweepActivity).Get(ctx, nil)
}

// CoverArtSweepWorkflow runs one step of the cover art sweep.
func CoverArtSweepWorkflow(ctx workflow.Context) error {
	ctx = activityOptions(ctx)

	var a *activities.Activities
	return workflow.ExecuteActivity(ctx, a.CoverArtSweepActivity).Get(ctx, nil)
}

// LastfmImportWorkflow follows a user's Last.fm top artists.
func LastfmImportWorkflow(ctx workflow.Context, params relwatch.LastfmImportParams) error {
	ctx = activityOptions(ctx)
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting Last.fm import", "Username", params.Username)

	var a *activities.Activities
	if err := workflow.ExecuteActivity(ctx, a.LastfmImportActivity, params).Get(ctx, nil); err != nil {
		logger.Error("Last.fm import failed.", "error", err)
		return err
	}
	return nil
}
