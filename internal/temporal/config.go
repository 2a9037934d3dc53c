package temporal

import "time"

// TaskQueueName is the Temporal task queue all relwatch jobs run on.
const TaskQueueName = "RELWATCH_SYNC"

// Workflow ID prefixes. Manual reconciliations get a fresh UUID suffix; the
// sweep workflows use fixed IDs so their cron schedules register once.
const (
	ReconcileWorkflowIDPrefix = "relwatch-reconcile-"
	ReleaseSweepWorkflowID    = "relwatch-release-sweep"
	CoverArtSweepWorkflowID   = "relwatch-cover-art-sweep"
	LastfmImportWorkflowID    = "relwatch-lastfm-import-"
)

// DefaultActivityTimeout bounds one activity run. Reconciling a prolific
// artist pages through thousands of release groups at two seconds per
// catalog request, so the ceiling is generous.
const DefaultActivityTimeout = 30 * time.Minute

// ReconcileParams is the input of the artist reconciliation workflow.
type ReconcileParams struct {
	ArtistMBID string
}

// LastfmImportParams is the input of the Last.fm library import workflow.
type LastfmImportParams struct {
	UserID   int64
	Username string
	Period   string
	Count    int
}
