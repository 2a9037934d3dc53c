package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/models"
	"github.com/relwatch/relwatch/internal/musicbrainz"
)

const testMBID = "5b11f4ce-a62d-471e-81fc-a69a8278c7da"

type reconcilerFixture struct {
	artists  *fakeArtistRepo
	releases *fakeReleaseRepo
	catalog  *fakeCatalog
	notifier *fakeNotifier
	rec      *Reconciler
	now      time.Time
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()
	f := &reconcilerFixture{
		artists:  newFakeArtistRepo(),
		releases: newFakeReleaseRepo(),
		catalog:  newFakeCatalog(),
		notifier: &fakeNotifier{},
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	store := NewStore(f.artists, f.releases, f.catalog, zerolog.Nop())
	f.rec = NewReconciler(store, f.artists, f.releases, f.catalog, f.notifier, 2, 7*time.Hour, zerolog.Nop())
	f.rec.now = func() time.Time { return f.now }
	return f
}

func (f *reconcilerFixture) seedArtist(mbid, name string) models.Artist {
	f.catalog.artists[mbid] = musicbrainz.Artist{ID: mbid, Name: name, SortName: name}
	return f.artists.add(models.Artist{MBID: mbid, Name: name, SortName: name})
}

func TestReconcileArtistCooldown(t *testing.T) {
	f := newReconcilerFixture(t)
	artist := f.seedArtist(testMBID, "Nirvana")
	checked := f.now.Add(-3 * time.Hour)
	f.artists.SetLastReleaseCheck(context.Background(), artist.ID, checked)

	_, err := f.rec.ReconcileArtist(context.Background(), testMBID)
	if !IsCooldown(err) {
		t.Fatalf("expected cooldown error, got %v", err)
	}
	var cd *CooldownError
	if !errors.As(err, &cd) {
		t.Fatalf("expected *CooldownError, got %T", err)
	}
	if want := 4 * time.Hour; cd.Remaining != want {
		t.Errorf("remaining = %v, want %v", cd.Remaining, want)
	}
	if f.catalog.artistCalls != 0 {
		t.Errorf("catalog queried %d times during cooldown", f.catalog.artistCalls)
	}
}

func TestReconcileArtistCreatesAndNotifies(t *testing.T) {
	f := newReconcilerFixture(t)
	artist := f.seedArtist(testMBID, "Nirvana")
	f.catalog.releaseGroups[testMBID] = []musicbrainz.ReleaseGroup{
		{ID: "rg-1", Title: "Bleach", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1989-06-15"},
		{ID: "rg-2", Title: "Nevermind", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1991-09-24"},
		{ID: "rg-3", Title: "In Utero", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1993-09"},
	}

	result, err := f.rec.ReconcileArtist(context.Background(), testMBID)
	if err != nil {
		t.Fatalf("ReconcileArtist: %v", err)
	}
	if result.Created != 3 {
		t.Errorf("created = %d, want 3", result.Created)
	}
	if len(f.notifier.created) != 3 {
		t.Errorf("notifier saw %d releases, want 3", len(f.notifier.created))
	}
	if rg, ok := f.releases.byMBID("rg-3"); !ok || rg.Date != 19930900 {
		t.Errorf("partial date stored as %d, want 19930900", rg.Date)
	}
	if _, stamped := f.artists.lastStamp[artist.ID]; !stamped {
		t.Error("last release check not stamped after full cycle")
	}
}

func TestReconcileArtistSoftDeletesUnlisted(t *testing.T) {
	f := newReconcilerFixture(t)
	artist := f.seedArtist(testMBID, "Nirvana")
	kept := f.releases.add(models.ReleaseGroup{ArtistID: artist.ID, MBID: "rg-1", Name: "Bleach", Type: models.TypeAlbum, Date: 19890615})
	gone := f.releases.add(models.ReleaseGroup{ArtistID: artist.ID, MBID: "rg-bogus", Name: "Bootleg", Type: models.TypeAlbum, Date: 19900101})
	f.catalog.releaseGroups[testMBID] = []musicbrainz.ReleaseGroup{
		{ID: "rg-1", Title: "Bleach", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1989-06-15"},
	}

	result, err := f.rec.ReconcileArtist(context.Background(), testMBID)
	if err != nil {
		t.Fatalf("ReconcileArtist: %v", err)
	}
	if result.SoftDeleted != 1 {
		t.Errorf("soft-deleted = %d, want 1", result.SoftDeleted)
	}
	if rg := f.releases.rows[gone.ID]; !rg.IsDeleted {
		t.Error("unlisted release not soft-deleted")
	}
	if rg := f.releases.rows[kept.ID]; rg.IsDeleted {
		t.Error("listed release was soft-deleted")
	}
	if len(f.notifier.created) != 0 {
		t.Errorf("notifier saw %d releases, want 0", len(f.notifier.created))
	}

	// A second cycle, past the cooldown, finds the row already deleted and
	// does nothing.
	f.now = f.now.Add(8 * time.Hour)
	result, err = f.rec.ReconcileArtist(context.Background(), testMBID)
	if err != nil {
		t.Fatalf("second ReconcileArtist: %v", err)
	}
	if result.SoftDeleted != 0 {
		t.Errorf("second cycle soft-deleted = %d, want 0", result.SoftDeleted)
	}
}

func TestReconcileArtistSkipsUndatedAndUntyped(t *testing.T) {
	f := newReconcilerFixture(t)
	artist := f.seedArtist(testMBID, "Nirvana")
	dated := f.releases.add(models.ReleaseGroup{ArtistID: artist.ID, MBID: "rg-1", Name: "Bleach", Type: models.TypeAlbum, Date: 19890615})
	f.catalog.releaseGroups[testMBID] = []musicbrainz.ReleaseGroup{
		// Existing row lost its date upstream: soft-delete, don't drop.
		{ID: "rg-1", Title: "Bleach", PrimaryType: models.TypeAlbum, FirstReleaseDate: ""},
		{ID: "rg-2", Title: "Untyped", PrimaryType: "", FirstReleaseDate: "2001-01-01"},
		{ID: "rg-3", Title: "Undated", PrimaryType: models.TypeAlbum, FirstReleaseDate: ""},
	}

	result, err := f.rec.ReconcileArtist(context.Background(), testMBID)
	if err != nil {
		t.Fatalf("ReconcileArtist: %v", err)
	}
	if result.Created != 0 {
		t.Errorf("created = %d, want 0", result.Created)
	}
	if result.SoftDeleted != 1 {
		t.Errorf("soft-deleted = %d, want 1", result.SoftDeleted)
	}
	if rg := f.releases.rows[dated.ID]; !rg.IsDeleted {
		t.Error("row without a date upstream not soft-deleted")
	}
	if len(f.releases.rows) != 1 {
		t.Errorf("%d rows stored, want 1", len(f.releases.rows))
	}
}

func TestReconcileArtistUndeletesReappearedRelease(t *testing.T) {
	f := newReconcilerFixture(t)
	artist := f.seedArtist(testMBID, "Nirvana")
	old := f.releases.add(models.ReleaseGroup{
		ArtistID: artist.ID, MBID: "rg-1", Name: "Blaech", Type: models.TypeEP, Date: 19890101, IsDeleted: true,
	})
	f.catalog.releaseGroups[testMBID] = []musicbrainz.ReleaseGroup{
		{ID: "rg-1", Title: "Bleach", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1989-06-15"},
	}

	result, err := f.rec.ReconcileArtist(context.Background(), testMBID)
	if err != nil {
		t.Fatalf("ReconcileArtist: %v", err)
	}
	if result.Created != 0 || result.Updated != 1 {
		t.Errorf("created/updated = %d/%d, want 0/1", result.Created, result.Updated)
	}
	rg := f.releases.rows[old.ID]
	if rg.IsDeleted {
		t.Error("reappeared release still marked deleted")
	}
	if rg.Name != "Bleach" || rg.Type != models.TypeAlbum || rg.Date != 19890615 {
		t.Errorf("refreshed row = %+v", rg)
	}
	// Re-activation keeps the stored identity, so the notification ledger
	// still applies and no second notification goes out.
	if len(f.notifier.created) != 0 {
		t.Errorf("notifier saw %d releases, want 0", len(f.notifier.created))
	}
}

func TestReconcileArtistEmptyTitleNeverClobbers(t *testing.T) {
	f := newReconcilerFixture(t)
	artist := f.seedArtist(testMBID, "Nirvana")
	stored := f.releases.add(models.ReleaseGroup{ArtistID: artist.ID, MBID: "rg-1", Name: "Bleach", Type: models.TypeAlbum, Date: 19890615})
	f.catalog.releaseGroups[testMBID] = []musicbrainz.ReleaseGroup{
		{ID: "rg-1", Title: "", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1989-06-15"},
		{ID: "rg-2", Title: "", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1991-09-24"},
	}

	result, err := f.rec.ReconcileArtist(context.Background(), testMBID)
	if err != nil {
		t.Fatalf("ReconcileArtist: %v", err)
	}
	if got := f.releases.rows[stored.ID].Name; got != "Bleach" {
		t.Errorf("stored title = %q, want it preserved", got)
	}
	if result.Created != 0 {
		t.Errorf("created = %d, want 0 for titleless entries", result.Created)
	}
}

func TestReconcileArtistPagesThroughCatalog(t *testing.T) {
	f := newReconcilerFixture(t)
	f.seedArtist(testMBID, "Nirvana")
	// Page size is 2; five entries force three fetches.
	f.catalog.releaseGroups[testMBID] = []musicbrainz.ReleaseGroup{
		{ID: "rg-1", Title: "A", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1989"},
		{ID: "rg-2", Title: "B", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1990"},
		{ID: "rg-3", Title: "C", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1991"},
		{ID: "rg-4", Title: "D", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1992"},
		{ID: "rg-5", Title: "E", PrimaryType: models.TypeAlbum, FirstReleaseDate: "1993"},
	}

	result, err := f.rec.ReconcileArtist(context.Background(), testMBID)
	if err != nil {
		t.Fatalf("ReconcileArtist: %v", err)
	}
	if result.Created != 5 {
		t.Errorf("created = %d, want 5", result.Created)
	}
}

func TestReconcileArtistCatalogErrorLeavesStampAlone(t *testing.T) {
	f := newReconcilerFixture(t)
	artist := f.seedArtist(testMBID, "Nirvana")
	f.catalog.artistErr = errors.New("503 service unavailable")

	if _, err := f.rec.ReconcileArtist(context.Background(), testMBID); err == nil {
		t.Fatal("expected error from catalog failure")
	}
	if _, stamped := f.artists.lastStamp[artist.ID]; stamped {
		t.Error("last check stamped despite failed cycle")
	}
}

func TestReconcileArtistMerge(t *testing.T) {
	canonical := "9282c8b4-ca0b-4c6b-b7e3-4f7762dfc4d6"
	f := newReconcilerFixture(t)
	old := f.seedArtist(testMBID, "Old Name")
	target := f.seedArtist(canonical, "Canonical")
	// The stale MBID now redirects to the canonical record.
	f.catalog.artists[testMBID] = musicbrainz.Artist{ID: canonical, Name: "Canonical"}

	result, err := f.rec.ReconcileArtist(context.Background(), testMBID)
	if err != nil {
		t.Fatalf("ReconcileArtist: %v", err)
	}
	if !result.Merged || result.MergedInto != canonical {
		t.Errorf("result = %+v, want merge into %s", result, canonical)
	}
	if f.artists.repointedFrom != old.ID || f.artists.repointedTo != target.ID {
		t.Errorf("followers repointed %d -> %d, want %d -> %d",
			f.artists.repointedFrom, f.artists.repointedTo, old.ID, target.ID)
	}
	if f.artists.deletedArtistID != old.ID {
		t.Errorf("deleted artist %d, want %d", f.artists.deletedArtistID, old.ID)
	}
	if _, err := f.artists.GetByMBID(context.Background(), canonical); err != nil {
		t.Errorf("canonical artist missing after merge: %v", err)
	}
}

func TestReconcileArtistMergeTargetBlockedKeepsOld(t *testing.T) {
	blocked := "89ad4ac3-39f7-470e-963a-56509c546377" // Various Artists
	f := newReconcilerFixture(t)
	old := f.seedArtist(testMBID, "Old Name")
	f.catalog.artists[testMBID] = musicbrainz.Artist{ID: blocked, Name: "Various Artists"}

	result, err := f.rec.ReconcileArtist(context.Background(), testMBID)
	if err != nil {
		t.Fatalf("ReconcileArtist: %v", err)
	}
	if result.Merged {
		t.Error("merge reported despite unusable target")
	}
	if _, err := f.artists.GetByMBID(context.Background(), testMBID); err != nil {
		t.Error("old artist removed despite unusable merge target")
	}
	if f.artists.deletedArtistID == old.ID && old.ID != 0 {
		t.Error("old artist deleted despite unusable merge target")
	}
	// The aborted merge still counts as a check; otherwise this artist stays
	// the least recently checked one and monopolises the sweep.
	if _, stamped := f.artists.lastStamp[old.ID]; !stamped {
		t.Error("last release check not stamped after unusable merge target")
	}
	if _, err := f.rec.ReconcileArtist(context.Background(), testMBID); !IsCooldown(err) {
		t.Errorf("second cycle right after unusable merge: got %v, want cooldown", err)
	}
}

func TestReconcileArtistUpdatesChangedInfo(t *testing.T) {
	f := newReconcilerFixture(t)
	f.seedArtist(testMBID, "Nirvana")
	f.catalog.artists[testMBID] = musicbrainz.Artist{ID: testMBID, Name: "Nirvana (US)", SortName: "Nirvana"}

	if _, err := f.rec.ReconcileArtist(context.Background(), testMBID); err != nil {
		t.Fatalf("ReconcileArtist: %v", err)
	}
	artist, _ := f.artists.GetByMBID(context.Background(), testMBID)
	if artist.Name != "Nirvana (US)" {
		t.Errorf("artist name = %q, want refreshed", artist.Name)
	}
}
