package reconcile

import (
	"context"
	"time"

	"github.com/relwatch/relwatch/internal/models"
	"github.com/relwatch/relwatch/internal/musicbrainz"
	"github.com/relwatch/relwatch/internal/repository"
)

type fakeArtistRepo struct {
	byMBID map[string]models.Artist
	nextID int64

	createErr       error
	createErrOnce   bool
	missFirstLookup bool
	lastStamp       map[int64]time.Time
	repointedFrom   int64
	repointedTo     int64
	deletedArtistID int64
}

func newFakeArtistRepo() *fakeArtistRepo {
	return &fakeArtistRepo{
		byMBID:    make(map[string]models.Artist),
		nextID:    1,
		lastStamp: make(map[int64]time.Time),
	}
}

func (f *fakeArtistRepo) add(artist models.Artist) models.Artist {
	if artist.ID == 0 {
		artist.ID = f.nextID
		f.nextID++
	}
	f.byMBID[artist.MBID] = artist
	return artist
}

func (f *fakeArtistRepo) GetByMBID(ctx context.Context, mbid string) (models.Artist, error) {
	if f.missFirstLookup {
		f.missFirstLookup = false
		return models.Artist{}, repository.ErrNotFound
	}
	artist, ok := f.byMBID[mbid]
	if !ok {
		return models.Artist{}, repository.ErrNotFound
	}
	return artist, nil
}

func (f *fakeArtistRepo) Create(ctx context.Context, artist models.Artist) (models.Artist, error) {
	if f.createErr != nil {
		err := f.createErr
		if f.createErrOnce {
			f.createErr = nil
		}
		return models.Artist{}, err
	}
	if _, exists := f.byMBID[artist.MBID]; exists {
		return models.Artist{}, repository.ErrDuplicateArtist
	}
	return f.add(artist), nil
}

func (f *fakeArtistRepo) UpdateInfo(ctx context.Context, id int64, name, sortName, disambiguation string) error {
	for mbid, artist := range f.byMBID {
		if artist.ID == id {
			artist.Name, artist.SortName, artist.Disambiguation = name, sortName, disambiguation
			f.byMBID[mbid] = artist
		}
	}
	return nil
}

func (f *fakeArtistRepo) SetLastReleaseCheck(ctx context.Context, id int64, checkedAt time.Time) error {
	f.lastStamp[id] = checkedAt
	for mbid, artist := range f.byMBID {
		if artist.ID == id {
			t := checkedAt
			artist.LastReleaseCheck = &t
			f.byMBID[mbid] = artist
		}
	}
	return nil
}

func (f *fakeArtistRepo) NextForReleaseCheck(ctx context.Context) (models.Artist, error) {
	return models.Artist{}, repository.ErrNotFound
}

func (f *fakeArtistRepo) RepointFollowers(ctx context.Context, fromID, toID int64) error {
	f.repointedFrom, f.repointedTo = fromID, toID
	return nil
}

func (f *fakeArtistRepo) DeleteWithReleases(ctx context.Context, id int64) error {
	f.deletedArtistID = id
	for mbid, artist := range f.byMBID {
		if artist.ID == id {
			delete(f.byMBID, mbid)
		}
	}
	return nil
}

func (f *fakeArtistRepo) ListByUser(ctx context.Context, userID int64) ([]models.Artist, error) {
	return nil, nil
}

type fakeReleaseRepo struct {
	rows   map[int64]models.ReleaseGroup
	nextID int64

	applyErr error
}

func newFakeReleaseRepo() *fakeReleaseRepo {
	return &fakeReleaseRepo{rows: make(map[int64]models.ReleaseGroup), nextID: 1}
}

func (f *fakeReleaseRepo) add(rg models.ReleaseGroup) models.ReleaseGroup {
	if rg.ID == 0 {
		rg.ID = f.nextID
		f.nextID++
	}
	f.rows[rg.ID] = rg
	return rg
}

func (f *fakeReleaseRepo) byMBID(mbid string) (models.ReleaseGroup, bool) {
	for _, rg := range f.rows {
		if rg.MBID == mbid {
			return rg, true
		}
	}
	return models.ReleaseGroup{}, false
}

func (f *fakeReleaseRepo) MapByArtist(ctx context.Context, artistID int64) (map[string]models.ReleaseGroup, error) {
	out := make(map[string]models.ReleaseGroup)
	for _, rg := range f.rows {
		if rg.ArtistID == artistID {
			out[rg.MBID] = rg
		}
	}
	return out, nil
}

func (f *fakeReleaseRepo) ApplyPage(ctx context.Context, changes repository.PageChanges) ([]models.ReleaseGroup, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	created := make([]models.ReleaseGroup, 0, len(changes.Creates))
	for _, rg := range changes.Creates {
		created = append(created, f.add(rg))
	}
	for _, rg := range changes.Updates {
		f.rows[rg.ID] = rg
	}
	for _, id := range changes.SoftDeletes {
		rg := f.rows[id]
		rg.IsDeleted = true
		f.rows[id] = rg
	}
	return created, nil
}

func (f *fakeReleaseRepo) SoftDeleteByID(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		rg := f.rows[id]
		rg.IsDeleted = true
		f.rows[id] = rg
	}
	return nil
}

func (f *fakeReleaseRepo) ListByArtist(ctx context.Context, artistID int64, limit, offset int) ([]models.ReleaseGroup, error) {
	return nil, nil
}

func (f *fakeReleaseRepo) ListByUser(ctx context.Context, userID int64, types []string, limit, offset int) ([]models.ReleaseGroup, error) {
	return nil, nil
}

func (f *fakeReleaseRepo) NextCoverArtCandidate(ctx context.Context, placeholderURL string, checkedBefore time.Time) (models.ReleaseGroup, error) {
	return models.ReleaseGroup{}, repository.ErrNotFound
}

func (f *fakeReleaseRepo) SetCoverArt(ctx context.Context, id int64, coverURL string, checkedAt time.Time) error {
	return nil
}

func (f *fakeReleaseRepo) SetStar(ctx context.Context, userID, releaseGroupID int64, starred bool) error {
	return nil
}

type fakeCatalog struct {
	artists map[string]musicbrainz.Artist
	// releaseGroups is keyed by the MBID used in the listing request; paging
	// is applied over the slice like the real endpoint does.
	releaseGroups map[string][]musicbrainz.ReleaseGroup

	artistErr        error
	releaseGroupsErr error
	artistCalls      int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		artists:       make(map[string]musicbrainz.Artist),
		releaseGroups: make(map[string][]musicbrainz.ReleaseGroup),
	}
}

func (f *fakeCatalog) GetArtist(ctx context.Context, mbid string) (musicbrainz.Artist, error) {
	f.artistCalls++
	if f.artistErr != nil {
		return musicbrainz.Artist{}, f.artistErr
	}
	artist, ok := f.artists[mbid]
	if !ok {
		return musicbrainz.Artist{}, musicbrainz.ErrNotFound
	}
	return artist, nil
}

func (f *fakeCatalog) GetReleaseGroups(ctx context.Context, artistMBID string, limit, offset int) ([]musicbrainz.ReleaseGroup, error) {
	if f.releaseGroupsErr != nil {
		return nil, f.releaseGroupsErr
	}
	all := f.releaseGroups[artistMBID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

type fakeNotifier struct {
	created []models.ReleaseGroup
	err     error
}

func (f *fakeNotifier) ReleaseCreated(ctx context.Context, artist models.Artist, release models.ReleaseGroup) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, release)
	return 1, nil
}
