package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/relwatch/relwatch/internal/models"
)

// ErrDuplicateArtist is returned by Create when another worker inserted the
// same MBID first; callers re-read instead of failing.
var ErrDuplicateArtist = fmt.Errorf("repository: artist already exists")

type ArtistRepository interface {
	GetByMBID(ctx context.Context, mbid string) (models.Artist, error)
	Create(ctx context.Context, artist models.Artist) (models.Artist, error)
	UpdateInfo(ctx context.Context, id int64, name, sortName, disambiguation string) error
	SetLastReleaseCheck(ctx context.Context, id int64, checkedAt time.Time) error
	// NextForReleaseCheck returns the artist with the oldest (or null)
	// last_release_check stamp; over many sweeps this round-robins across
	// the whole artist set.
	NextForReleaseCheck(ctx context.Context) (models.Artist, error)
	// RepointFollowers moves every follow edge from one artist to another,
	// dropping edges whose user already follows the target.
	RepointFollowers(ctx context.Context, fromID, toID int64) error
	// DeleteWithReleases removes the artist row together with its release
	// groups, their notifications and stars, as one unit.
	DeleteWithReleases(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]models.Artist, error)
}

type artistRepository struct {
	db *sql.DB
}

func NewArtistRepository(db *sql.DB) ArtistRepository {
	return &artistRepository{db: db}
}

const artistColumns = `id, mbid, name, sort_name, disambiguation, last_release_check`

func (r *artistRepository) GetByMBID(ctx context.Context, mbid string) (models.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE mbid = $1`
	return scanArtist(r.db.QueryRowContext(ctx, query, mbid))
}

func (r *artistRepository) Create(ctx context.Context, artist models.Artist) (models.Artist, error) {
	const query = `
		INSERT INTO artists (mbid, name, sort_name, disambiguation)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query, artist.MBID, artist.Name, artist.SortName, artist.Disambiguation).Scan(&artist.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return models.Artist{}, ErrDuplicateArtist
		}
		return models.Artist{}, err
	}
	return artist, nil
}

func (r *artistRepository) UpdateInfo(ctx context.Context, id int64, name, sortName, disambiguation string) error {
	const query = `
		UPDATE artists
		SET name = $2, sort_name = $3, disambiguation = $4
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, name, sortName, disambiguation)
	return err
}

func (r *artistRepository) SetLastReleaseCheck(ctx context.Context, id int64, checkedAt time.Time) error {
	const query = `UPDATE artists SET last_release_check = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, checkedAt)
	return err
}

func (r *artistRepository) NextForReleaseCheck(ctx context.Context) (models.Artist, error) {
	query := `
		SELECT ` + artistColumns + `
		FROM artists
		ORDER BY last_release_check ASC NULLS FIRST
		LIMIT 1`
	return scanArtist(r.db.QueryRowContext(ctx, query))
}

func (r *artistRepository) RepointFollowers(ctx context.Context, fromID, toID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Move edges whose user does not already follow the target, then drop
	// whatever is left on the old artist.
	_, err = tx.ExecContext(ctx, `
		UPDATE user_artists
		SET artist_id = $2
		WHERE artist_id = $1
		  AND user_id NOT IN (SELECT user_id FROM user_artists WHERE artist_id = $2)`,
		fromID, toID)
	if err != nil {
		return fmt.Errorf("repoint followers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_artists WHERE artist_id = $1`, fromID); err != nil {
		return fmt.Errorf("drop stale follows: %w", err)
	}

	return tx.Commit()
}

func (r *artistRepository) DeleteWithReleases(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`DELETE FROM notifications WHERE release_group_id IN (SELECT id FROM release_groups WHERE artist_id = $1)`,
		`DELETE FROM stars WHERE release_group_id IN (SELECT id FROM release_groups WHERE artist_id = $1)`,
		`DELETE FROM release_groups WHERE artist_id = $1`,
		`DELETE FROM user_artists WHERE artist_id = $1`,
		`DELETE FROM artists WHERE id = $1`,
	}
	for _, query := range steps {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("delete artist %d: %w", id, err)
		}
	}

	return tx.Commit()
}

func (r *artistRepository) ListByUser(ctx context.Context, userID int64) ([]models.Artist, error) {
	query := `
		SELECT ` + artistColumns + `
		FROM artists
		JOIN user_artists ON user_artists.artist_id = artists.id
		WHERE user_artists.user_id = $1
		ORDER BY sort_name
		LIMIT 4000`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}
	return artists, rows.Err()
}

func scanArtist(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Artist, error) {
	var (
		artist    models.Artist
		lastCheck sql.NullTime
	)
	if err := scanner.Scan(
		&artist.ID,
		&artist.MBID,
		&artist.Name,
		&artist.SortName,
		&artist.Disambiguation,
		&lastCheck,
	); err != nil {
		return models.Artist{}, translateNoRows(err)
	}
	if lastCheck.Valid {
		t := lastCheck.Time
		artist.LastReleaseCheck = &t
	}
	return artist, nil
}
