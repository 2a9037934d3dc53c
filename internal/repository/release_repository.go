package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/relwatch/relwatch/internal/models"
)

// PageChanges is one catalog page's worth of writes. ApplyPage commits the
// whole set atomically: a failure anywhere leaves none of it applied, so a
// page can be safely retried.
type PageChanges struct {
	Creates []models.ReleaseGroup
	Updates []models.ReleaseGroup
	// SoftDeletes holds IDs of rows the catalog page showed as no longer
	// qualifying (lost their date or type).
	SoftDeletes []int64
}

// Empty reports whether the page carries no writes at all.
func (p *PageChanges) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 && len(p.SoftDeletes) == 0
}

type ReleaseGroupRepository interface {
	// MapByArtist returns every stored release group of the artist, soft-
	// deleted rows included, keyed by MBID. The reconciler uses it as the
	// "not yet seen this cycle" index.
	MapByArtist(ctx context.Context, artistID int64) (map[string]models.ReleaseGroup, error)
	// ApplyPage applies one page of creates/updates/soft-deletes as a single
	// transaction and returns the created rows with their IDs assigned.
	ApplyPage(ctx context.Context, changes PageChanges) ([]models.ReleaseGroup, error)
	// SoftDeleteByID marks the given rows deleted, atomically.
	SoftDeleteByID(ctx context.Context, ids []int64) error
	ListByArtist(ctx context.Context, artistID int64, limit, offset int) ([]models.ReleaseGroup, error)
	// ListByUser lists non-deleted releases of the artists the user follows,
	// restricted to the user's enabled types, starred releases first and
	// newest-dated next.
	ListByUser(ctx context.Context, userID int64, types []string, limit, offset int) ([]models.ReleaseGroup, error)
	// NextCoverArtCandidate picks one release group with missing or
	// placeholder cover art whose own cooldown has lapsed.
	NextCoverArtCandidate(ctx context.Context, placeholderURL string, checkedBefore time.Time) (models.ReleaseGroup, error)
	SetCoverArt(ctx context.Context, id int64, coverURL string, checkedAt time.Time) error
	SetStar(ctx context.Context, userID, releaseGroupID int64, starred bool) error
}

type releaseGroupRepository struct {
	db *sql.DB
}

func NewReleaseGroupRepository(db *sql.DB) ReleaseGroupRepository {
	return &releaseGroupRepository{db: db}
}

const releaseGroupColumns = `id, artist_id, mbid, name, type, date, is_deleted, cover_art_url, last_cover_art_check`

func (r *releaseGroupRepository) MapByArtist(ctx context.Context, artistID int64) (map[string]models.ReleaseGroup, error) {
	query := `SELECT ` + releaseGroupColumns + ` FROM release_groups WHERE artist_id = $1`
	rows, err := r.db.QueryContext(ctx, query, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make(map[string]models.ReleaseGroup)
	for rows.Next() {
		rg, err := scanReleaseGroup(rows)
		if err != nil {
			return nil, err
		}
		groups[rg.MBID] = rg
	}
	return groups, rows.Err()
}

func (r *releaseGroupRepository) ApplyPage(ctx context.Context, changes PageChanges) ([]models.ReleaseGroup, error) {
	if changes.Empty() {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := make([]models.ReleaseGroup, 0, len(changes.Creates))
	for _, rg := range changes.Creates {
		const query = `
			INSERT INTO release_groups (artist_id, mbid, name, type, date, is_deleted, cover_art_url)
			VALUES ($1, $2, $3, $4, $5, FALSE, '')
			RETURNING id`
		if err := tx.QueryRowContext(ctx, query, rg.ArtistID, rg.MBID, rg.Name, rg.Type, rg.Date).Scan(&rg.ID); err != nil {
			return nil, fmt.Errorf("create release group %s: %w", rg.MBID, err)
		}
		created = append(created, rg)
	}

	for _, rg := range changes.Updates {
		const query = `
			UPDATE release_groups
			SET name = $2, type = $3, date = $4, is_deleted = $5
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, rg.ID, rg.Name, rg.Type, rg.Date, rg.IsDeleted); err != nil {
			return nil, fmt.Errorf("update release group %s: %w", rg.MBID, err)
		}
	}

	if err := softDelete(ctx, tx, changes.SoftDeletes); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit page: %w", err)
	}
	return created, nil
}

func (r *releaseGroupRepository) SoftDeleteByID(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := softDelete(ctx, tx, ids); err != nil {
		return err
	}
	return tx.Commit()
}

func softDelete(ctx context.Context, tx *sql.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE release_groups SET is_deleted = TRUE WHERE id = ANY($1)`
	if _, err := tx.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("soft-delete release groups: %w", err)
	}
	return nil
}

func (r *releaseGroupRepository) ListByArtist(ctx context.Context, artistID int64, limit, offset int) ([]models.ReleaseGroup, error) {
	query := `
		SELECT ` + releaseGroupColumns + `
		FROM release_groups
		WHERE artist_id = $1 AND NOT is_deleted
		ORDER BY date DESC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, artistID, limit, offset)
}

func (r *releaseGroupRepository) ListByUser(ctx context.Context, userID int64, types []string, limit, offset int) ([]models.ReleaseGroup, error) {
	// Ordering is starred descending, then date descending.
	query := `
		SELECT ` + prefixedReleaseGroupColumns("rg") + `
		FROM release_groups rg
		JOIN user_artists ua ON ua.artist_id = rg.artist_id AND ua.user_id = $1
		LEFT JOIN stars s ON s.release_group_id = rg.id AND s.user_id = $1
		WHERE NOT rg.is_deleted AND rg.type = ANY($2)
		ORDER BY (s.user_id IS NOT NULL) DESC, rg.date DESC
		LIMIT $3 OFFSET $4`
	return r.list(ctx, query, userID, pq.Array(types), limit, offset)
}

func (r *releaseGroupRepository) NextCoverArtCandidate(ctx context.Context, placeholderURL string, checkedBefore time.Time) (models.ReleaseGroup, error) {
	query := `
		SELECT ` + releaseGroupColumns + `
		FROM release_groups
		WHERE (cover_art_url = '' OR cover_art_url = $1)
		  AND (last_cover_art_check IS NULL OR last_cover_art_check < $2)
		LIMIT 1`
	return scanReleaseGroup(r.db.QueryRowContext(ctx, query, placeholderURL, checkedBefore))
}

func (r *releaseGroupRepository) SetCoverArt(ctx context.Context, id int64, coverURL string, checkedAt time.Time) error {
	const query = `
		UPDATE release_groups
		SET cover_art_url = $2, last_cover_art_check = $3
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, coverURL, checkedAt)
	return err
}

func (r *releaseGroupRepository) SetStar(ctx context.Context, userID, releaseGroupID int64, starred bool) error {
	if starred {
		const query = `
			INSERT INTO stars (user_id, release_group_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, release_group_id) DO NOTHING`
		_, err := r.db.ExecContext(ctx, query, userID, releaseGroupID)
		return err
	}
	const query = `DELETE FROM stars WHERE user_id = $1 AND release_group_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, releaseGroupID)
	return err
}

func (r *releaseGroupRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.ReleaseGroup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.ReleaseGroup
	for rows.Next() {
		rg, err := scanReleaseGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, rg)
	}
	return groups, rows.Err()
}

func prefixedReleaseGroupColumns(alias string) string {
	return alias + ".id, " + alias + ".artist_id, " + alias + ".mbid, " + alias + ".name, " +
		alias + ".type, " + alias + ".date, " + alias + ".is_deleted, " + alias + ".cover_art_url, " +
		alias + ".last_cover_art_check"
}

func scanReleaseGroup(scanner interface {
	Scan(dest ...interface{}) error
}) (models.ReleaseGroup, error) {
	var (
		rg        models.ReleaseGroup
		coverURL  sql.NullString
		lastCheck sql.NullTime
	)
	if err := scanner.Scan(
		&rg.ID,
		&rg.ArtistID,
		&rg.MBID,
		&rg.Name,
		&rg.Type,
		&rg.Date,
		&rg.IsDeleted,
		&coverURL,
		&lastCheck,
	); err != nil {
		return models.ReleaseGroup{}, translateNoRows(err)
	}
	if coverURL.Valid {
		rg.CoverArtURL = coverURL.String
	}
	if lastCheck.Valid {
		t := lastCheck.Time
		rg.LastCoverArtCheck = &t
	}
	return rg, nil
}
