package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/relwatch/relwatch/internal/models"
)

type NotificationRepository interface {
	// Create records that a (user, release group) pairing has been queued
	// for delivery. It reports false when the pairing was already recorded;
	// the unique constraint absorbs concurrent duplicate attempts, so a
	// duplicate is a silent no-op rather than an error.
	Create(ctx context.Context, userID, releaseGroupID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	DeleteByUser(ctx context.Context, userID int64) error
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, userID, releaseGroupID int64) (bool, error) {
	const query = `
		INSERT INTO notifications (user_id, release_group_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, release_group_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, userID, releaseGroupID)
	if err != nil {
		// Belt and braces: treat a raced unique violation the same as the
		// ON CONFLICT path.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return false, nil
		}
		return false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return inserted > 0, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	const query = `
		SELECT id, user_id, release_group_id, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ReleaseGroupID, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	return err
}
