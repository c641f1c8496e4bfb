package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasbiaat/api/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

const notificationColumns = `
	id, user_id, title, message, type, priority,
	is_read, action_url, created_at, expires_at
`

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n models.Notification) error {
	const query = `
		INSERT INTO notifications (
			id, user_id, title, message, type, priority,
			is_read, action_url, created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, NOW(), $9
		)
	`
	_, err := r.pool.Exec(ctx, query,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.Priority,
		n.IsRead, n.ActionURL, n.ExpiresAt,
	)
	return err
}

// CreateBulk inserts a batch of notifications in one round trip. Used for
// broadcasts.
func (r *NotificationRepository) CreateBulk(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO notifications (
			id, user_id, title, message, type, priority,
			is_read, action_url, created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, NOW(), $9
		)
	`
	for _, n := range notifications {
		batch.Queue(query,
			n.ID, n.UserID, n.Title, n.Message, n.Type, n.Priority,
			n.IsRead, n.ActionURL, n.ExpiresAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range notifications {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND expires_at > NOW()
	`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Priority,
			&n.IsRead, &n.ActionURL, &n.CreatedAt, &n.ExpiresAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND NOT is_read AND expires_at > NOW()
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead flips the read flag, scoped to the owner so one user cannot mark
// another's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, userID string) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	const query = `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`
	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

// DeleteExpired garbage-collects notifications past their expiry.
func (r *NotificationRepository) DeleteExpired(ctx context.Context) (int, error) {
	const query = `DELETE FROM notifications WHERE expires_at < NOW()`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}
