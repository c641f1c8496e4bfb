package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasbiaat/api/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `
	id, user_id, token_id, device_name, ip_address, user_agent,
	is_active, last_activity, expires_at, created_at
`

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenID,
		&session.DeviceName,
		&session.IPAddress,
		&session.UserAgent,
		&session.IsActive,
		&session.LastActivity,
		&session.ExpiresAt,
		&session.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO sessions (
			id, user_id, token_id, device_name, ip_address, user_agent,
			is_active, last_activity, expires_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, NOW(), $8, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.TokenID,
		session.DeviceName,
		session.IPAddress,
		session.UserAgent,
		session.IsActive,
		session.ExpiresAt,
	)
	return err
}

func (r *SessionRepository) GetByTokenID(ctx context.Context, tokenID string) (models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE token_id = $1`
	return scanSession(r.pool.QueryRow(ctx, query, tokenID))
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY last_activity DESC`
	if activeOnly {
		query = `
			SELECT ` + sessionColumns + `
			FROM sessions
			WHERE user_id = $1 AND is_active AND expires_at > NOW()
			ORDER BY last_activity DESC
		`
	}

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) Touch(ctx context.Context, tokenID string, ip string, userAgent string) error {
	const query = `
		UPDATE sessions
		SET last_activity = NOW(),
		    ip_address = COALESCE(NULLIF($2, ''), ip_address),
		    user_agent = COALESCE(NULLIF($3, ''), user_agent)
		WHERE token_id = $1
	`
	_, err := r.pool.Exec(ctx, query, tokenID, ip, userAgent)
	return err
}

func (r *SessionRepository) Deactivate(ctx context.Context, tokenID string) error {
	const query = `UPDATE sessions SET is_active = FALSE WHERE token_id = $1`
	cmd, err := r.pool.Exec(ctx, query, tokenID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeactivateAllForUser revokes every session of a user, optionally keeping
// one token alive (the caller's own).
func (r *SessionRepository) DeactivateAllForUser(ctx context.Context, userID string, exceptTokenID string) (int, error) {
	const query = `
		UPDATE sessions SET is_active = FALSE
		WHERE user_id = $1 AND token_id != $2 AND is_active
	`
	cmd, err := r.pool.Exec(ctx, query, userID, exceptTokenID)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *SessionRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND is_active AND expires_at > NOW()`
	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeactivateOldest keeps the keepLatest most recently used sessions active.
func (r *SessionRepository) DeactivateOldest(ctx context.Context, userID string, keepLatest int) error {
	const query = `
		UPDATE sessions SET is_active = FALSE
		WHERE id IN (
			SELECT id FROM sessions
			WHERE user_id = $1 AND is_active
			ORDER BY last_activity DESC
			OFFSET $2
		)
	`
	_, err := r.pool.Exec(ctx, query, userID, keepLatest)
	return err
}

// DeleteExpired garbage-collects sessions past their expiry.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int, error) {
	const query = `DELETE FROM sessions WHERE expires_at < NOW()`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *SessionRepository) CountActive(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE is_active AND expires_at > NOW()`
	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
