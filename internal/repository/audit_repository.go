package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tasbiaat/api/internal/models"
)

const auditColumns = `
	id, actor_id, action, resource_type, resource_id,
	old_values, new_values, metadata, ip_address, user_agent, timestamp
`

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append writes one audit row. The trail is append-only; there is no update
// path.
func (r *AuditRepository) Append(ctx context.Context, record models.AuditRecord) error {
	const query = `
		INSERT INTO audit_log (
			id, actor_id, action, resource_type, resource_id,
			old_values, new_values, metadata, ip_address, user_agent, timestamp
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.ActorID,
		record.Action,
		record.ResourceType,
		record.ResourceID,
		record.OldValues,
		record.NewValues,
		record.Metadata,
		record.IPAddress,
		record.UserAgent,
	)
	return err
}

func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log WHERE TRUE`
	var args []any

	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		query += ` AND actor_id = $` + strconv.Itoa(len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += ` AND action = $` + strconv.Itoa(len(args))
	}
	if filter.ResourceType != "" {
		args = append(args, filter.ResourceType)
		query += ` AND resource_type = $` + strconv.Itoa(len(args))
	}
	if filter.ResourceID != "" {
		args = append(args, filter.ResourceID)
		query += ` AND resource_id = $` + strconv.Itoa(len(args))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += ` AND timestamp >= $` + strconv.Itoa(len(args))
	}
	if filter.Until != nil {
		args = append(args, *filter.Until)
		query += ` AND timestamp <= $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY timestamp DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var record models.AuditRecord
		if err := rows.Scan(
			&record.ID,
			&record.ActorID,
			&record.Action,
			&record.ResourceType,
			&record.ResourceID,
			&record.OldValues,
			&record.NewValues,
			&record.Metadata,
			&record.IPAddress,
			&record.UserAgent,
			&record.Timestamp,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ActorSummary aggregates one user's trailing activity by action.
func (r *AuditRepository) ActorSummary(ctx context.Context, actorID string, days int) (models.ActivitySummary, error) {
	const query = `
		SELECT action, COUNT(*)
		FROM audit_log
		WHERE actor_id = $1 AND timestamp >= NOW() - make_interval(days => $2)
		GROUP BY action
	`
	rows, err := r.pool.Query(ctx, query, actorID, days)
	if err != nil {
		return models.ActivitySummary{}, err
	}
	defer rows.Close()

	summary := models.ActivitySummary{
		ActionBreakdown: make(map[string]int),
		PeriodDays:      days,
	}
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return models.ActivitySummary{}, err
		}
		summary.ActionBreakdown[action] = count
		summary.TotalActivities += count
	}
	return summary, rows.Err()
}

// SystemSummary aggregates the whole trail by action and resource type.
func (r *AuditRepository) SystemSummary(ctx context.Context, days int) (models.ActivitySummary, error) {
	const query = `
		SELECT action, resource_type, COUNT(*)
		FROM audit_log
		WHERE timestamp >= NOW() - make_interval(days => $1)
		GROUP BY action, resource_type
	`
	rows, err := r.pool.Query(ctx, query, days)
	if err != nil {
		return models.ActivitySummary{}, err
	}
	defer rows.Close()

	summary := models.ActivitySummary{
		ActionBreakdown:   make(map[string]int),
		ResourceBreakdown: make(map[string]int),
		PeriodDays:        days,
	}
	for rows.Next() {
		var action, resource string
		var count int
		if err := rows.Scan(&action, &resource, &count); err != nil {
			return models.ActivitySummary{}, err
		}
		summary.ActionBreakdown[action] += count
		summary.ResourceBreakdown[resource] += count
		summary.TotalActivities += count
	}
	return summary, rows.Err()
}

// DeleteOlderThan trims the trail past the retention window.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `DELETE FROM audit_log WHERE timestamp < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *AuditRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM audit_log`
	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
