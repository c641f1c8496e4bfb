package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasbiaat/api/internal/models"
)

var ErrEntryNotFound = errors.New("entry not found")

const entryColumns = `
	id, user_id, murabi_id, date, level_at_entry, categories,
	zikr_completed, zikr_violated, status, comments, audit, created_at, updated_at
`

// EntryFilter narrows entry listings. Zero values mean "no constraint".
type EntryFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

type EntryRepository struct {
	pool *pgxpool.Pool
}

func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

func scanEntry(row pgx.Row) (models.Entry, error) {
	var entry models.Entry
	if err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.MurabiID,
		&entry.Date,
		&entry.LevelAtEntry,
		&entry.Categories,
		&entry.ZikrCompleted,
		&entry.ZikrViolated,
		&entry.Status,
		&entry.Comments,
		&entry.Audit,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Entry{}, ErrEntryNotFound
		}
		return models.Entry{}, err
	}
	return entry, nil
}

func collectEntries(rows pgx.Rows) ([]models.Entry, error) {
	defer rows.Close()
	var entries []models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const upsertEntryQuery = `
	INSERT INTO entries (
		id, user_id, murabi_id, date, level_at_entry, categories,
		zikr_completed, zikr_violated, status, comments, audit, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11, NOW(), NOW()
	)
	ON CONFLICT (user_id, date)
	DO UPDATE SET
		level_at_entry = EXCLUDED.level_at_entry,
		categories = EXCLUDED.categories,
		zikr_completed = EXCLUDED.zikr_completed,
		zikr_violated = EXCLUDED.zikr_violated,
		status = EXCLUDED.status,
		comments = entries.comments || EXCLUDED.comments,
		audit = entries.audit || EXCLUDED.audit,
		updated_at = NOW()
	RETURNING id, (xmax = 0) AS inserted
`

// Upsert inserts the entry or, when a row for (user_id, date) already exists,
// replaces its practice fields. The unique constraint is what makes two
// concurrent submissions for the same day collapse into one row. A resubmission
// overwrites only categories, flags and status; the stored comments and
// embedded audit survive, with the new submission's comments and audit events
// appended. Returns the stored row id and whether a new row was created.
func (r *EntryRepository) Upsert(ctx context.Context, entry models.Entry) (string, bool, error) {
	return upsertEntry(ctx, r.pool, entry)
}

type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsertEntry(ctx context.Context, q execQuerier, entry models.Entry) (string, bool, error) {
	var id string
	var inserted bool
	err := q.QueryRow(ctx, upsertEntryQuery,
		entry.ID,
		entry.UserID,
		entry.MurabiID,
		entry.Date,
		entry.LevelAtEntry,
		entry.Categories,
		entry.ZikrCompleted,
		entry.ZikrViolated,
		entry.Status,
		entry.Comments,
		entry.Audit,
	).Scan(&id, &inserted)
	if err != nil {
		return "", false, err
	}
	return id, inserted, nil
}

// UpsertWithCycleRestart saves the entry and resets the owner's
// level_start_date in a single transaction, so a persisted violation entry is
// never visible without its restart (and vice versa).
func (r *EntryRepository) UpsertWithCycleRestart(ctx context.Context, entry models.Entry, startDate time.Time) (string, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback(ctx)

	id, inserted, err := upsertEntry(ctx, tx, entry)
	if err != nil {
		return "", false, err
	}

	const restart = `UPDATE users SET level_start_date = $2, updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, restart, entry.UserID, startDate); err != nil {
		return "", false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", false, err
	}
	return id, inserted, nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (models.Entry, error) {
	const query = `SELECT ` + entryColumns + ` FROM entries WHERE id = $1`
	return scanEntry(r.pool.QueryRow(ctx, query, id))
}

func (r *EntryRepository) FindByUserAndDate(ctx context.Context, userID string, date time.Time) (models.Entry, error) {
	const query = `SELECT ` + entryColumns + ` FROM entries WHERE user_id = $1 AND date = $2`
	return scanEntry(r.pool.QueryRow(ctx, query, userID, date))
}

func appendFilter(query string, args []any, filter EntryFilter) (string, []any) {
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += ` AND date >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += ` AND date <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY date DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	return query, args
}

func (r *EntryRepository) ListByUser(ctx context.Context, userID string, filter EntryFilter) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id = $1`
	query, args := appendFilter(query, []any{userID}, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (r *EntryRepository) ListByMurabi(ctx context.Context, murabiID string, filter EntryFilter) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE murabi_id = $1`
	query, args := appendFilter(query, []any{murabiID}, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// ListByHierarchy returns entries of every user whose upward chain contains
// ancestorID.
func (r *EntryRepository) ListByHierarchy(ctx context.Context, ancestorID string, filter EntryFilter) ([]models.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE user_id IN (
			SELECT id FROM users
			WHERE murabi_id = $1 OR masool_id = $1 OR sheikh_id = $1
		)`
	query, args := appendFilter(query, []any{ancestorID}, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (r *EntryRepository) ListAll(ctx context.Context, filter EntryFilter) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE TRUE`
	query, args := appendFilter(query, nil, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// Save rewrites the mutable fields of an existing entry (comments, audit,
// status, categories).
func (r *EntryRepository) Save(ctx context.Context, entry models.Entry) error {
	const query = `
		UPDATE entries SET
			categories = $2, zikr_completed = $3, zikr_violated = $4,
			status = $5, comments = $6, audit = $7, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Categories,
		entry.ZikrCompleted,
		entry.ZikrViolated,
		entry.Status,
		entry.Comments,
		entry.Audit,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM entries WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM entries`
	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
