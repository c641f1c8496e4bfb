package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
)

var ErrLevelNotFound = errors.New("level not found")

type LevelRepository struct {
	pool *pgxpool.Pool
}

func NewLevelRepository(pool *pgxpool.Pool) *LevelRepository {
	return &LevelRepository{pool: pool}
}

// Seed inserts the static level catalog. Existing rows are left untouched so
// reseeding on startup is safe.
func (r *LevelRepository) Seed(ctx context.Context) (int, error) {
	const query = `
		INSERT INTO levels (level, name_urdu, description, required_fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (level) DO NOTHING
	`

	inserted := 0
	for _, seed := range domain.SeedLevels() {
		cmd, err := r.pool.Exec(ctx, query, seed.Level, seed.NameUrdu, seed.Description, seed.RequiredFields)
		if err != nil {
			return inserted, err
		}
		inserted += int(cmd.RowsAffected())
	}
	return inserted, nil
}

func scanLevel(row pgx.Row) (models.Level, error) {
	var level models.Level
	if err := row.Scan(
		&level.Level,
		&level.NameUrdu,
		&level.Description,
		&level.RequiredFields,
		&level.CreatedAt,
		&level.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Level{}, ErrLevelNotFound
		}
		return models.Level{}, err
	}
	return level, nil
}

func (r *LevelRepository) FindByLevel(ctx context.Context, level int) (models.Level, error) {
	const query = `
		SELECT level, name_urdu, description, required_fields, created_at, updated_at
		FROM levels WHERE level = $1
	`
	return scanLevel(r.pool.QueryRow(ctx, query, level))
}

func (r *LevelRepository) All(ctx context.Context) ([]models.Level, error) {
	const query = `
		SELECT level, name_urdu, description, required_fields, created_at, updated_at
		FROM levels ORDER BY level
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []models.Level
	for rows.Next() {
		level, err := scanLevel(rows)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}
