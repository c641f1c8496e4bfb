package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `
	id, name, phone, email, password_hash, role, region,
	murabi_id, masool_id, sheikh_id, level, level_start_date, cycle_days,
	settings, is_active, created_by, created_at, updated_at
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Phone,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Region,
		&user.MurabiID,
		&user.MasoolID,
		&user.SheikhID,
		&user.Level,
		&user.LevelStartDate,
		&user.CycleDays,
		&user.Settings,
		&user.IsActive,
		&user.CreatedBy,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func collectUsers(rows pgx.Rows) ([]models.User, error) {
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, name, phone, email, password_hash, role, region,
			murabi_id, masool_id, sheikh_id, level, level_start_date, cycle_days,
			settings, is_active, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Phone,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Region,
		user.MurabiID,
		user.MasoolID,
		user.SheikhID,
		user.Level,
		user.LevelStartDate,
		user.CycleDays,
		user.Settings,
		user.IsActive,
		user.CreatedBy,
	)
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	return scanUser(r.pool.QueryRow(ctx, query, phone))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) FindByRole(ctx context.Context, role domain.Role, region string) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND is_active ORDER BY name`
	args := []any{role}
	if region != "" {
		query = `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND region = $2 AND is_active ORDER BY name`
		args = append(args, region)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// FindChildren returns active users of childRole that report directly to
// parentID through the matching upward reference.
func (r *UserRepository) FindChildren(ctx context.Context, parentID string, childRole domain.Role) ([]models.User, error) {
	var column string
	switch childRole {
	case domain.RoleSaalik:
		column = "murabi_id"
	case domain.RoleMurabi:
		column = "masool_id"
	case domain.RoleMasool:
		column = "sheikh_id"
	default:
		return nil, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND ` + column + ` = $2 AND is_active ORDER BY name`
	rows, err := r.pool.Query(ctx, query, childRole, parentID)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// ListByHierarchy returns users whose upward chain contains ancestorID,
// optionally filtered by role.
func (r *UserRepository) ListByHierarchy(ctx context.Context, ancestorID string, roleFilter domain.Role, limit, offset int) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE (murabi_id = $1 OR masool_id = $1 OR sheikh_id = $1)
	`
	args := []any{ancestorID}
	if roleFilter != "" {
		query += ` AND role = $2`
		args = append(args, roleFilter)
	}
	query += ` ORDER BY name`
	if limit > 0 {
		args = append(args, limit, offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *UserRepository) ListAll(ctx context.Context, roleFilter domain.Role, limit, offset int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if roleFilter != "" {
		query += ` WHERE role = $1`
		args = append(args, roleFilter)
	}
	query += ` ORDER BY name`
	if limit > 0 {
		args = append(args, limit, offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *UserRepository) Update(ctx context.Context, user models.User) error {
	const query = `
		UPDATE users SET
			name = $2, phone = $3, email = $4, region = $5,
			murabi_id = $6, masool_id = $7, sheikh_id = $8,
			level = $9, level_start_date = $10, cycle_days = $11,
			settings = $12, is_active = $13, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Phone,
		user.Email,
		user.Region,
		user.MurabiID,
		user.MasoolID,
		user.SheikhID,
		user.Level,
		user.LevelStartDate,
		user.CycleDays,
		user.Settings,
		user.IsActive,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash []byte) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetLevel moves a Saalik to a new level and restarts the cycle clock.
func (r *UserRepository) SetLevel(ctx context.Context, id string, level int, startDate time.Time) error {
	const query = `
		UPDATE users SET level = $2, level_start_date = $3, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, level, startDate)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) RestartCycle(ctx context.Context, id string, startDate time.Time) error {
	const query = `UPDATE users SET level_start_date = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, startDate)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[string]int, error) {
	const query = `SELECT role, COUNT(*) FROM users GROUP BY role`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var role string
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		counts[role] = count
	}
	return counts, rows.Err()
}
