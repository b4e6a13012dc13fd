package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"waifu-catcher-bot/internal/model"
)

// UserRepository handles user record persistence.
type UserRepository struct {
	pool PgxPool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool PgxPool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*model.UserRecord, error) {
	const query = `
		SELECT user_id, last_roll_at, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`

	var user model.UserRecord
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&user.UserID,
		&user.LastRollAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// LastRollAt returns the user's last roll time, 0 if the user has no record.
func (r *UserRepository) LastRollAt(ctx context.Context, userID int64) (int64, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return user.LastRollAt, nil
}

// TouchLastRoll sets the user's last roll time, creating the record if needed.
func (r *UserRepository) TouchLastRoll(ctx context.Context, userID int64, at int64) error {
	const query = `
		INSERT INTO users (user_id, last_roll_at, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET last_roll_at = EXCLUDED.last_roll_at, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, userID, at); err != nil {
		return fmt.Errorf("failed to update last roll: %w", err)
	}
	return nil
}

// ScanTotals returns up to limit users, oldest first, each with the sum of
// their owned counts. Users beyond the limit are not considered at all.
func (r *UserRepository) ScanTotals(ctx context.Context, limit int) ([]model.UserTotal, error) {
	const query = `
		SELECT u.user_id, COALESCE(SUM(c.count), 0)::BIGINT AS total
		FROM (
			SELECT user_id, created_at FROM users
			ORDER BY created_at, user_id
			LIMIT $1
		) u
		LEFT JOIN collection_entries c ON c.user_id = u.user_id
		GROUP BY u.user_id, u.created_at
		ORDER BY u.created_at, u.user_id
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user totals: %w", err)
	}
	defer rows.Close()

	var totals []model.UserTotal
	for rows.Next() {
		var t model.UserTotal
		if err := rows.Scan(&t.UserID, &t.Total); err != nil {
			return nil, fmt.Errorf("failed to scan user total: %w", err)
		}
		totals = append(totals, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user totals: %w", err)
	}

	return totals, nil
}
