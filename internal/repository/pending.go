package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"waifu-catcher-bot/internal/model"
)

// PendingRepository keeps pending rolls in the pending_rolls table.
type PendingRepository struct {
	pool PgxPool
}

// NewPendingRepository creates a new PendingRepository instance.
func NewPendingRepository(pool PgxPool) *PendingRepository {
	return &PendingRepository{pool: pool}
}

// Get returns the user's pending roll, or ErrNoPending.
func (r *PendingRepository) Get(ctx context.Context, userID int64) (*model.PendingRoll, error) {
	const query = `
		SELECT user_id, collectible_id, name, image, rarity, rolled_at
		FROM pending_rolls
		WHERE user_id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, userID))
}

// Put overwrites the user's pending roll.
func (r *PendingRepository) Put(ctx context.Context, p *model.PendingRoll) error {
	const query = `
		INSERT INTO pending_rolls (user_id, collectible_id, name, image, rarity, rolled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id)
		DO UPDATE SET collectible_id = EXCLUDED.collectible_id, name = EXCLUDED.name,
			image = EXCLUDED.image, rarity = EXCLUDED.rarity, rolled_at = EXCLUDED.rolled_at
	`

	_, err := r.pool.Exec(ctx, query, p.UserID, p.CollectibleID, p.Name, p.Image, p.Rarity, p.RolledAt)
	if err != nil {
		return fmt.Errorf("failed to save pending roll: %w", err)
	}
	return nil
}

// Take deletes and returns the user's pending roll in one statement.
func (r *PendingRepository) Take(ctx context.Context, userID int64) (*model.PendingRoll, error) {
	const query = `
		DELETE FROM pending_rolls
		WHERE user_id = $1
		RETURNING user_id, collectible_id, name, image, rarity, rolled_at
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, userID))
}

func (r *PendingRepository) scanOne(row pgx.Row) (*model.PendingRoll, error) {
	var p model.PendingRoll
	err := row.Scan(&p.UserID, &p.CollectibleID, &p.Name, &p.Image, &p.Rarity, &p.RolledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoPending
		}
		return nil, fmt.Errorf("failed to read pending roll: %w", err)
	}
	return &p, nil
}
