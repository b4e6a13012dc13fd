package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"waifu-catcher-bot/internal/model"
)

// CollectionRepository handles the per-user collection ledger.
type CollectionRepository struct {
	pool PgxPool
}

// NewCollectionRepository creates a new CollectionRepository instance.
func NewCollectionRepository(pool PgxPool) *CollectionRepository {
	return &CollectionRepository{pool: pool}
}

// AddEntry records one claim of entry.CollectibleID for the user.
// A new entry starts at count 1; an existing one is incremented in place and
// takes the latest name, image and rarity. Returns the resulting count.
func (r *CollectionRepository) AddEntry(ctx context.Context, userID int64, entry model.OwnedEntry) (count int64, err error) {
	const ensureUser = `
		INSERT INTO users (user_id, last_roll_at, created_at, updated_at)
		VALUES ($1, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	const upsert = `
		INSERT INTO collection_entries (user_id, collectible_id, name, image, rarity, count, claimed_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (user_id, collectible_id)
		DO UPDATE SET count = collection_entries.count + 1, name = EXCLUDED.name,
			image = EXCLUDED.image, rarity = EXCLUDED.rarity, claimed_at = EXCLUDED.claimed_at
		RETURNING count
	`

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin claim: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = fmt.Errorf("failed to commit claim: %w", e)
			count = 0
		}
	}()

	if _, err = tx.Exec(ctx, ensureUser, userID); err != nil {
		return 0, fmt.Errorf("failed to ensure user: %w", err)
	}

	err = tx.QueryRow(ctx, upsert,
		userID, entry.CollectibleID, entry.Name, entry.Image, entry.Rarity, entry.ClaimedAt,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to add collection entry: %w", err)
	}

	return count, nil
}

// ListByUser returns every entry of the user's collection ordered by collectible id.
func (r *CollectionRepository) ListByUser(ctx context.Context, userID int64) ([]model.OwnedEntry, error) {
	const query = `
		SELECT collectible_id, name, image, rarity, count, claimed_at
		FROM collection_entries
		WHERE user_id = $1
		ORDER BY collectible_id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}
	defer rows.Close()

	var entries []model.OwnedEntry
	for rows.Next() {
		var e model.OwnedEntry
		if err := rows.Scan(&e.CollectibleID, &e.Name, &e.Image, &e.Rarity, &e.Count, &e.ClaimedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection: %w", err)
	}

	return entries, nil
}

var (
	_ CatalogStore = (*CatalogRepository)(nil)
	_ UserStore    = (*UserRepository)(nil)
	_ PendingStore = (*PendingRepository)(nil)
	_ LedgerStore  = (*CollectionRepository)(nil)
)
