package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"waifu-catcher-bot/internal/model"
)

// CatalogRepository handles collectible persistence.
type CatalogRepository struct {
	pool PgxPool
}

// NewCatalogRepository creates a new CatalogRepository instance.
func NewCatalogRepository(pool PgxPool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Count returns the number of collectibles in the catalog.
func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM collectibles`

	var n int64
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count collectibles: %w", err)
	}
	return n, nil
}

// InsertMany inserts the given collectibles in one transaction.
// Entries whose id already exists are skipped. Returns the number inserted.
func (r *CatalogRepository) InsertMany(ctx context.Context, items []model.Collectible) (inserted int64, err error) {
	const query = `
		INSERT INTO collectibles (id, name, image, tags)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin catalog insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = fmt.Errorf("failed to commit catalog insert: %w", e)
			inserted = 0
		}
	}()

	for _, item := range items {
		tags := item.Tags
		if tags == nil {
			tags = []string{}
		}
		tag, err := tx.Exec(ctx, query, item.ID, item.Name, item.Image, tags)
		if err != nil {
			return 0, fmt.Errorf("failed to insert collectible %q: %w", item.ID, err)
		}
		inserted += tag.RowsAffected()
	}

	return inserted, nil
}

// SampleOne returns one collectible chosen uniformly at random.
// Returns ErrCatalogEmpty if the catalog has no entries.
func (r *CatalogRepository) SampleOne(ctx context.Context) (*model.Collectible, error) {
	const query = `
		SELECT id, name, image, tags
		FROM collectibles
		ORDER BY random()
		LIMIT 1
	`

	var c model.Collectible
	err := r.pool.QueryRow(ctx, query).Scan(&c.ID, &c.Name, &c.Image, &c.Tags)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCatalogEmpty
		}
		return nil, fmt.Errorf("failed to sample collectible: %w", err)
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}

	return &c, nil
}
