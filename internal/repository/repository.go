// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"waifu-catcher-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrCatalogEmpty = errors.New("catalog is empty")
	ErrNoPending    = errors.New("no pending roll")
)

// PgxPool is the subset of *pgxpool.Pool the repositories use.
// It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// CatalogStore supplies collectible definitions.
type CatalogStore interface {
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, items []model.Collectible) (int64, error)
	// SampleOne returns a uniformly random collectible, or ErrCatalogEmpty.
	SampleOne(ctx context.Context) (*model.Collectible, error)
}

// UserStore tracks per-user roll clocks.
type UserStore interface {
	// LastRollAt returns the unix time of the user's last roll, or 0 if the user is unknown.
	LastRollAt(ctx context.Context, userID int64) (int64, error)
	// TouchLastRoll upserts the user's last roll time.
	TouchLastRoll(ctx context.Context, userID int64, at int64) error
	// ScanTotals returns up to limit users, oldest first, with their total owned count.
	ScanTotals(ctx context.Context, limit int) ([]model.UserTotal, error)
}

// PendingStore keeps at most one unclaimed roll per user.
type PendingStore interface {
	Get(ctx context.Context, userID int64) (*model.PendingRoll, error)
	// Put overwrites the user's pending roll.
	Put(ctx context.Context, p *model.PendingRoll) error
	// Take atomically returns and deletes the user's pending roll, or ErrNoPending.
	Take(ctx context.Context, userID int64) (*model.PendingRoll, error)
}

// LedgerStore is the durable per-user collection tally.
type LedgerStore interface {
	// AddEntry inserts the entry with count 1 or increments an existing one,
	// overwriting name, image and rarity. It returns the new count.
	AddEntry(ctx context.Context, userID int64, entry model.OwnedEntry) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]model.OwnedEntry, error)
}
