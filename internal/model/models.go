// Package model defines the data models for the waifu catcher bot.
package model

import "time"

// Collectible is a catalog entry a user can acquire.
// Immutable once seeded.
type Collectible struct {
	ID    string   `db:"id"`
	Name  string   `db:"name"`
	Image string   `db:"image"` // URL or Telegram file_id, empty when absent
	Tags  []string `db:"tags"`
}

// PendingRoll is the rolled-but-unclaimed collectible of a user.
// There is at most one per user; a new roll overwrites it.
type PendingRoll struct {
	UserID        int64  `db:"user_id"`
	CollectibleID string `db:"collectible_id"`
	Name          string `db:"name"`
	Image         string `db:"image"`
	Rarity        string `db:"rarity"`
	RolledAt      int64  `db:"rolled_at"` // unix seconds
}

// HasImage reports whether the roll carries an image reference.
func (p *PendingRoll) HasImage() bool {
	return p.Image != ""
}

// UserRecord holds the per-user cooldown clock.
// Created lazily on the first roll or claim and never deleted.
type UserRecord struct {
	UserID     int64     `db:"user_id"`
	LastRollAt int64     `db:"last_roll_at"` // unix seconds, 0 if never rolled
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// OwnedEntry is one line of a user's collection ledger.
type OwnedEntry struct {
	CollectibleID string `db:"collectible_id"`
	Name          string `db:"name"`
	Image         string `db:"image"`
	Rarity        string `db:"rarity"`
	Count         int64  `db:"count"` // always >= 1
	ClaimedAt     int64  `db:"claimed_at"`
}

// UserTotal is a user's total owned count, used by the leaderboard.
type UserTotal struct {
	UserID int64 `db:"user_id"`
	Total  int64 `db:"total"`
}

// Rarity tier labels.
const (
	RarityLegendary = "Legendary"
	RarityEpic      = "Epic"
	RarityRare      = "Rare"
	RarityCommon    = "Common"

	// RarityUnknown buckets entries stored without a rarity label.
	RarityUnknown = "Unknown"
)

// RarityOrder returns the tier labels from rarest to most common.
func RarityOrder() []string {
	return []string{RarityLegendary, RarityEpic, RarityRare, RarityCommon}
}
