package service

import (
	"context"
	"fmt"
	"sort"

	"waifu-catcher-bot/internal/model"
	"waifu-catcher-bot/internal/repository"
)

// InventoryLimit is the number of entries shown by the inventory command.
const InventoryLimit = 20

// InventoryPage is the visible head of a user's collection.
type InventoryPage struct {
	Entries  []model.OwnedEntry
	Distinct int // number of entries before truncation
}

// RarityCount is the summed count of one rarity label.
type RarityCount struct {
	Rarity string
	Count  int64
}

// ProfileStats summarizes a user's collection.
type ProfileStats struct {
	Total    int64
	Distinct int
	ByRarity []RarityCount
}

// CollectionService handles read-only collection views.
type CollectionService struct {
	ledger repository.LedgerStore
}

// NewCollectionService creates a new CollectionService instance.
func NewCollectionService(ledger repository.LedgerStore) *CollectionService {
	return &CollectionService{ledger: ledger}
}

// Inventory returns up to limit entries ordered by count descending, then by
// rarity label as a plain string. A limit <= 0 uses InventoryLimit.
func (s *CollectionService) Inventory(ctx context.Context, userID int64, limit int) (*InventoryPage, error) {
	if limit <= 0 {
		limit = InventoryLimit
	}

	entries, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	SortInventory(entries)

	page := &InventoryPage{Distinct: len(entries)}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	page.Entries = entries
	return page, nil
}

// SortInventory orders entries in place by count descending, then rarity label
// ascending. Equal entries keep their relative order.
func SortInventory(entries []model.OwnedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Rarity < entries[j].Rarity
	})
}

// Profile returns the user's total owned count and per-rarity totals.
func (s *CollectionService) Profile(ctx context.Context, userID int64) (*ProfileStats, error) {
	entries, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	return Summarize(entries), nil
}

// Summarize totals entries. Labels are listed in tier order first, then any
// other label alphabetically; an empty label counts as model.RarityUnknown.
func Summarize(entries []model.OwnedEntry) *ProfileStats {
	stats := &ProfileStats{Distinct: len(entries)}
	byLabel := make(map[string]int64)
	for _, e := range entries {
		stats.Total += e.Count
		label := e.Rarity
		if label == "" {
			label = model.RarityUnknown
		}
		byLabel[label] += e.Count
	}

	for _, tier := range model.RarityOrder() {
		if n, ok := byLabel[tier]; ok {
			stats.ByRarity = append(stats.ByRarity, RarityCount{Rarity: tier, Count: n})
			delete(byLabel, tier)
		}
	}

	others := make([]string, 0, len(byLabel))
	for label := range byLabel {
		others = append(others, label)
	}
	sort.Strings(others)
	for _, label := range others {
		stats.ByRarity = append(stats.ByRarity, RarityCount{Rarity: label, Count: byLabel[label]})
	}

	return stats
}
