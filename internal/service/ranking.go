package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"waifu-catcher-bot/internal/model"
	"waifu-catcher-bot/internal/repository"
)

const (
	// ScanLimit bounds how many user records the leaderboard considers,
	// oldest first. Users past the limit never rank.
	ScanLimit = 100
	// LeaderboardSize is the number of ranked users shown.
	LeaderboardSize = 10
)

// NameResolver looks up a user's display name.
type NameResolver interface {
	DisplayName(ctx context.Context, userID int64) (string, error)
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Rank   int
	UserID int64
	Name   string
	Total  int64
}

// RankingService handles leaderboard operations.
type RankingService struct {
	users    repository.UserStore
	resolver NameResolver
}

// NewRankingService creates a new RankingService instance.
// A nil resolver shows raw user ids.
func NewRankingService(users repository.UserStore, resolver NameResolver) *RankingService {
	return &RankingService{users: users, resolver: resolver}
}

// Leaderboard returns the top collectors by total owned count.
func (s *RankingService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	totals, err := s.users.ScanTotals(ctx, ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan totals: %w", err)
	}

	top := RankTotals(totals, LeaderboardSize)
	entries := make([]LeaderboardEntry, len(top))
	for i, t := range top {
		entries[i] = LeaderboardEntry{
			Rank:   i + 1,
			UserID: t.UserID,
			Name:   s.displayName(ctx, t.UserID),
			Total:  t.Total,
		}
	}
	return entries, nil
}

func (s *RankingService) displayName(ctx context.Context, userID int64) string {
	fallback := strconv.FormatInt(userID, 10)
	if s.resolver == nil {
		return fallback
	}
	name, err := s.resolver.DisplayName(ctx, userID)
	if err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Msg("Falling back to raw id")
		return fallback
	}
	if name == "" {
		return fallback
	}
	return name
}

// RankTotals drops zero totals and returns the top n by total descending,
// ties broken by user id ascending.
func RankTotals(totals []model.UserTotal, n int) []model.UserTotal {
	ranked := make([]model.UserTotal, 0, len(totals))
	for _, t := range totals {
		if t.Total > 0 {
			ranked = append(ranked, t)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
