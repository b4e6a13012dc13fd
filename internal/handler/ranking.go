package handler

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v3"

	"waifu-catcher-bot/internal/service"
)

// Leaderboarder ranks collectors. *service.RankingService satisfies it.
type Leaderboarder interface {
	Leaderboard(ctx context.Context) ([]service.LeaderboardEntry, error)
}

// RankingHandler handles ranking-related commands.
type RankingHandler struct {
	ranking Leaderboarder
	timeout time.Duration
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(ranking Leaderboarder, timeout time.Duration) *RankingHandler {
	return &RankingHandler{ranking: ranking, timeout: timeout}
}

// HandleLeaderboard handles the /leaderboard command.
func (h *RankingHandler) HandleLeaderboard(c tele.Context) error {
	ctx, cancel := commandContext(h.timeout)
	defer cancel()

	entries, err := h.ranking.Leaderboard(ctx)
	if err != nil {
		return replyError(c, "leaderboard", err)
	}

	setOutcome(c, OutcomeOK)
	return c.Reply(RenderLeaderboard(entries))
}
