package handler

import (
	"fmt"
	"strings"

	"waifu-catcher-bot/internal/model"
	"waifu-catcher-bot/internal/service"
)

const (
	msgEmptyCatalog    = "No waifus loaded yet. Contact the admin."
	msgNothingToClaim  = "❌ You have no waifu to claim. Use /catch first."
	msgEmptyCollection = "📦 Your collection is empty."
	msgNoLeaderboard   = "No data yet."
)

// RenderCooldown formats the wait message. A non-positive wait still reads as
// one second.
func RenderCooldown(remaining int64) string {
	if remaining < 1 {
		remaining = 1
	}
	return fmt.Sprintf("⏳ Wait %ds before catching again.", remaining)
}

// RenderRoll formats the caption of a fresh roll.
func RenderRoll(p *model.PendingRoll) string {
	return fmt.Sprintf(
		"🎴 A Waifu appeared!\n\n"+
			"❤️ Name: %s\n"+
			"⭐ Rarity: %s\n\n"+
			"Use /claim to add her to your collection.",
		p.Name, p.Rarity,
	)
}

// RenderClaim formats a successful claim.
func RenderClaim(e model.OwnedEntry) string {
	return fmt.Sprintf("✅ You claimed %s (%s). You now have %d of them.", e.Name, e.Rarity, e.Count)
}

// RenderInventory formats an inventory page.
func RenderInventory(page *service.InventoryPage) string {
	if page == nil || len(page.Entries) == 0 {
		return msgEmptyCollection
	}

	var b strings.Builder
	b.WriteString("📦 Your collection:\n\n")
	for i, e := range page.Entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s — %s x%d", i+1, e.Name, e.Rarity, e.Count)
	}
	if more := page.Distinct - len(page.Entries); more > 0 {
		fmt.Fprintf(&b, "\n\n… and %d more", more)
	}
	return b.String()
}

// RenderProfile formats profile stats.
func RenderProfile(stats *service.ProfileStats) string {
	var total int64
	distinct := 0
	var lines []string
	if stats != nil {
		total = stats.Total
		distinct = stats.Distinct
		for _, rc := range stats.ByRarity {
			lines = append(lines, fmt.Sprintf("%s: %d", rc.Rarity, rc.Count))
		}
	}

	rtext := "None"
	if len(lines) > 0 {
		rtext = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(
		"👤 Profile\n"+
			"Total waifus: %d\n"+
			"Distinct waifus: %d\n\n"+
			"Rarity counts:\n%s",
		total, distinct, rtext,
	)
}

// RenderLeaderboard formats the ranking.
func RenderLeaderboard(entries []service.LeaderboardEntry) string {
	if len(entries) == 0 {
		return msgNoLeaderboard
	}

	var b strings.Builder
	b.WriteString("🏆 Leaderboard\n\n")
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s — %d", e.Rank, e.Name, e.Total)
	}
	return b.String()
}
