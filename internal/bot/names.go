package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	tele "gopkg.in/telebot.v3"
)

// Name cache defaults.
const (
	DefaultNameCacheSize = 1024
	DefaultNameCacheTTL  = 10 * time.Minute
)

// ChatLookup fetches chat info by id. *tele.Bot satisfies it.
type ChatLookup interface {
	ChatByID(id int64) (*tele.Chat, error)
}

// NameResolver resolves display names through the Bot API and caches hits.
// Failed lookups are not cached.
type NameResolver struct {
	lookup ChatLookup
	cache  *expirable.LRU[int64, string]
}

// NewNameResolver creates a resolver. Non-positive size or ttl use the defaults.
func NewNameResolver(lookup ChatLookup, size int, ttl time.Duration) *NameResolver {
	if size <= 0 {
		size = DefaultNameCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultNameCacheTTL
	}
	return &NameResolver{
		lookup: lookup,
		cache:  expirable.NewLRU[int64, string](size, nil, ttl),
	}
}

// DisplayName returns the user's full name, falling back to title or
// @username.
func (r *NameResolver) DisplayName(ctx context.Context, userID int64) (string, error) {
	if name, ok := r.cache.Get(userID); ok {
		return name, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	chat, err := r.lookup.ChatByID(userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve chat %d: %w", userID, err)
	}

	name := chatName(chat)
	if name == "" {
		return "", fmt.Errorf("chat %d has no display name", userID)
	}
	r.cache.Add(userID, name)
	return name, nil
}

func chatName(chat *tele.Chat) string {
	if chat == nil {
		return ""
	}
	if full := strings.TrimSpace(chat.FirstName + " " + chat.LastName); full != "" {
		return full
	}
	if chat.Title != "" {
		return chat.Title
	}
	if chat.Username != "" {
		return "@" + chat.Username
	}
	return ""
}
