// Package redisstore keeps pending rolls in Redis instead of PostgreSQL.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"waifu-catcher-bot/internal/config"
	"waifu-catcher-bot/internal/model"
	"waifu-catcher-bot/internal/repository"
)

const keyPrefix = "waifu:pending:"

// record is the JSON value stored under a pending key.
type record struct {
	CollectibleID string `json:"collectible_id"`
	Name          string `json:"name"`
	Image         string `json:"image,omitempty"`
	Rarity        string `json:"rarity"`
	RolledAt      int64  `json:"rolled_at"`
}

// PendingStore implements repository.PendingStore on a Redis client.
type PendingStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewPendingStore wraps client. A ttl of zero keeps pending rolls until claimed
// or overwritten.
func NewPendingStore(client goredis.UniversalClient, ttl time.Duration) *PendingStore {
	return &PendingStore{client: client, ttl: ttl}
}

// NewClient dials Redis from configuration and pings it.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// Get returns the user's pending roll, or repository.ErrNoPending.
func (s *PendingStore) Get(ctx context.Context, userID int64) (*model.PendingRoll, error) {
	val, err := s.client.Get(ctx, key(userID)).Bytes()
	return decode(userID, val, err)
}

// Put overwrites the user's pending roll.
func (s *PendingStore) Put(ctx context.Context, p *model.PendingRoll) error {
	data, err := json.Marshal(record{
		CollectibleID: p.CollectibleID,
		Name:          p.Name,
		Image:         p.Image,
		Rarity:        p.Rarity,
		RolledAt:      p.RolledAt,
	})
	if err != nil {
		return fmt.Errorf("marshal pending roll failed: %w", err)
	}
	if err := s.client.Set(ctx, key(p.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set pending roll failed: %w", err)
	}
	return nil
}

// Take removes and returns the user's pending roll with GETDEL.
func (s *PendingStore) Take(ctx context.Context, userID int64) (*model.PendingRoll, error) {
	val, err := s.client.GetDel(ctx, key(userID)).Bytes()
	return decode(userID, val, err)
}

func decode(userID int64, val []byte, err error) (*model.PendingRoll, error) {
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, repository.ErrNoPending
		}
		return nil, fmt.Errorf("get pending roll failed: %w", err)
	}

	var r record
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, fmt.Errorf("unmarshal pending roll failed: %w", err)
	}

	return &model.PendingRoll{
		UserID:        userID,
		CollectibleID: r.CollectibleID,
		Name:          r.Name,
		Image:         r.Image,
		Rarity:        r.Rarity,
		RolledAt:      r.RolledAt,
	}, nil
}

var _ repository.PendingStore = (*PendingStore)(nil)
