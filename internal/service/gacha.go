// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"waifu-catcher-bot/internal/model"
	"waifu-catcher-bot/internal/repository"
)

// Common errors for gacha operations.
var (
	ErrNothingToClaim = errors.New("nothing to claim")
)

// CatchStatus is the outcome of a catch attempt.
type CatchStatus int

const (
	// CatchRolled means a new pending roll was created.
	CatchRolled CatchStatus = iota
	// CatchCooldown means the user must wait; nothing was changed.
	CatchCooldown
	// CatchEmptyCatalog means there is nothing to roll; nothing was changed.
	CatchEmptyCatalog
)

func (s CatchStatus) String() string {
	switch s {
	case CatchRolled:
		return "rolled"
	case CatchCooldown:
		return "cooldown"
	case CatchEmptyCatalog:
		return "empty_catalog"
	default:
		return "unknown"
	}
}

// CatchResult describes what a catch did.
type CatchResult struct {
	Status    CatchStatus
	Remaining int64              // seconds left, set for CatchCooldown
	Pending   *model.PendingRoll // set for CatchRolled
}

// ClaimResult describes a successful claim.
type ClaimResult struct {
	Entry model.OwnedEntry // Count holds the new total for this collectible
}

// RarityPicker draws a rarity tier label.
type RarityPicker interface {
	Pick() string
}

// Observer receives gacha events. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveRoll(rarity string)
	ObserveClaim()
}

type noopObserver struct{}

func (noopObserver) ObserveRoll(string) {}
func (noopObserver) ObserveClaim()      {}

// CooldownFunc reports the seconds left before the user may roll again.
type CooldownFunc func(lastRollAt, now int64, cooldownSeconds int) int64

// GachaService implements the catch and claim lifecycle.
type GachaService struct {
	catalog  repository.CatalogStore
	users    repository.UserStore
	pending  repository.PendingStore
	ledger   repository.LedgerStore
	picker   RarityPicker
	cooldown int
	remain   CooldownFunc
	now      func() time.Time
	observer Observer
}

// GachaOption configures a GachaService.
type GachaOption func(*GachaService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) GachaOption {
	return func(s *GachaService) { s.now = now }
}

// WithObserver reports rolls and claims to o.
func WithObserver(o Observer) GachaOption {
	return func(s *GachaService) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewGachaService creates a new GachaService instance. remaining computes the
// cooldown left; gacha.Remaining is the production implementation.
func NewGachaService(
	catalog repository.CatalogStore,
	users repository.UserStore,
	pending repository.PendingStore,
	ledger repository.LedgerStore,
	picker RarityPicker,
	remaining CooldownFunc,
	cooldownSeconds int,
	opts ...GachaOption,
) *GachaService {
	s := &GachaService{
		catalog:  catalog,
		users:    users,
		pending:  pending,
		ledger:   ledger,
		picker:   picker,
		cooldown: cooldownSeconds,
		remain:   remaining,
		now:      time.Now,
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catch rolls a collectible for the user unless they are cooling down or the
// catalog is empty. A new roll replaces any unclaimed one and restarts the
// cooldown.
func (s *GachaService) Catch(ctx context.Context, userID int64) (*CatchResult, error) {
	now := s.now().Unix()

	last, err := s.users.LastRollAt(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cooldown: %w", err)
	}
	if left := s.remain(last, now, s.cooldown); left > 0 {
		return &CatchResult{Status: CatchCooldown, Remaining: left}, nil
	}

	c, err := s.catalog.SampleOne(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrCatalogEmpty) {
			return &CatchResult{Status: CatchEmptyCatalog}, nil
		}
		return nil, fmt.Errorf("failed to sample catalog: %w", err)
	}

	roll := &model.PendingRoll{
		UserID:        userID,
		CollectibleID: c.ID,
		Name:          c.Name,
		Image:         c.Image,
		Rarity:        s.picker.Pick(),
		RolledAt:      now,
	}
	if err := s.pending.Put(ctx, roll); err != nil {
		return nil, fmt.Errorf("failed to save roll: %w", err)
	}
	if err := s.users.TouchLastRoll(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("failed to update cooldown: %w", err)
	}

	s.observer.ObserveRoll(roll.Rarity)
	log.Info().
		Int64("user_id", userID).
		Str("collectible_id", roll.CollectibleID).
		Str("rarity", roll.Rarity).
		Msg("Rolled collectible")

	return &CatchResult{Status: CatchRolled, Pending: roll}, nil
}

// Claim moves the user's pending roll into their collection. The roll is taken
// from the pending store first, so concurrent claims cannot both succeed; if
// the ledger write fails the roll is put back.
func (s *GachaService) Claim(ctx context.Context, userID int64) (*ClaimResult, error) {
	roll, err := s.pending.Take(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNoPending) {
			return nil, ErrNothingToClaim
		}
		return nil, fmt.Errorf("failed to take pending roll: %w", err)
	}

	entry := model.OwnedEntry{
		CollectibleID: roll.CollectibleID,
		Name:          roll.Name,
		Image:         roll.Image,
		Rarity:        roll.Rarity,
		ClaimedAt:     s.now().Unix(),
	}

	count, err := s.ledger.AddEntry(ctx, userID, entry)
	if err != nil {
		if restoreErr := s.pending.Put(context.WithoutCancel(ctx), roll); restoreErr != nil {
			log.Error().Err(restoreErr).Int64("user_id", userID).Msg("Failed to restore pending roll")
		}
		return nil, fmt.Errorf("failed to add to collection: %w", err)
	}
	entry.Count = count

	s.observer.ObserveClaim()
	log.Info().
		Int64("user_id", userID).
		Str("collectible_id", entry.CollectibleID).
		Int64("count", count).
		Msg("Claimed collectible")

	return &ClaimResult{Entry: entry}, nil
}
