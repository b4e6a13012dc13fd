// Package gacha implements the rarity draw and the roll cooldown.
package gacha

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"waifu-catcher-bot/internal/model"
)

// ErrNoWeight is returned when a tier table has no positive weight.
var ErrNoWeight = errors.New("tier table has zero total weight")

// Tier is one row of the rarity table.
type Tier struct {
	Name   string
	Weight int
}

// DefaultTiers returns the standard table. Weights sum to 100.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: model.RarityLegendary, Weight: 2},
		{Name: model.RarityEpic, Weight: 8},
		{Name: model.RarityRare, Weight: 20},
		{Name: model.RarityCommon, Weight: 70},
	}
}

// RandomSource yields integers in [0, n).
type RandomSource interface {
	IntN(n int) int
}

// NewSource returns a PCG source seeded from crypto/rand.
func NewSource() (RandomSource, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	seed1 := binary.LittleEndian.Uint64(b[:8])
	seed2 := binary.LittleEndian.Uint64(b[8:])
	return rand.New(rand.NewPCG(seed1, seed2)), nil
}

// Selector draws a tier name per call with probability weight/total.
// It is safe for concurrent use.
type Selector struct {
	mu    sync.Mutex
	rng   RandomSource
	tiers []Tier
	total int
}

// NewSelector builds a selector over tiers. Tiers with a non-positive weight
// are never drawn.
func NewSelector(tiers []Tier, rng RandomSource) (*Selector, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}

	kept := make([]Tier, 0, len(tiers))
	total := 0
	for _, t := range tiers {
		if t.Weight <= 0 {
			continue
		}
		kept = append(kept, t)
		total += t.Weight
	}
	if total == 0 {
		return nil, ErrNoWeight
	}

	return &Selector{rng: rng, tiers: kept, total: total}, nil
}

// Pick returns one tier name.
func (s *Selector) Pick() string {
	s.mu.Lock()
	n := s.rng.IntN(s.total)
	s.mu.Unlock()

	for _, t := range s.tiers {
		if n < t.Weight {
			return t.Name
		}
		n -= t.Weight
	}
	// unreachable while IntN honours its contract
	return s.tiers[len(s.tiers)-1].Name
}

// Tiers returns a copy of the drawable tiers.
func (s *Selector) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out
}
