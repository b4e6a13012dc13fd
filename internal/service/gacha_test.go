package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"waifu-catcher-bot/internal/gacha"
	"waifu-catcher-bot/internal/model"
)

const testCooldown = 15

func newTestGacha(store *memStore, clock *manualClock, picker RarityPicker, obs Observer) *GachaService {
	return NewGachaService(store, store, store, store, picker, gacha.Remaining, testCooldown,
		WithClock(clock.Now), WithObserver(obs))
}

func TestCatch_RollsAndStartsCooldown(t *testing.T) {
	store := newMemStore(model.Collectible{ID: "rem", Name: "Rem", Image: "https://img/rem.png"})
	clock := &manualClock{sec: 1_700_000_000}
	obs := &countingObserver{}
	svc := newTestGacha(store, clock, fixedPicker(model.RarityEpic), obs)
	ctx := context.Background()

	res, err := svc.Catch(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, CatchRolled, res.Status)
	assert.Equal(t, &model.PendingRoll{
		UserID: 1, CollectibleID: "rem", Name: "Rem", Image: "https://img/rem.png",
		Rarity: model.RarityEpic, RolledAt: 1_700_000_000,
	}, res.Pending)
	assert.Equal(t, int64(1_700_000_000), store.lastRoll[1])
	assert.Equal(t, 1, obs.rolls[model.RarityEpic])

	clock.Advance(4)
	res, err = svc.Catch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, CatchCooldown, res.Status)
	assert.Equal(t, int64(11), res.Remaining)
	assert.Nil(t, res.Pending)

	clock.Advance(11)
	res, err = svc.Catch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, CatchRolled, res.Status)
}

func TestCatch_EmptyCatalogChangesNothing(t *testing.T) {
	store := newMemStore()
	svc := newTestGacha(store, &manualClock{sec: 100}, fixedPicker(model.RarityCommon), nil)

	res, err := svc.Catch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, CatchEmptyCatalog, res.Status)
	assert.Zero(t, store.putCalls)
	assert.Zero(t, store.touchCalls)
}

func TestCatch_StoreErrors(t *testing.T) {
	ctx := context.Background()

	store := newMemStore(model.Collectible{ID: "rem", Name: "Rem"})
	store.lastErr = errors.New("down")
	_, err := newTestGacha(store, &manualClock{sec: 100}, fixedPicker(model.RarityCommon), nil).Catch(ctx, 1)
	assert.Error(t, err)

	store = newMemStore(model.Collectible{ID: "rem", Name: "Rem"})
	store.sampleErr = errors.New("down")
	_, err = newTestGacha(store, &manualClock{sec: 100}, fixedPicker(model.RarityCommon), nil).Catch(ctx, 1)
	assert.Error(t, err)

	store = newMemStore(model.Collectible{ID: "rem", Name: "Rem"})
	store.putErr = errors.New("down")
	_, err = newTestGacha(store, &manualClock{sec: 100}, fixedPicker(model.RarityCommon), nil).Catch(ctx, 1)
	assert.Error(t, err)
	assert.Zero(t, store.touchCalls, "cooldown is not started when the roll was not saved")
}

func TestCatch_OverwritesUnclaimedRoll(t *testing.T) {
	store := newMemStore(
		model.Collectible{ID: "rem", Name: "Rem"},
		model.Collectible{ID: "ram", Name: "Ram"},
	)
	clock := &manualClock{sec: 1000}
	svc := newTestGacha(store, clock, fixedPicker(model.RarityRare), nil)
	ctx := context.Background()

	_, err := svc.Catch(ctx, 1)
	require.NoError(t, err)
	clock.Advance(testCooldown)
	_, err = svc.Catch(ctx, 1)
	require.NoError(t, err)

	p, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ram", p.CollectibleID)
	assert.Len(t, store.pending, 1)
}

func TestClaim(t *testing.T) {
	store := newMemStore(model.Collectible{ID: "rem", Name: "Rem"})
	clock := &manualClock{sec: 1000}
	obs := &countingObserver{}
	svc := newTestGacha(store, clock, fixedPicker(model.RarityLegendary), obs)
	ctx := context.Background()

	_, err := svc.Claim(ctx, 1)
	assert.ErrorIs(t, err, ErrNothingToClaim)

	_, err = svc.Catch(ctx, 1)
	require.NoError(t, err)
	res, err := svc.Claim(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Rem", res.Entry.Name)
	assert.Equal(t, model.RarityLegendary, res.Entry.Rarity)
	assert.Equal(t, int64(1), res.Entry.Count)
	assert.Equal(t, 1, obs.claims)

	_, err = svc.Claim(ctx, 1)
	assert.ErrorIs(t, err, ErrNothingToClaim, "a roll can be claimed once")

	// Claiming does not reset the cooldown.
	clock.Advance(1)
	cres, err := svc.Catch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, CatchCooldown, cres.Status)

	clock.Advance(testCooldown)
	_, err = svc.Catch(ctx, 1)
	require.NoError(t, err)
	res, err = svc.Claim(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Entry.Count)
}

func TestClaim_RarityIsLastWriteWins(t *testing.T) {
	store := newMemStore(model.Collectible{ID: "rem", Name: "Rem"})
	clock := &manualClock{sec: 1000}
	ctx := context.Background()

	_, err := newTestGacha(store, clock, fixedPicker(model.RarityCommon), nil).Catch(ctx, 1)
	require.NoError(t, err)
	_, err = newTestGacha(store, clock, fixedPicker(model.RarityCommon), nil).Claim(ctx, 1)
	require.NoError(t, err)

	clock.Advance(testCooldown)
	svc := newTestGacha(store, clock, fixedPicker(model.RarityEpic), nil)
	_, err = svc.Catch(ctx, 1)
	require.NoError(t, err)
	res, err := svc.Claim(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.RarityEpic, res.Entry.Rarity)
	assert.Equal(t, int64(2), res.Entry.Count)

	entries, err := store.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.RarityEpic, entries[0].Rarity)
}

func TestClaim_LedgerFailureKeepsRoll(t *testing.T) {
	store := newMemStore(model.Collectible{ID: "rem", Name: "Rem"})
	svc := newTestGacha(store, &manualClock{sec: 1000}, fixedPicker(model.RarityRare), nil)
	ctx := context.Background()

	_, err := svc.Catch(ctx, 1)
	require.NoError(t, err)

	store.addErr = errors.New("ledger down")
	_, err = svc.Claim(ctx, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNothingToClaim)

	p, err := store.Get(ctx, 1)
	require.NoError(t, err, "the roll is restored after a failed claim")
	assert.Equal(t, "rem", p.CollectibleID)

	store.addErr = nil
	res, err := svc.Claim(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Entry.Count)
}

func TestClaim_ConcurrentClaimsSucceedOnce(t *testing.T) {
	store := newMemStore(model.Collectible{ID: "rem", Name: "Rem"})
	svc := newTestGacha(store, &manualClock{sec: 1000}, fixedPicker(model.RarityRare), nil)
	ctx := context.Background()

	_, err := svc.Catch(ctx, 1)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Claim(ctx, 1); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	entries, _ := store.ListByUser(ctx, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].Count)
}

func TestCatchStatusString(t *testing.T) {
	assert.Equal(t, "rolled", CatchRolled.String())
	assert.Equal(t, "cooldown", CatchCooldown.String())
	assert.Equal(t, "empty_catalog", CatchEmptyCatalog.String())
	assert.Equal(t, "unknown", CatchStatus(99).String())
}

// Random interleavings of catch, claim and waiting keep the ledger equal to
// the number of successful claims, keep at most one pending roll, and never
// let a cooldown catch mutate state.
func TestCatchClaimLifecycleProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := newMemStore(
			model.Collectible{ID: "a", Name: "A"},
			model.Collectible{ID: "b", Name: "B"},
			model.Collectible{ID: "c", Name: "C"},
		)
		clock := &manualClock{sec: 1_000_000}
		svc := newTestGacha(store, clock, fixedPicker(model.RarityCommon), nil)
		ctx := context.Background()
		const userID = 42

		claims := int64(0)
		hasPending := false

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				beforeLast := store.lastRoll[userID]
				beforePending, pendErr := store.Get(ctx, userID)

				res, err := svc.Catch(ctx, userID)
				if err != nil {
					t.Fatalf("catch: %v", err)
				}
				switch res.Status {
				case CatchRolled:
					hasPending = true
					if store.lastRoll[userID] != clock.Now().Unix() {
						t.Fatalf("last roll not updated")
					}
				case CatchCooldown:
					if res.Remaining <= 0 || res.Remaining > testCooldown {
						t.Fatalf("remaining %d out of range", res.Remaining)
					}
					if store.lastRoll[userID] != beforeLast {
						t.Fatalf("cooldown catch changed last roll")
					}
					after, afterErr := store.Get(ctx, userID)
					if (pendErr == nil) != (afterErr == nil) || (pendErr == nil && *after != *beforePending) {
						t.Fatalf("cooldown catch changed pending roll")
					}
				default:
					t.Fatalf("unexpected status %v", res.Status)
				}
			case 1:
				_, err := svc.Claim(ctx, userID)
				if hasPending {
					if err != nil {
						t.Fatalf("claim with pending roll: %v", err)
					}
					claims++
					hasPending = false
				} else if !errors.Is(err, ErrNothingToClaim) {
					t.Fatalf("expected ErrNothingToClaim, got %v", err)
				}
			case 2:
				clock.Advance(rapid.Int64Range(0, 2*testCooldown).Draw(t, "wait"))
			}

			if len(store.pending) > 1 {
				t.Fatalf("more than one pending roll")
			}
		}

		stats := Summarize(mustList(t, store, userID))
		if stats.Total != claims {
			t.Fatalf("ledger total %d != successful claims %d", stats.Total, claims)
		}
	})
}

func mustList(t *rapid.T, store *memStore, userID int64) []model.OwnedEntry {
	entries, err := store.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return entries
}
