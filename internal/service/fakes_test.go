package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"waifu-catcher-bot/internal/model"
	"waifu-catcher-bot/internal/repository"
)

// memStore is an in-memory implementation of every store interface.
type memStore struct {
	mu         sync.Mutex
	catalog    []model.Collectible
	sampleIdx  int
	lastRoll   map[int64]int64
	userOrder  []int64
	pending    map[int64]model.PendingRoll
	ledger     map[int64]map[string]model.OwnedEntry
	addErr     error
	putErr     error
	sampleErr  error
	lastErr    error
	putCalls   int
	touchCalls int
}

func newMemStore(catalog ...model.Collectible) *memStore {
	return &memStore{
		catalog:  catalog,
		lastRoll: make(map[int64]int64),
		pending:  make(map[int64]model.PendingRoll),
		ledger:   make(map[int64]map[string]model.OwnedEntry),
	}
}

func (m *memStore) ensureUser(userID int64) {
	if _, ok := m.lastRoll[userID]; !ok {
		m.lastRoll[userID] = 0
		m.userOrder = append(m.userOrder, userID)
	}
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.catalog)), nil
}

func (m *memStore) InsertMany(ctx context.Context, items []model.Collectible) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = append(m.catalog, items...)
	return int64(len(items)), nil
}

// SampleOne cycles through the catalog so tests are deterministic.
func (m *memStore) SampleOne(ctx context.Context) (*model.Collectible, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sampleErr != nil {
		return nil, m.sampleErr
	}
	if len(m.catalog) == 0 {
		return nil, repository.ErrCatalogEmpty
	}
	c := m.catalog[m.sampleIdx%len(m.catalog)]
	m.sampleIdx++
	return &c, nil
}

func (m *memStore) LastRollAt(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastErr != nil {
		return 0, m.lastErr
	}
	return m.lastRoll[userID], nil
}

func (m *memStore) TouchLastRoll(ctx context.Context, userID int64, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touchCalls++
	m.ensureUser(userID)
	m.lastRoll[userID] = at
	return nil
}

func (m *memStore) ScanTotals(ctx context.Context, limit int) ([]model.UserTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserTotal
	for i, id := range m.userOrder {
		if i >= limit {
			break
		}
		var total int64
		for _, e := range m.ledger[id] {
			total += e.Count
		}
		out = append(out, model.UserTotal{UserID: id, Total: total})
	}
	return out, nil
}

func (m *memStore) Get(ctx context.Context, userID int64) (*model.PendingRoll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[userID]
	if !ok {
		return nil, repository.ErrNoPending
	}
	return &p, nil
}

func (m *memStore) Put(ctx context.Context, p *model.PendingRoll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.putErr != nil {
		return m.putErr
	}
	m.pending[p.UserID] = *p
	return nil
}

func (m *memStore) Take(ctx context.Context, userID int64) (*model.PendingRoll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[userID]
	if !ok {
		return nil, repository.ErrNoPending
	}
	delete(m.pending, userID)
	return &p, nil
}

func (m *memStore) AddEntry(ctx context.Context, userID int64, entry model.OwnedEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.ensureUser(userID)
	coll := m.ledger[userID]
	if coll == nil {
		coll = make(map[string]model.OwnedEntry)
		m.ledger[userID] = coll
	}
	if cur, ok := coll[entry.CollectibleID]; ok {
		entry.Count = cur.Count + 1
	} else {
		entry.Count = 1
	}
	coll[entry.CollectibleID] = entry
	return entry.Count, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID int64) ([]model.OwnedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.ledger[userID]
	out := make([]model.OwnedEntry, 0, len(coll))
	for _, e := range coll {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CollectibleID < out[j].CollectibleID })
	return out, nil
}

func (m *memStore) seedLedger(userID int64, entries ...model.OwnedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureUser(userID)
	coll := make(map[string]model.OwnedEntry)
	for _, e := range entries {
		coll[e.CollectibleID] = e
	}
	m.ledger[userID] = coll
}

// fixedPicker always returns the same rarity.
type fixedPicker string

func (p fixedPicker) Pick() string { return string(p) }

// manualClock is a settable clock.
type manualClock struct {
	mu  sync.Mutex
	sec int64
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(c.sec, 0)
}

func (c *manualClock) Advance(sec int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sec += sec
}

type countingObserver struct {
	mu     sync.Mutex
	rolls  map[string]int
	claims int
}

func (o *countingObserver) ObserveRoll(rarity string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rolls == nil {
		o.rolls = map[string]int{}
	}
	o.rolls[rarity]++
}

func (o *countingObserver) ObserveClaim() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.claims++
}

var (
	_ repository.CatalogStore = (*memStore)(nil)
	_ repository.UserStore    = (*memStore)(nil)
	_ repository.PendingStore = (*memStore)(nil)
	_ repository.LedgerStore  = (*memStore)(nil)
)
