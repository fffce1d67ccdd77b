package matches

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/enums"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
	pgrepo "github.com/gadsdencode/vybechex-sub000/internal/repo/postgres"
)

// memoryMatchStore reproduces the two guards the SQL store relies on: the unique
// canonical pair and the conditional status update.
type memoryMatchStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Match
	pairs  map[[2]int64]int64
	// beforeInsert lets tests widen the window between the existence check and the insert.
	beforeInsert func()
}

func newMemoryMatchStore() *memoryMatchStore {
	return &memoryMatchStore{
		rows:  make(map[int64]model.Match),
		pairs: make(map[[2]int64]int64),
	}
}

func (m *memoryMatchStore) ExistsForPair(_ context.Context, userID, targetID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, b := model.CanonicalPair(userID, targetID)
	_, ok := m.pairs[[2]int64{a, b}]
	return ok, nil
}

func (m *memoryMatchStore) Insert(_ context.Context, in pgrepo.NewMatch) (model.Match, error) {
	if m.beforeInsert != nil {
		m.beforeInsert()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, b := model.CanonicalPair(in.InitiatorID, in.TargetID)
	if _, ok := m.pairs[[2]int64{a, b}]; ok {
		return model.Match{}, errs.ErrDuplicateMatch
	}

	m.nextID++
	row := model.Match{
		ID:             m.nextID,
		UserAID:        a,
		UserBID:        b,
		InitiatorID:    in.InitiatorID,
		Status:         enums.MatchStatusRequested,
		Score:          in.Score,
		CreatedAt:      in.CreatedAt,
		LastActivityAt: in.CreatedAt,
	}
	m.rows[row.ID] = row
	m.pairs[[2]int64{a, b}] = row.ID
	return row, nil
}

func (m *memoryMatchStore) GetByID(_ context.Context, matchID int64) (model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[matchID]
	if !ok {
		return model.Match{}, fmt.Errorf("get match: %w", errs.ErrNotFound)
	}
	return row, nil
}

func (m *memoryMatchStore) TransitionFromRequested(_ context.Context, matchID, responderID int64, to enums.MatchStatus, at time.Time) (model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[matchID]
	if !ok || row.Status != enums.MatchStatusRequested || row.InitiatorID == responderID || !row.HasUser(responderID) {
		return model.Match{}, errs.ErrInvalidState
	}
	row.Status = to
	row.RespondedAt = &at
	row.LastActivityAt = at
	m.rows[matchID] = row
	return row, nil
}

func (m *memoryMatchStore) ListForUser(_ context.Context, userID int64) ([]model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Match, 0)
	for id := int64(1); id <= m.nextID; id++ {
		if row, ok := m.rows[id]; ok && row.HasUser(userID) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryMatchStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[int64]model.Profile
	batches  int
}

func (f *fakeProfiles) GetMany(_ context.Context, userIDs []int64) (map[int64]model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches++
	out := make(map[int64]model.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProfiles) Candidates(_ context.Context, actorID int64, _ int) ([]model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.Profile, 0, len(f.profiles))
	for id, p := range f.profiles {
		if id != actorID {
			out = append(out, p)
		}
	}
	return out, nil
}

// clockCounterStore ignores the caller's clock so tests can move time forward
// without touching the controller.
type clockCounterStore struct {
	mu       sync.Mutex
	clock    time.Time
	counters map[string]model.RateCounter
}

func newClockCounterStore(now time.Time) *clockCounterStore {
	return &clockCounterStore{clock: now, counters: make(map[string]model.RateCounter)}
}

func (c *clockCounterStore) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = c.clock.Add(d)
}

func (c *clockCounterStore) Hit(_ context.Context, actorID int64, action string, _ time.Time, window time.Duration) (model.RateCounter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := fmt.Sprintf("%s:%d", action, actorID)
	counter, ok := c.counters[key]
	if !ok || c.clock.Sub(counter.WindowStart) > window {
		counter = model.RateCounter{ActorID: actorID, Action: action, Count: 1, WindowStart: c.clock}
	} else {
		counter.Count++
	}
	c.counters[key] = counter
	return counter, nil
}

func (c *clockCounterStore) PurgeOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}
