package presence

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mathduel/mathduel/internal/domain"
)

const (
	// DefaultHeartbeatInterval is how often each client republishes its
	// own heartbeat.
	DefaultHeartbeatInterval = 10 * time.Second
	// DefaultLivenessThreshold marks a participant offline for display.
	DefaultLivenessThreshold = 15 * time.Second
	// DefaultEvictionThreshold removes a participant from the map.
	DefaultEvictionThreshold = 30 * time.Second
	// DefaultSweepInterval is how often eviction runs.
	DefaultSweepInterval = 5 * time.Second
)

// Tracker merges heartbeat broadcasts into a liveness map. Every client
// runs one; there is no central authority, the map is eventually
// consistent. Merge is last-write-wins by heartbeat timestamp, so
// receiving heartbeats in any order converges to the same state.
type Tracker struct {
	clock clockwork.Clock

	liveness time.Duration
	eviction time.Duration

	mu    sync.Mutex
	peers map[string]domain.Participant
}

type Config struct {
	Clock             clockwork.Clock
	LivenessThreshold time.Duration
	EvictionThreshold time.Duration
}

func NewTracker(c Config) *Tracker {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.LivenessThreshold == 0 {
		c.LivenessThreshold = DefaultLivenessThreshold
	}
	if c.EvictionThreshold == 0 {
		c.EvictionThreshold = DefaultEvictionThreshold
	}

	return &Tracker{
		clock:    c.Clock,
		liveness: c.LivenessThreshold,
		eviction: c.EvictionThreshold,
		peers:    make(map[string]domain.Participant),
	}
}

// Observe merges one heartbeat. An older heartbeat than the one already
// recorded for the player is ignored.
func (t *Tracker) Observe(hb domain.EventHeartbeat) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.peers[hb.PlayerID]; ok && cur.LastHeartbeatAt.After(hb.TS) {
		return
	}

	t.peers[hb.PlayerID] = domain.Participant{
		PlayerID:        hb.PlayerID,
		DisplayName:     hb.DisplayName,
		LastHeartbeatAt: hb.TS,
	}
}

// Online reports whether the player heartbeated within the liveness
// threshold. A stale participant shows offline but stays in the map until
// the eviction sweep removes it.
func (t *Tracker) Online(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.peers[playerID]
	if !ok {
		return false
	}

	return t.clock.Now().Sub(p.LastHeartbeatAt) <= t.liveness
}

// Snapshot returns all known participants ordered by player ID.
func (t *Tracker) Snapshot() []domain.Participant {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.Participant, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })

	return out
}

// Sweep evicts participants whose last heartbeat is older than the
// eviction threshold and returns the evicted player IDs.
func (t *Tracker) Sweep() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []string
	now := t.clock.Now()
	for id, p := range t.peers {
		if now.Sub(p.LastHeartbeatAt) > t.eviction {
			delete(t.peers, id)
			evicted = append(evicted, id)
		}
	}

	return evicted
}

// RunSweeper evicts stale participants every interval until ctx ends.
func (t *Tracker) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval == 0 {
		interval = DefaultSweepInterval
	}

	ticker := t.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if evicted := t.Sweep(); len(evicted) > 0 {
				slog.InfoContext(ctx, "presence: evicted stale participants", "players", evicted)
			}
		}
	}
}
