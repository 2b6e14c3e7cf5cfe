package presence_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/presence"
)

func heartbeat(player, name string, ts time.Time) domain.EventHeartbeat {
	return domain.EventHeartbeat{PlayerID: player, DisplayName: name, TS: ts}
}

func TestTracker_LivenessTimeline(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tr := presence.NewTracker(presence.Config{Clock: fc})

	tr.Observe(heartbeat("p1", "Player One", fc.Now()))
	assert.True(t, tr.Online("p1"))

	// Just inside the liveness threshold.
	fc.Advance(15 * time.Second)
	assert.True(t, tr.Online("p1"))

	// One second past it: offline for display, but still known.
	fc.Advance(1 * time.Second)
	assert.False(t, tr.Online("p1"))
	require.Len(t, tr.Snapshot(), 1)
	assert.Empty(t, tr.Sweep())

	// Past the eviction threshold the sweep removes the entry.
	fc.Advance(15 * time.Second)
	assert.Equal(t, []string{"p1"}, tr.Sweep())
	assert.Empty(t, tr.Snapshot())
	assert.False(t, tr.Online("p1"))
}

func TestTracker_HeartbeatRevives(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tr := presence.NewTracker(presence.Config{Clock: fc})

	tr.Observe(heartbeat("p1", "Player One", fc.Now()))
	fc.Advance(20 * time.Second)
	require.False(t, tr.Online("p1"))

	tr.Observe(heartbeat("p1", "Player One", fc.Now()))
	assert.True(t, tr.Online("p1"))
}

func TestTracker_MergeIsLastWriteWins(t *testing.T) {
	fc := clockwork.NewFakeClock()
	now := fc.Now()

	// Duplicated and reordered deliveries converge to the same state.
	newer := heartbeat("p1", "Renamed", now.Add(5*time.Second))
	older := heartbeat("p1", "Original", now)

	a := presence.NewTracker(presence.Config{Clock: fc})
	a.Observe(older)
	a.Observe(newer)
	a.Observe(older)

	b := presence.NewTracker(presence.Config{Clock: fc})
	b.Observe(newer)
	b.Observe(older)

	require.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Equal(t, "Renamed", a.Snapshot()[0].DisplayName)
	assert.Equal(t, now.Add(5*time.Second), a.Snapshot()[0].LastHeartbeatAt)
}

func TestTracker_SnapshotOrdered(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tr := presence.NewTracker(presence.Config{Clock: fc})

	tr.Observe(heartbeat("zed", "Z", fc.Now()))
	tr.Observe(heartbeat("amy", "A", fc.Now()))
	tr.Observe(heartbeat("mia", "M", fc.Now()))

	snap := tr.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "amy", snap[0].PlayerID)
	assert.Equal(t, "mia", snap[1].PlayerID)
	assert.Equal(t, "zed", snap[2].PlayerID)
}

func TestTracker_RunSweeper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fc := clockwork.NewFakeClock()
	tr := presence.NewTracker(presence.Config{Clock: fc})
	tr.Observe(heartbeat("p1", "Player One", fc.Now()))

	go tr.RunSweeper(ctx, 5*time.Second)
	fc.BlockUntil(1)

	fc.Advance(31 * time.Second)

	require.Eventually(t, func() bool {
		return len(tr.Snapshot()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
