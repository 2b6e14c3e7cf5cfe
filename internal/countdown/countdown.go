package countdown

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown ticks toward an absolute target timestamp, emitting the
// remaining whole seconds at ~1 Hz and signaling completion exactly once.
// Canceling never fires a stale completion.
type Countdown struct {
	remaining chan int
	done      chan struct{}
	cancel    context.CancelFunc

	// mu serializes Cancel against completion, so once Cancel returns the
	// done channel either is already closed or never closes.
	mu       sync.Mutex
	canceled bool
}

// Start begins a countdown toward target. A target in the past completes
// immediately.
func Start(ctx context.Context, clock clockwork.Clock, target time.Time) *Countdown {
	ctx, cancel := context.WithCancel(ctx)

	c := &Countdown{
		remaining: make(chan int, 1),
		done:      make(chan struct{}),
		cancel:    cancel,
	}

	go c.run(ctx, clock, target)

	return c
}

// Remaining streams the seconds left. Slow readers miss ticks instead of
// blocking the countdown. Closed when the countdown ends either way.
func (c *Countdown) Remaining() <-chan int { return c.remaining }

// Done is closed when the target is reached. Stays open forever after
// Cancel.
func (c *Countdown) Done() <-chan struct{} { return c.done }

func (c *Countdown) Cancel() {
	c.mu.Lock()
	c.canceled = true
	c.mu.Unlock()

	c.cancel()
}

// complete closes done unless Cancel won the race.
func (c *Countdown) complete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.canceled {
		close(c.done)
	}
}

func (c *Countdown) run(ctx context.Context, clock clockwork.Clock, target time.Time) {
	defer close(c.remaining)

	for {
		left := target.Sub(clock.Now())
		if left <= 0 {
			c.complete()
			return
		}

		select {
		case c.remaining <- int(math.Ceil(left.Seconds())):
		default:
		}

		// Tick at 1 Hz, but land exactly on the target for the final
		// fraction of a second.
		wait := left
		if wait > time.Second {
			wait = time.Second
		}

		timer := clock.NewTimer(wait)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
