package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrClockRunning is returned by Run when the clock is already running.
var ErrClockRunning = errors.New("engine: clock already running")

// Observer receives every Update in tick order. Observers run on the clock
// goroutine and should hand slow work off.
type Observer func(Update)

// Ticker is the engine operation the clock drives. *Engine satisfies it.
type Ticker interface {
	Tick(now time.Time) Update
}

// Clock calls Tick on a fixed period and publishes each Update.
type Clock struct {
	target   Ticker
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	running   bool
	observers []Observer
}

// NewClock returns a Clock that ticks target every interval.
func NewClock(target Ticker, interval time.Duration) *Clock {
	return &Clock{target: target, interval: interval, now: time.Now}
}

// Subscribe registers fn. Observers are called in registration order.
func (c *Clock) Subscribe(fn Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Run ticks until ctx is cancelled. Missed ticks are not replayed; a new Run
// after a return starts a fresh period. Run returns ErrClockRunning if another
// Run is active, and nil on cancellation.
func (c *Clock) Run(ctx context.Context) error {
	if c.interval <= 0 {
		return errors.New("engine: clock interval must be positive")
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrClockRunning
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	t := time.NewTicker(c.interval)
	defer t.Stop()

	slog.Info("engine: clock started", "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("engine: clock stopped")
			return nil
		case <-t.C:
			c.publish(c.target.Tick(c.now()))
		}
	}
}

func (c *Clock) publish(u Update) {
	c.mu.Lock()
	obs := make([]Observer, len(c.observers))
	copy(obs, c.observers)
	c.mu.Unlock()

	for _, fn := range obs {
		fn(u)
	}
	if len(u.Fired) > 0 {
		slog.Debug("engine: alerts raised", "count", len(u.Fired), "status", u.Snapshot.MachineStatus.Status)
	}
}
