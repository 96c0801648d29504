package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/twinpulse/twinpulse/pkg/types"
)

const testInterval = 5 * time.Millisecond

// countingTicker records how many times it was ticked.
type countingTicker struct {
	n atomic.Int64
}

func (c *countingTicker) Tick(now time.Time) Update {
	c.n.Add(1)
	return Update{Snapshot: types.Snapshot{GeneratedAt: now}}
}

func TestClock_PublishesToObserversInOrder(t *testing.T) {
	ct := &countingTicker{}
	c := NewClock(ct, testInterval)

	var mu sync.Mutex
	var order []string
	got := make(chan struct{}, 64)
	c.Subscribe(func(Update) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	c.Subscribe(func(Update) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		got <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tick")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: got %v, want nil", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i+1 < len(order); i += 2 {
		if order[i] != "first" || order[i+1] != "second" {
			t.Fatalf("observer order: %v", order)
		}
	}
}

func TestClock_StopsOnCancel(t *testing.T) {
	ct := &countingTicker{}
	c := NewClock(ct, testInterval)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(10 * testInterval)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	stopped := ct.n.Load()
	time.Sleep(10 * testInterval)
	if after := ct.n.Load(); after != stopped {
		t.Fatalf("ticked after cancel: %d -> %d", stopped, after)
	}
}

func TestClock_RejectsSecondRun(t *testing.T) {
	c := NewClock(&countingTicker{}, testInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	c.Subscribe(func(Update) {
		select {
		case started <- struct{}{}:
		default:
		}
	})
	go c.Run(ctx) //nolint:errcheck

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first Run never ticked")
	}
	if err := c.Run(ctx); !errors.Is(err, ErrClockRunning) {
		t.Fatalf("second Run: got %v, want ErrClockRunning", err)
	}
}

func TestClock_RestartsAfterStop(t *testing.T) {
	ct := &countingTicker{}
	c := NewClock(ct, testInterval)

	for round := 0; round < 2; round++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*testInterval)
		if err := c.Run(ctx); err != nil {
			t.Fatalf("round %d: Run: %v", round, err)
		}
		cancel()
	}
	if ct.n.Load() == 0 {
		t.Fatal("clock never ticked")
	}
}

func TestClock_RejectsBadInterval(t *testing.T) {
	c := NewClock(&countingTicker{}, 0)
	if err := c.Run(context.Background()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestClock_DrivesEngine(t *testing.T) {
	e := newEngine(t, lowBands())
	c := NewClock(e, testInterval)

	updates := make(chan Update, 16)
	c.Subscribe(func(u Update) {
		select {
		case updates <- u:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx) //nolint:errcheck

	select {
	case u := <-updates:
		if len(u.Fired) != 3 {
			t.Errorf("fired: got %d, want 3", len(u.Fired))
		}
		if len(u.Snapshot.History) != 97 {
			t.Errorf("history: got %d, want 97", len(u.Snapshot.History))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update from clock")
	}
}
