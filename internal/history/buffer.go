package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/twinpulse/twinpulse/pkg/types"
)

// Default sizing: one anchor sample plus 96 quarter-hour intervals (24h).
const (
	DefaultCapacity    = 97
	DefaultSeedSpacing = 15 * time.Minute
)

// GenerateFunc produces a reading for a timestamp.
type GenerateFunc func(time.Time) types.SensorReading

// Buffer is a FIFO of readings bounded by capacity.
//
// All exported methods are safe for concurrent use.
type Buffer struct {
	mu       sync.RWMutex
	data     []types.SensorReading
	capacity int
	maxAge   time.Duration // 0 disables the age bound
}

// New returns an empty Buffer. capacity must be positive and maxAge
// non-negative.
func New(capacity int, maxAge time.Duration) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("history: capacity must be positive, got %d", capacity)
	}
	if maxAge < 0 {
		return nil, fmt.Errorf("history: max age must not be negative, got %v", maxAge)
	}
	return &Buffer{
		data:     make([]types.SensorReading, 0, capacity),
		capacity: capacity,
		maxAge:   maxAge,
	}, nil
}

// Seed replaces the contents with capacity readings at now-(capacity-1)*spacing,
// ..., now-spacing, now. gen is called once per timestamp, oldest first.
func (b *Buffer) Seed(now time.Time, spacing time.Duration, gen GenerateFunc) {
	seeded := make([]types.SensorReading, 0, b.capacity)
	for i := b.capacity - 1; i >= 0; i-- {
		seeded = append(seeded, gen(now.Add(-time.Duration(i)*spacing)))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = seeded
}

// Append adds r as the newest reading and evicts the oldest readings until
// the buffer is back within its bounds. It returns the number evicted.
func (b *Buffer) Append(r types.SensorReading) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, r)
	drop := 0
	if over := len(b.data) - b.capacity; over > 0 {
		drop = over
	}
	if b.maxAge > 0 {
		cutoff := r.Timestamp.Add(-b.maxAge)
		for drop < len(b.data)-1 && b.data[drop].Timestamp.Before(cutoff) {
			drop++
		}
	}
	if drop > 0 {
		// Copy down so the backing array does not grow without bound.
		n := copy(b.data, b.data[drop:])
		b.data = b.data[:n]
	}
	return drop
}

// Readings returns a copy of the buffer, oldest first.
func (b *Buffer) Readings() []types.SensorReading {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]types.SensorReading, len(b.data))
	copy(out, b.data)
	return out
}

// Latest returns the newest reading and false when the buffer is empty.
func (b *Buffer) Latest() (types.SensorReading, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.data) == 0 {
		return types.SensorReading{}, false
	}
	return b.data[len(b.data)-1], true
}

// Len returns the number of readings held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Capacity returns the entry bound.
func (b *Buffer) Capacity() int { return b.capacity }
