package alerts

import (
	"fmt"
	"sync"

	"github.com/twinpulse/twinpulse/pkg/types"
)

// DefaultLogCap is the number of alerts retained.
const DefaultLogCap = 20

// Log is the ordered alert log, newest first.
//
// Log is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []types.Alert
	cap     int
}

// NewLog returns an empty log that retains at most capacity alerts.
func NewLog(capacity int) (*Log, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("alerts: log capacity must be positive, got %d", capacity)
	}
	return &Log{cap: capacity}, nil
}

// Record prepends fresh in the given order and truncates the log to its
// capacity, dropping the oldest entries. It returns the number dropped.
func (l *Log) Record(fresh []types.Alert) int {
	if len(fresh) == 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make([]types.Alert, 0, len(fresh)+len(l.entries))
	merged = append(merged, fresh...)
	merged = append(merged, l.entries...)

	dropped := 0
	if len(merged) > l.cap {
		dropped = len(merged) - l.cap
		merged = merged[:l.cap]
	}
	l.entries = merged
	return dropped
}

// Dismiss removes the alert with the given id. An unknown id is a no-op.
// It reports whether an alert was removed.
func (l *Log) Dismiss(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, a := range l.entries {
		if a.ID == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Alerts returns a copy of the log, newest first.
func (l *Log) Alerts() []types.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Alert, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of alerts held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Cap returns the retention bound.
func (l *Log) Cap() int { return l.cap }
