package performance

import (
	"sync"
	"time"
)

// Tracker manages performance markers and keeps a bounded history of
// completed operations.
type Tracker struct {
	markers    []*Marker
	maxMarkers int
	mu         sync.RWMutex
	started    time.Time
}

// NewTracker creates a new performance tracker.
func NewTracker() *Tracker {
	return &Tracker{
		maxMarkers: 1000,
		started:    time.Now(),
	}
}

// StartOperation begins tracking an operation and returns its marker.
func (t *Tracker) StartOperation(operation string) *Marker {
	marker := &Marker{
		Operation: operation,
		StartTime: time.Now(),
	}

	t.mu.Lock()
	t.markers = append(t.markers, marker)
	if len(t.markers) > t.maxMarkers {
		t.markers = t.markers[len(t.markers)-t.maxMarkers:]
	}
	t.mu.Unlock()

	return marker
}

// RecentMarkers returns up to n most recent markers, newest last.
func (t *Tracker) RecentMarkers(n int) []*Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n > len(t.markers) {
		n = len(t.markers)
	}
	out := make([]*Marker, n)
	copy(out, t.markers[len(t.markers)-n:])
	return out
}

// Uptime returns how long the tracker has been running.
func (t *Tracker) Uptime() time.Duration {
	return time.Since(t.started)
}
