// Package clock provides the time source and timer value types used by the
// action queue and battle formation.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current wall-clock time.
//
// Implementations MUST be safe for concurrent use.
type Clock interface {
	Now() time.Time
}

// System is a Clock backed by time.Now.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }

// Manual is a Clock that only moves when told to. It is used by tests and by
// offline replays that need deterministic timestamps.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock frozen at start.
//
// Postcondition: Now() == start until Advance or Set is called.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the frozen time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
//
// Precondition: d >= 0.
func (m *Manual) Advance(d time.Duration) {
	if d < 0 {
		panic("clock.Manual.Advance: negative duration")
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set jumps the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
