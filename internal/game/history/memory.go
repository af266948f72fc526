package history

import (
	"sync"
	"time"

	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/game/world"
)

type accessKey struct {
	subject Subject
	reader  world.CharacterID
}

type access struct {
	from   int
	until  int
	closed bool
}

// Memory is an in-process Sink and Journal. It is the default journal for
// the action server and the recording sink in tests.
//
// All methods are safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	clock  clock.Clock
	cycle  int
	events []Event
	access map[accessKey]*access
}

// NewMemory returns an empty Memory journal stamped by clk.
//
// Precondition: clk must be non-nil.
func NewMemory(clk clock.Clock) *Memory {
	return &Memory{clock: clk, access: make(map[accessKey]*access)}
}

// SetCycle sets the game cycle that new events are stamped with.
func (m *Memory) SetCycle(cycle int) {
	m.mu.Lock()
	m.cycle = cycle
	m.mu.Unlock()
}

// Cycle returns the current game cycle.
func (m *Memory) Cycle() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cycle
}

// LogEvent appends an event stamped with the current cycle and time.
func (m *Memory) LogEvent(subject Subject, key string, params Params, severity Severity, notify bool, expiryHours int) {
	now := m.clock.Now()
	ev := Event{
		Subject:  subject,
		Key:      key,
		Params:   params,
		Severity: severity,
		Notify:   notify,
		At:       now,
	}
	if expiryHours > 0 {
		ev.Expires = clock.At(now, time.Duration(expiryHours)*time.Hour)
	}
	m.mu.Lock()
	ev.Cycle = m.cycle
	m.events = append(m.events, ev)
	m.mu.Unlock()
}

// Events returns a copy of every event logged for subject, oldest first.
func (m *Memory) Events(subject Subject) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, ev := range m.events {
		if ev.Subject == subject {
			out = append(out, ev)
		}
	}
	return out
}

// Keys returns the event keys logged for subject, oldest first.
func (m *Memory) Keys(subject Subject) []string {
	evs := m.Events(subject)
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Key
	}
	return out
}

// OpenLog grants reader access from the current cycle.
func (m *Memory) OpenLog(subject Subject, reader world.CharacterID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := accessKey{subject, reader}
	if a, ok := m.access[k]; ok && !a.closed {
		return
	}
	m.access[k] = &access{from: m.cycle}
}

// CloseLog ends reader access at the current cycle.
func (m *Memory) CloseLog(subject Subject, reader world.CharacterID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.access[accessKey{subject, reader}]; ok && !a.closed {
		a.closed = true
		a.until = m.cycle
	}
}

// Readable reports whether reader currently has an open window on subject.
func (m *Memory) Readable(subject Subject, reader world.CharacterID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.access[accessKey{subject, reader}]
	return ok && !a.closed
}

// AccessFrom returns the first cycle visible to reader.
func (m *Memory) AccessFrom(subject Subject, reader world.CharacterID) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.access[accessKey{subject, reader}]
	if !ok {
		return 0, false
	}
	return a.from, true
}

// SetAccessFrom moves reader's window start, creating the window if needed.
func (m *Memory) SetAccessFrom(subject Subject, reader world.CharacterID, cycle int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := accessKey{subject, reader}
	a, ok := m.access[k]
	if !ok {
		a = &access{}
		m.access[k] = a
	}
	a.from = cycle
}

// PreviousCycle returns the latest event cycle before the given one.
func (m *Memory) PreviousCycle(subject Subject, before int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	best, found := 0, false
	for _, ev := range m.events {
		if ev.Subject != subject || ev.Cycle >= before {
			continue
		}
		if !found || ev.Cycle > best {
			best, found = ev.Cycle, true
		}
	}
	return best, found
}
