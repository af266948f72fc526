package request

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// DenyTimeout is how long a denied request is kept to stop repeat asks.
const DenyTimeout = 7 * 24 * time.Hour

// Manager stores requests and applies their approval or denial.
// All methods are safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	next     ID
	requests map[ID]*Request

	state   *world.State
	clock   clock.Clock
	history history.Sink
	journal history.Journal
	logger  *zap.Logger
}

// NewManager returns an empty Manager.
//
// Precondition: every argument must be non-nil.
func NewManager(state *world.State, clk clock.Clock, sink history.Sink, journal history.Journal, logger *zap.Logger) *Manager {
	return &Manager{
		requests: make(map[ID]*Request),
		state:    state,
		clock:    clk,
		history:  sink,
		journal:  journal,
		logger:   logger,
	}
}

// Submit stores a copy of r, stamping its creation time and id on both.
//
// Postcondition: r.ID > 0 on success; later changes to r are not seen by m.
func (m *Manager) Submit(r *Request) (ID, error) {
	if r == nil {
		return 0, fmt.Errorf("submit: %w", ErrInvalidRequest)
	}
	if err := r.validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	r.ID = m.next
	r.Created = m.clock.Now()
	m.requests[r.ID] = r.clone()
	m.logger.Debug("request submitted",
		zap.Int64("id", int64(r.ID)),
		zap.Stringer("kind", r.Kind),
		zap.Stringer("from", r.From),
		zap.Stringer("to", r.To),
	)
	return r.ID, nil
}

// Get returns a copy of the request with id.
func (m *Manager) Get(id ID) (*Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

// Len returns the number of stored requests.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Manageable lists copies of the pending or accepted requests addressed to c or to
// anything c controls, ordered by id.
func (m *Manager) Manageable(c world.CharacterID) []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Request
	for _, r := range m.requests {
		if r.Accepted != nil && !*r.Accepted {
			continue
		}
		if m.controls(c, r.To) {
			out = append(out, r.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// controls reports whether c may act for p.
func (m *Manager) controls(c world.CharacterID, p Party) bool {
	switch p := p.(type) {
	case CharacterParty:
		return p.ID == c
	case SettlementParty:
		s, ok := m.state.Settlement(p.ID)
		return ok && s.Owner == c
	case RealmParty:
		r, ok := m.state.Realm(p.ID)
		return ok && r.Ruler == c
	case HouseParty:
		h, ok := m.state.House(p.ID)
		return ok && h.Head == c
	}
	return false
}

// Approve applies request id on behalf of by.
//
// Precondition: by must control the request's To party.
// Postcondition: soldier.food requests stay stored as accepted until they
// expire; house.join requests are removed.
func (m *Manager) Approve(id ID, by world.CharacterID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, from, err := m.decidable(id, by)
	if err != nil {
		return err
	}
	switch to := r.To.(type) {
	case SettlementParty:
		s, ok := m.state.Settlement(to.ID)
		if !ok {
			return fmt.Errorf("approving request %d: settlement %d: %w", id, to.ID, ErrInvalidRequest)
		}
		from.SoldierFood = s.ID
		m.history.LogEvent(history.OfSettlement(s.ID), "event.military.supplier.food.start",
			history.Params{"%link-character%": from.ID}, history.Low, true, 0)
		m.history.LogEvent(history.OfCharacter(from.ID), "event.military.supplied.food.start",
			history.Params{"%link-character%": s.Owner, "%link-settlement%": s.ID}, history.Low, true, 0)
		accepted := true
		r.Accepted = &accepted
	case HouseParty:
		from.House = to.ID
		m.journal.OpenLog(history.OfHouse(to.ID), from.ID)
		m.history.LogEvent(history.OfHouse(to.ID), "event.house.newmember",
			history.Params{"%link-character%": from.ID}, history.Medium, true, 0)
		m.history.LogEvent(history.OfCharacter(from.ID), "event.character.joinhouse.approved",
			history.Params{"%link-house%": to.ID}, history.Ultra, true, 0)
		delete(m.requests, id)
	}
	m.logger.Info("request approved",
		zap.Int64("id", int64(id)),
		zap.Stringer("kind", r.Kind),
		zap.Int64("by", int64(by)),
	)
	return nil
}

// Deny refuses request id on behalf of by.
//
// Postcondition: soldier.food requests are kept as denied for DenyTimeout;
// house.join requests are removed.
func (m *Manager) Deny(id ID, by world.CharacterID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, from, err := m.decidable(id, by)
	if err != nil {
		return err
	}
	switch to := r.To.(type) {
	case SettlementParty:
		m.history.LogEvent(history.OfCharacter(from.ID), "event.military.supplied.food.rejected",
			history.Params{"%link-settlement%": to.ID}, history.Low, true, 0)
		denied := false
		r.Accepted = &denied
		r.Expires = clock.At(m.clock.Now(), DenyTimeout)
	case HouseParty:
		m.history.LogEvent(history.OfCharacter(from.ID), "event.character.joinhouse.denied",
			history.Params{"%link-house%": to.ID}, history.High, true, 0)
		delete(m.requests, id)
	}
	m.logger.Info("request denied",
		zap.Int64("id", int64(id)),
		zap.Stringer("kind", r.Kind),
		zap.Int64("by", int64(by)),
	)
	return nil
}

// decidable looks up a pending request that by may decide and its
// requesting character.
func (m *Manager) decidable(id ID, by world.CharacterID) (*Request, *world.Character, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, nil, fmt.Errorf("request %d: %w", id, ErrNotFound)
	}
	if !r.Pending() {
		return nil, nil, fmt.Errorf("request %d: %w", id, ErrDecided)
	}
	if !m.controls(by, r.To) {
		return nil, nil, fmt.Errorf("request %d by %d: %w", id, by, ErrNotAuthorized)
	}
	fp, ok := r.From.(CharacterParty)
	if !ok {
		return nil, nil, fmt.Errorf("request %d from %s: %w", id, r.From, ErrInvalidRequest)
	}
	from, ok := m.state.Character(fp.ID)
	if !ok {
		return nil, nil, fmt.Errorf("request %d: character %d: %w", id, fp.ID, ErrInvalidRequest)
	}
	return r, from, nil
}

// Purge drops decided requests whose expiry has passed and returns how many
// were removed.
func (m *Manager) Purge(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.requests {
		if !r.Pending() && r.Expired(now) {
			delete(m.requests, id)
			n++
		}
	}
	if n > 0 {
		m.logger.Info("purged requests", zap.Int("count", n))
	}
	return n
}
