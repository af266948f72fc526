package action

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/warband/internal/game/world"
)

// Arena owns every pending action, keyed by ID, and records which actions
// changed since the last Drain so a persister can write them out.
//
// Relations between actions are stored as id adjacency: Supports/Opposes on
// the dependent action and the inverse Supporting/Opposing sets on the target.
//
// All methods are safe for concurrent use.
type Arena struct {
	mu      sync.RWMutex
	next    ID
	actions map[ID]*Action
	byChar  map[world.CharacterID]IDSet
	dirty   IDSet
	removed IDSet
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{
		actions: make(map[ID]*Action),
		byChar:  make(map[world.CharacterID]IDSet),
		dirty:   make(IDSet),
		removed: make(IDSet),
	}
}

// Load restores previously persisted actions without marking them dirty.
//
// Precondition: every action has a unique ID > 0.
// Postcondition: later Inserts receive ids greater than any loaded id.
func (ar *Arena) Load(actions []*Action) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	for _, a := range actions {
		if a.ID <= 0 {
			return fmt.Errorf("action: load: invalid id %d", a.ID)
		}
		if _, ok := ar.actions[a.ID]; ok {
			return fmt.Errorf("action: load: duplicate id %d", a.ID)
		}
		ar.store(a)
		if a.ID > ar.next {
			ar.next = a.ID
		}
	}
	for _, a := range actions {
		ar.link(a)
	}
	return nil
}

// Insert assigns a fresh ID to a, links its relations and stores it.
//
// Postcondition: a.ID > 0; a is dirty.
func (ar *Arena) Insert(a *Action) ID {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	ar.next++
	a.ID = ar.next
	ar.store(a)
	ar.link(a)
	ar.dirty.Add(a.ID)
	return a.ID
}

func (ar *Arena) store(a *Action) {
	if a.Supporting == nil {
		a.Supporting = make(IDSet)
	}
	if a.Opposing == nil {
		a.Opposing = make(IDSet)
	}
	ar.actions[a.ID] = a
	set, ok := ar.byChar[a.Character]
	if !ok {
		set = make(IDSet)
		ar.byChar[a.Character] = set
	}
	set.Add(a.ID)
}

func (ar *Arena) link(a *Action) {
	if t, ok := ar.actions[a.Supports]; ok && a.Supports != 0 {
		t.Supporting.Add(a.ID)
	}
	if t, ok := ar.actions[a.Opposes]; ok && a.Opposes != 0 {
		t.Opposing.Add(a.ID)
	}
}

// Put marks a as changed. Resolvers call Put after mutating an action.
//
// Postcondition: returns false when a is not in the arena.
func (ar *Arena) Put(a *Action) bool {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if _, ok := ar.actions[a.ID]; !ok {
		return false
	}
	ar.dirty.Add(a.ID)
	return true
}

// Get returns the action with id.
func (ar *Arena) Get(id ID) (*Action, bool) {
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	a, ok := ar.actions[id]
	return a, ok
}

// Remove deletes the action with id and unlinks every relation to it.
//
// Postcondition: returns false when id was not present.
func (ar *Arena) Remove(id ID) bool {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	a, ok := ar.actions[id]
	if !ok {
		return false
	}
	delete(ar.actions, id)
	if set := ar.byChar[a.Character]; set != nil {
		set.Remove(id)
		if len(set) == 0 {
			delete(ar.byChar, a.Character)
		}
	}
	if t, ok := ar.actions[a.Supports]; ok {
		t.Supporting.Remove(id)
	}
	if t, ok := ar.actions[a.Opposes]; ok {
		t.Opposing.Remove(id)
	}
	for sid := range a.Supporting {
		if s, ok := ar.actions[sid]; ok {
			s.Supports = 0
			ar.dirty.Add(sid)
		}
	}
	for oid := range a.Opposing {
		if o, ok := ar.actions[oid]; ok {
			o.Opposes = 0
			ar.dirty.Add(oid)
		}
	}
	ar.dirty.Remove(id)
	ar.removed.Add(id)
	return true
}

// ForCharacter returns the character's pending actions ordered by priority.
func (ar *Arena) ForCharacter(c world.CharacterID) []*Action {
	ar.mu.RLock()
	out := make([]*Action, 0, len(ar.byChar[c]))
	for id := range ar.byChar[c] {
		out = append(out, ar.actions[id])
	}
	ar.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// HasKind reports whether c has a pending action of any of kinds.
func (ar *Arena) HasKind(c world.CharacterID, kinds ...Kind) bool {
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	for id := range ar.byChar[c] {
		k := ar.actions[id].Kind
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
	}
	return false
}

// MaxPriority returns the highest priority among c's pending actions, or 0.
func (ar *Arena) MaxPriority(c world.CharacterID) int {
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	best := 0
	for id := range ar.byChar[c] {
		if p := ar.actions[id].Priority; p > best {
			best = p
		}
	}
	return best
}

// Due returns up to limit actions whose Complete is set and strictly before
// now, earliest Complete first (ties broken by ID).
//
// Postcondition: len(result) <= limit; every result satisfies Timer().Due(now).
func (ar *Arena) Due(now time.Time, limit int) []*Action {
	if limit <= 0 {
		return nil
	}
	ar.mu.RLock()
	var due []*Action
	for _, a := range ar.actions {
		if a.Timer().Due(now) {
			due = append(due, a)
		}
	}
	ar.mu.RUnlock()
	sort.Slice(due, func(i, j int) bool {
		if !due[i].Complete.Equal(*due[j].Complete) {
			return due[i].Complete.Before(*due[j].Complete)
		}
		return due[i].ID < due[j].ID
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due
}

// Pending returns every action ordered by ID.
func (ar *Arena) Pending() []*Action {
	ar.mu.RLock()
	out := make([]*Action, 0, len(ar.actions))
	for _, a := range ar.actions {
		out = append(out, a)
	}
	ar.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of pending actions.
func (ar *Arena) Len() int {
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	return len(ar.actions)
}

// Drain returns copies of every action changed since the last Drain and the
// ids removed since then, and clears both records.
func (ar *Arena) Drain() (changed []*Action, removed []ID) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	for _, id := range ar.dirty.Slice() {
		if a, ok := ar.actions[id]; ok {
			changed = append(changed, a.Clone())
		}
	}
	removed = ar.removed.Slice()
	ar.dirty = make(IDSet)
	ar.removed = make(IDSet)
	return changed, removed
}

// Restore re-marks the records returned by a failed Drain so the next Drain
// reports them again. Ids that were re-inserted since are not marked removed.
func (ar *Arena) Restore(changed []*Action, removed []ID) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	for _, a := range changed {
		if _, ok := ar.actions[a.ID]; ok {
			ar.dirty.Add(a.ID)
		}
	}
	for _, id := range removed {
		if _, ok := ar.actions[id]; !ok {
			ar.removed.Add(id)
		}
	}
}
