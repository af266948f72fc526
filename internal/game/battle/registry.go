package battle

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/cory-johannsen/warband/internal/game/world"
)

// Registry stores battles and groups in memory.
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	nextB   ID
	nextG   GroupID
	battles map[ID]*Battle
	groups  map[GroupID]*Group
	// version counts mutations so persistence can skip unchanged registries.
	version uint64
}

// Snapshot is a deep copy of the registry at one version.
type Snapshot struct {
	Version uint64
	Battles []Battle
	Groups  []Group
}

// NewRegistry creates an empty Registry.
//
// Postcondition: Returns a non-nil Registry ready for use.
func NewRegistry() *Registry {
	return &Registry{
		battles: make(map[ID]*Battle),
		groups:  make(map[GroupID]*Group),
	}
}

// NewGroup registers a detached group, such as a siege side waiting for its
// battle.
//
// Postcondition: returned group has a fresh ID and Battle == 0.
func (r *Registry) NewGroup(attacker bool, members ...world.CharacterID) *Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextG++
	r.version++
	g := &Group{ID: r.nextG, Attacker: attacker}
	for _, c := range members {
		g.Add(c)
	}
	r.groups[g.ID] = g
	return g
}

// AddBattle stores b under a fresh ID.
//
// Postcondition: b.ID > 0.
func (r *Registry) AddBattle(b *Battle) ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextB++
	r.version++
	b.ID = r.nextB
	r.battles[b.ID] = b
	return b.ID
}

// Attach makes g a side of b.
//
// Precondition: both are registered.
func (r *Registry) Attach(b *Battle, g *Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.battles[b.ID]; !ok {
		return fmt.Errorf("battle %d not registered", b.ID)
	}
	if _, ok := r.groups[g.ID]; !ok {
		return fmt.Errorf("group %d not registered", g.ID)
	}
	g.Battle = b.ID
	r.version++
	for _, id := range b.Groups {
		if id == g.ID {
			return nil
		}
	}
	b.Groups = append(b.Groups, g.ID)
	return nil
}

// Battle returns the battle with id.
func (r *Registry) Battle(id ID) (*Battle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.battles[id]
	return b, ok
}

// Group returns the group with id.
func (r *Registry) Group(id GroupID) (*Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	return g, ok
}

// Groups returns the groups of b in order.
func (r *Registry) Groups(b *Battle) []*Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Group, 0, len(b.Groups))
	for _, id := range b.Groups {
		if g, ok := r.groups[id]; ok {
			out = append(out, g)
		}
	}
	return out
}

// Enemy returns the opposing group in the same battle: the first group whose
// Attacker flag differs from g's, or failing that any other group.
//
// Postcondition: ok is false when g is detached or alone in its battle.
func (r *Registry) Enemy(id GroupID) (*Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, false
	}
	b, ok := r.battles[g.Battle]
	if !ok {
		return nil, false
	}
	var fallback *Group
	for _, oid := range b.Groups {
		if oid == id {
			continue
		}
		other, ok := r.groups[oid]
		if !ok {
			continue
		}
		if other.Attacker != g.Attacker {
			return other, true
		}
		if fallback == nil {
			fallback = other
		}
	}
	return fallback, fallback != nil
}

// GroupsOf returns every attached group that c belongs to, ordered by id.
func (r *Registry) GroupsOf(c world.CharacterID) []*Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Group
	for id := GroupID(1); id <= r.nextG; id++ {
		g, ok := r.groups[id]
		if ok && g.Battle != 0 && g.Has(c) {
			out = append(out, g)
		}
	}
	return out
}

// InBattle reports whether c belongs to any attached group.
func (r *Registry) InBattle(c world.CharacterID) bool {
	return len(r.GroupsOf(c)) > 0
}

// Join adds c to the group.
func (r *Registry) Join(c world.CharacterID, id GroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("group %d not found", id)
	}
	g.Add(c)
	r.version++
	return nil
}

// RemoveFromGroup drops c from the group.
func (r *Registry) RemoveFromGroup(c world.CharacterID, id GroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("group %d not found", id)
	}
	if !g.Remove(c) {
		return fmt.Errorf("character %d is not in group %d", c, id)
	}
	r.version++
	return nil
}

// End removes a concluded battle and its groups.
func (r *Registry) End(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.battles[id]
	if !ok {
		return
	}
	for _, gid := range b.Groups {
		delete(r.groups, gid)
	}
	delete(r.battles, id)
	r.version++
}

// Version returns the mutation counter.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Snapshot copies every battle and group, ordered by id.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := Snapshot{
		Version: r.version,
		Battles: make([]Battle, 0, len(r.battles)),
		Groups:  make([]Group, 0, len(r.groups)),
	}
	for _, b := range r.battles {
		cp := *b
		cp.Groups = slices.Clone(b.Groups)
		snap.Battles = append(snap.Battles, cp)
	}
	for _, g := range r.groups {
		cp := *g
		cp.Characters = slices.Clone(g.Characters)
		snap.Groups = append(snap.Groups, cp)
	}
	slices.SortFunc(snap.Battles, func(a, b Battle) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.Groups, func(a, b Group) int { return cmp.Compare(a.ID, b.ID) })
	return snap
}

// Restore loads persisted battles and groups into an empty registry. Fresh
// ids continue above the highest restored ones.
//
// Precondition: the registry is empty; ids are unique and > 0.
func (r *Registry) Restore(battles []Battle, groups []Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.battles) > 0 || len(r.groups) > 0 {
		return fmt.Errorf("battle: restore into non-empty registry")
	}
	for i := range battles {
		b := battles[i]
		if b.ID <= 0 {
			return fmt.Errorf("battle: restore: invalid battle id %d", b.ID)
		}
		if _, ok := r.battles[b.ID]; ok {
			return fmt.Errorf("battle: restore: duplicate battle id %d", b.ID)
		}
		b.Groups = slices.Clone(b.Groups)
		r.battles[b.ID] = &b
		r.nextB = max(r.nextB, b.ID)
	}
	for i := range groups {
		g := groups[i]
		if g.ID <= 0 {
			return fmt.Errorf("battle: restore: invalid group id %d", g.ID)
		}
		if _, ok := r.groups[g.ID]; ok {
			return fmt.Errorf("battle: restore: duplicate group id %d", g.ID)
		}
		if g.Battle != 0 {
			if _, ok := r.battles[g.Battle]; !ok {
				return fmt.Errorf("battle: restore: group %d in unknown battle %d", g.ID, g.Battle)
			}
		}
		g.Characters = slices.Clone(g.Characters)
		r.groups[g.ID] = &g
		r.nextG = max(r.nextG, g.ID)
	}
	return nil
}
