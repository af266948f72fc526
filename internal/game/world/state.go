package world

import (
	"fmt"
	"sort"
	"sync"
)

// State is the in-memory arena of world entities. Pointers it returns are
// live; callers mutate them only from the single resolution writer.
//
// All registration and lookup methods are safe for concurrent use.
type State struct {
	mu          sync.RWMutex
	characters  map[CharacterID]*Character
	settlements map[SettlementID]*Settlement
	realms      map[RealmID]*Realm
	sieges      map[SiegeID]*Siege
	biomes      map[string]Biome
	listings    map[int64]*Listing
	houses      map[HouseID]*House
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		characters:  make(map[CharacterID]*Character),
		settlements: make(map[SettlementID]*Settlement),
		realms:      make(map[RealmID]*Realm),
		sieges:      make(map[SiegeID]*Siege),
		biomes:      make(map[string]Biome),
		listings:    make(map[int64]*Listing),
		houses:      make(map[HouseID]*House),
	}
}

// AddCharacter registers c.
//
// Precondition: c.ID must be > 0 and unused.
func (s *State) AddCharacter(c *Character) error {
	if c.ID <= 0 {
		return fmt.Errorf("character %q: id must be > 0", c.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.characters[c.ID]; ok {
		return fmt.Errorf("duplicate character id %d", c.ID)
	}
	if c.Achievements == nil {
		c.Achievements = make(map[string]int)
	}
	s.characters[c.ID] = c
	return nil
}

// Character returns the character with id.
func (s *State) Character(id CharacterID) (*Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.characters[id]
	return c, ok
}

// Characters returns all characters ordered by id.
func (s *State) Characters() []*Character {
	s.mu.RLock()
	out := make([]*Character, 0, len(s.characters))
	for _, c := range s.characters {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddSettlement registers st.
//
// Precondition: st.ID must be > 0 and unused.
func (s *State) AddSettlement(st *Settlement) error {
	if st.ID <= 0 {
		return fmt.Errorf("settlement %q: id must be > 0", st.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settlements[st.ID]; ok {
		return fmt.Errorf("duplicate settlement id %d", st.ID)
	}
	s.settlements[st.ID] = st
	return nil
}

// Settlement returns the settlement with id.
func (s *State) Settlement(id SettlementID) (*Settlement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settlements[id]
	return st, ok
}

// Settlements returns all settlements ordered by id.
func (s *State) Settlements() []*Settlement {
	s.mu.RLock()
	out := make([]*Settlement, 0, len(s.settlements))
	for _, st := range s.settlements {
		out = append(out, st)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddRealm registers r.
func (s *State) AddRealm(r *Realm) error {
	if r.ID <= 0 {
		return fmt.Errorf("realm %q: id must be > 0", r.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.realms[r.ID]; ok {
		return fmt.Errorf("duplicate realm id %d", r.ID)
	}
	s.realms[r.ID] = r
	return nil
}

// Realm returns the realm with id.
func (s *State) Realm(id RealmID) (*Realm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.realms[id]
	return r, ok
}

// AddSiege registers sg.
//
// Precondition: sg.Settlement must already be registered.
func (s *State) AddSiege(sg *Siege) error {
	if sg.ID <= 0 {
		return fmt.Errorf("siege: id must be > 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settlements[sg.Settlement]; !ok {
		return fmt.Errorf("siege %d: unknown settlement %d", sg.ID, sg.Settlement)
	}
	if _, ok := s.sieges[sg.ID]; ok {
		return fmt.Errorf("duplicate siege id %d", sg.ID)
	}
	s.sieges[sg.ID] = sg
	return nil
}

// Siege returns the siege with id.
func (s *State) Siege(id SiegeID) (*Siege, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, ok := s.sieges[id]
	return sg, ok
}

// AddListing registers l.
func (s *State) AddListing(l *Listing) error {
	if l.ID <= 0 {
		return fmt.Errorf("listing %q: id must be > 0", l.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; ok {
		return fmt.Errorf("duplicate listing id %d", l.ID)
	}
	s.listings[l.ID] = l
	return nil
}

// Listing returns the listing with id.
func (s *State) Listing(id int64) (*Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	return l, ok
}

// Realms returns every realm ordered by id.
func (s *State) Realms() []*Realm {
	s.mu.RLock()
	out := make([]*Realm, 0, len(s.realms))
	for _, r := range s.realms {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddHouse registers h.
//
// Precondition: h.ID must be > 0 and unused.
func (s *State) AddHouse(h *House) error {
	if h.ID <= 0 {
		return fmt.Errorf("house %q: id must be > 0", h.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.houses[h.ID]; ok {
		return fmt.Errorf("duplicate house id %d", h.ID)
	}
	s.houses[h.ID] = h
	return nil
}

// House returns the house with id.
func (s *State) House(id HouseID) (*House, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.houses[id]
	return h, ok
}

// SetBiome registers or replaces a biome definition.
func (s *State) SetBiome(b Biome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.biomes[b.Name] = b
}

// Biome returns the named biome, falling back to DefaultBiome.
func (s *State) Biome(name string) Biome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.biomes[name]; ok {
		return b
	}
	return DefaultBiome
}

// EnterSettlement moves c inside st and to its center.
//
// Postcondition: returns false without change when either id is unknown.
func (s *State) EnterSettlement(c CharacterID, st SettlementID) bool {
	ch, ok := s.Character(c)
	if !ok {
		return false
	}
	settlement, ok := s.Settlement(st)
	if !ok {
		return false
	}
	ch.Inside = settlement.ID
	ch.Location = settlement.Center
	return true
}

// FreeEntourage releases every follower assigned to actionID and returns how
// many were released.
func (s *State) FreeEntourage(c CharacterID, actionID int64) int {
	ch, ok := s.Character(c)
	if !ok {
		return 0
	}
	n := 0
	for i := range ch.Entourage {
		if ch.Entourage[i].Action == actionID {
			ch.Entourage[i].Action = 0
			n++
		}
	}
	return n
}

// AddAchievement increments a counter on the character's record.
func (s *State) AddAchievement(c CharacterID, key string, n int) {
	ch, ok := s.Character(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch.Achievements == nil {
		ch.Achievements = make(map[string]int)
	}
	ch.Achievements[key] += n
}

// ReleasePrisoner frees prisoner from captor.
//
// Postcondition: prisoner.PrisonerOf == 0 and captor no longer lists prisoner.
func (s *State) ReleasePrisoner(captor, prisoner CharacterID) {
	if p, ok := s.Character(prisoner); ok {
		p.PrisonerOf = 0
	}
	cp, ok := s.Character(captor)
	if !ok {
		return
	}
	kept := cp.Prisoners[:0]
	for _, id := range cp.Prisoners {
		if id != prisoner {
			kept = append(kept, id)
		}
	}
	cp.Prisoners = kept
}
