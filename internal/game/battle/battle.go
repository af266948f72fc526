// Package battle holds combat instances and their sides. Combat outcome math is
// owned elsewhere; this package tracks who is fighting whom, where and when
// the preparation timer ends.
package battle

import (
	"time"

	"github.com/cory-johannsen/warband/internal/game/world"
)

// ID identifies a battle.
type ID int64

// GroupID identifies a battle group. The zero value means "none".
type GroupID int64

// Type classifies a battle.
type Type int

const (
	TypeField Type = iota
	TypeUrban
	TypeSkirmish
	TypeSiegeAssault
	TypeSiegeSortie
	TypeSortie
)

var typeNames = map[Type]string{
	TypeField:        "field",
	TypeUrban:        "urban",
	TypeSkirmish:     "skirmish",
	TypeSiegeAssault: "siegeassault",
	TypeSiegeSortie:  "siegesortie",
	TypeSortie:       "sortie",
}

// String returns the persisted name of the type.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseType maps a persisted name back to a Type.
//
// Postcondition: ok is false for unknown names.
func ParseType(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return TypeField, false
}

// Battle is one combat instance.
type Battle struct {
	ID       ID
	Type     Type
	Location world.Point
	Started  time.Time
	// InitialComplete is the preparation deadline computed at formation;
	// Complete may later move when participants join or leave.
	InitialComplete time.Time
	Complete        time.Time
	Groups          []GroupID
	Settlement      world.SettlementID
	Siege           world.SiegeID
}

// Group is one side of a battle.
type Group struct {
	ID         GroupID
	Battle     ID
	Attacker   bool
	Siege      world.SiegeID
	Characters []world.CharacterID
}

// Has reports whether c is a member of g.
func (g *Group) Has(c world.CharacterID) bool {
	for _, id := range g.Characters {
		if id == c {
			return true
		}
	}
	return false
}

// Add appends c unless already present.
//
// Postcondition: g.Has(c).
func (g *Group) Add(c world.CharacterID) {
	if !g.Has(c) {
		g.Characters = append(g.Characters, c)
	}
}

// Remove drops c if present and reports whether it was.
func (g *Group) Remove(c world.CharacterID) bool {
	for i, id := range g.Characters {
		if id == c {
			g.Characters = append(g.Characters[:i], g.Characters[i+1:]...)
			return true
		}
	}
	return false
}
