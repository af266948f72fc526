// Package world provides the entities the action queue reads and mutates:
// characters with their soldiers and entourage, settlements, realms, sieges and
// biomes.
package world

import (
	"fmt"
	"math"
)

// CharacterID identifies a character.
type CharacterID int64

// SettlementID identifies a settlement. The zero value means "none".
type SettlementID int64

// RealmID identifies a realm. The zero value means "none".
type RealmID int64

// SiegeID identifies a siege. The zero value means "none".
type SiegeID int64

// HouseID identifies a noble house. The zero value means "none".
type HouseID int64

// Point is a 2D map coordinate.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// String renders the point as "(x, y)".
func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Centroid returns the arithmetic mean of points.
//
// Postcondition: ok is false iff points is empty.
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}, true
}

// SoldierType classifies a soldier for disengage timing.
type SoldierType string

const (
	Infantry      SoldierType = "infantry"
	HeavyInfantry SoldierType = "heavy infantry"
	Archer        SoldierType = "archer"
	Cavalry       SoldierType = "cavalry"
	MountedArcher SoldierType = "mounted archer"
)

// Soldier is one member of a character's armed following.
type Soldier struct {
	ID      int64       `yaml:"id"`
	Type    SoldierType `yaml:"type"`
	Wounded bool        `yaml:"wounded"`
	Alive   bool        `yaml:"alive"`
}

// Active reports whether the soldier can fight: alive and unwounded.
func (s Soldier) Active() bool { return s.Alive && !s.Wounded }

// Entourage is a non-combatant follower. Action holds the id of the action the
// follower is assigned to, or 0 when idle.
type Entourage struct {
	ID     int64  `yaml:"id"`
	Type   string `yaml:"type"`
	Action int64  `yaml:"action"`
}

// Character is a player- or system-controlled actor.
type Character struct {
	ID       CharacterID  `yaml:"id"`
	Name     string       `yaml:"name"`
	Location Point        `yaml:"location"`
	Inside   SettlementID `yaml:"inside"`
	// System marks special accounts; "GM" characters are never valid victims.
	System    string      `yaml:"system"`
	Active    bool        `yaml:"active"`
	Soldiers  []Soldier   `yaml:"soldiers"`
	Entourage []Entourage `yaml:"entourage"`

	// Travelling is true while the character follows a route; Progress is the
	// fraction of the route completed and Speed the per-day travel fraction.
	Travelling   bool    `yaml:"travelling"`
	Progress     float64 `yaml:"progress"`
	Speed        float64 `yaml:"speed"`
	TravelLocked bool    `yaml:"travel_locked"`

	PrisonerOf CharacterID   `yaml:"prisoner_of"`
	Prisoners  []CharacterID `yaml:"prisoners"`

	House       HouseID      `yaml:"house"`
	SoldierFood SettlementID `yaml:"soldier_food"`

	Achievements map[string]int `yaml:"-"`
}

// IsGM reports whether the character is a game-master account.
func (c *Character) IsGM() bool { return c.System == "GM" }

// ActiveSoldiers returns the number of soldiers able to fight.
func (c *Character) ActiveSoldiers() int {
	n := 0
	for _, s := range c.Soldiers {
		if s.Active() {
			n++
		}
	}
	return n
}

// LivingSoldiers returns the number of soldiers still alive, wounded or not.
func (c *Character) LivingSoldiers() int {
	n := 0
	for _, s := range c.Soldiers {
		if s.Alive {
			n++
		}
	}
	return n
}

// Nudge moves a travelling character along its route by frac, capping
// Progress at 1. Characters that are not travelling are unchanged.
//
// Postcondition: Progress <= 1.
func (c *Character) Nudge(frac float64) {
	if !c.Travelling {
		return
	}
	c.Progress = math.Min(1.0, c.Progress+frac)
}

// Settlement is a place that can be owned, taken, renamed and granted.
type Settlement struct {
	ID     SettlementID `yaml:"id"`
	Name   string       `yaml:"name"`
	Owner  CharacterID  `yaml:"owner"`
	Realm  RealmID      `yaml:"realm"`
	Center Point        `yaml:"center"`
	Biome  string       `yaml:"biome"`
	// Defenders is the settlement's own garrison strength used by time-to-take.
	Defenders int `yaml:"defenders"`
}

// Realm is a political entity settlements may belong to.
type Realm struct {
	ID    RealmID     `yaml:"id"`
	Name  string      `yaml:"name"`
	Ruler CharacterID `yaml:"ruler"`
}

// House is a noble family headed by one character.
type House struct {
	ID   HouseID     `yaml:"id"`
	Name string      `yaml:"name"`
	Head CharacterID `yaml:"head"`
}

// Siege anchors siege-sourced battles to a besieged settlement.
type Siege struct {
	ID         SiegeID      `yaml:"id"`
	Settlement SettlementID `yaml:"settlement"`
}

// Biome is a terrain type. Spot scales how easily forces are seen; a value of
// 1 is neutral, higher values make evasion harder.
type Biome struct {
	Name string  `yaml:"name"`
	Spot float64 `yaml:"spot"`
}

// DefaultBiome is used for locations with no explicit biome.
var DefaultBiome = Biome{Name: "grass", Spot: 1}

// ListingMember is one entry of a permission listing. Allowed false records
// an explicit exclusion.
type ListingMember struct {
	Character CharacterID `yaml:"character"`
	Allowed   bool        `yaml:"allowed"`
}

// Listing is a named list of characters used by standing orders such as
// military.block.
type Listing struct {
	ID      int64           `yaml:"id"`
	Name    string          `yaml:"name"`
	Owner   CharacterID     `yaml:"owner"`
	Members []ListingMember `yaml:"members"`
}

// Lookup returns the entry for c.
func (l *Listing) Lookup(c CharacterID) (ListingMember, bool) {
	for _, m := range l.Members {
		if m.Character == c {
			return m, true
		}
	}
	return ListingMember{}, false
}
