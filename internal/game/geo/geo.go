// Package geo answers distance and terrain questions about world entities.
package geo

import (
	"math"
	"sort"

	"github.com/cory-johannsen/warband/internal/game/world"
)

// Geography is the distance and terrain collaborator used by resolvers.
type Geography interface {
	InteractionDistance(c *world.Character) float64
	ActionDistance(s *world.Settlement) float64
	DistanceToCharacter(a, b *world.Character) float64
	DistanceToSettlement(c *world.Character, s *world.Settlement) float64
	LocalBiome(c *world.Character) world.Biome
	CharactersNear(c *world.Character, maxDistance float64) []*world.Character
}

// Config tunes the Euclidean geography.
type Config struct {
	// InteractionBase is the interaction range of a lone character.
	InteractionBase float64 `mapstructure:"interaction_base"`
	// ActionRange is how far from a settlement's center actions on it reach.
	ActionRange float64 `mapstructure:"action_range"`
}

// DefaultConfig returns the ranges used when none are configured.
func DefaultConfig() Config {
	return Config{InteractionBase: 50, ActionRange: 200}
}

// Euclid measures straight-line distances on the map.
type Euclid struct {
	state *world.State
	cfg   Config
}

// New returns a Euclid over state.
//
// Precondition: state must be non-nil.
func New(state *world.State, cfg Config) *Euclid {
	if cfg.InteractionBase <= 0 {
		cfg.InteractionBase = DefaultConfig().InteractionBase
	}
	if cfg.ActionRange <= 0 {
		cfg.ActionRange = DefaultConfig().ActionRange
	}
	return &Euclid{state: state, cfg: cfg}
}

// InteractionDistance grows with the square root of the character's active
// soldiers: larger forces screen a wider area.
func (e *Euclid) InteractionDistance(c *world.Character) float64 {
	return e.cfg.InteractionBase + math.Sqrt(float64(c.ActiveSoldiers()))
}

// ActionDistance returns the configured settlement action range.
func (e *Euclid) ActionDistance(_ *world.Settlement) float64 {
	return e.cfg.ActionRange
}

// DistanceToCharacter is zero for two characters inside the same settlement.
func (e *Euclid) DistanceToCharacter(a, b *world.Character) float64 {
	if a.Inside != 0 && a.Inside == b.Inside {
		return 0
	}
	return a.Location.Distance(b.Location)
}

// DistanceToSettlement is zero for a character inside s.
func (e *Euclid) DistanceToSettlement(c *world.Character, s *world.Settlement) float64 {
	if c.Inside == s.ID {
		return 0
	}
	return c.Location.Distance(s.Center)
}

// LocalBiome returns the biome of the settlement c is in, or of the nearest
// settlement within action range, or the default biome.
func (e *Euclid) LocalBiome(c *world.Character) world.Biome {
	if c.Inside != 0 {
		if s, ok := e.state.Settlement(c.Inside); ok {
			return e.state.Biome(s.Biome)
		}
	}
	var (
		best  *world.Settlement
		bestD = math.Inf(1)
	)
	for _, s := range e.state.Settlements() {
		d := c.Location.Distance(s.Center)
		if d <= e.cfg.ActionRange && d < bestD {
			best, bestD = s, d
		}
	}
	if best == nil {
		return world.DefaultBiome
	}
	return e.state.Biome(best.Biome)
}

// CharactersNear returns the active, free characters within maxDistance of c
// that share its inside/outside context, nearest first. c is excluded.
func (e *Euclid) CharactersNear(c *world.Character, maxDistance float64) []*world.Character {
	type hit struct {
		c *world.Character
		d float64
	}
	var hits []hit
	for _, o := range e.state.Characters() {
		if o.ID == c.ID || !o.Active || o.PrisonerOf != 0 {
			continue
		}
		if o.Inside != c.Inside {
			continue
		}
		d := e.DistanceToCharacter(c, o)
		if d > maxDistance {
			continue
		}
		hits = append(hits, hit{o, d})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	out := make([]*world.Character, len(hits))
	for i, h := range hits {
		out[i] = h.c
	}
	return out
}
