package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/warband/internal/game/geo"
	"github.com/cory-johannsen/warband/internal/game/world"
)

func newState(t *testing.T) *world.State {
	t.Helper()
	s := world.NewState()
	s.SetBiome(world.Biome{Name: "forest", Spot: 0.5})
	require.NoError(t, s.AddSettlement(&world.Settlement{ID: 1, Name: "Ashford", Center: world.Point{X: 0, Y: 0}, Biome: "forest"}))
	for _, c := range []*world.Character{
		{ID: 1, Name: "a", Active: true, Location: world.Point{X: 10, Y: 0}},
		{ID: 2, Name: "b", Active: true, Location: world.Point{X: 13, Y: 4}},
		{ID: 3, Name: "c", Active: true, Location: world.Point{X: 11, Y: 0}},
		{ID: 4, Name: "d", Active: false, Location: world.Point{X: 10, Y: 1}},
		{ID: 5, Name: "e", Active: true, Location: world.Point{X: 10, Y: 1}, PrisonerOf: 1},
		{ID: 6, Name: "f", Active: true, Location: world.Point{X: 0, Y: 0}, Inside: 1},
		{ID: 7, Name: "g", Active: true, Location: world.Point{X: 900, Y: 900}},
	} {
		require.NoError(t, s.AddCharacter(c))
	}
	return s
}

func TestEuclid_CharactersNear(t *testing.T) {
	s := newState(t)
	g := geo.New(s, geo.DefaultConfig())
	me, _ := s.Character(1)

	near := g.CharactersNear(me, 6)
	ids := make([]world.CharacterID, len(near))
	for i, c := range near {
		ids[i] = c.ID
	}
	assert.Equal(t, []world.CharacterID{3, 2}, ids)
}

func TestEuclid_Distances(t *testing.T) {
	s := newState(t)
	g := geo.New(s, geo.DefaultConfig())
	a, _ := s.Character(1)
	b, _ := s.Character(2)
	in, _ := s.Character(6)
	st, _ := s.Settlement(1)

	assert.InDelta(t, 5.0, g.DistanceToCharacter(a, b), 1e-9)
	assert.InDelta(t, 10.0, g.DistanceToSettlement(a, st), 1e-9)
	assert.Zero(t, g.DistanceToSettlement(in, st))
	assert.Equal(t, 200.0, g.ActionDistance(st))
}

func TestEuclid_InteractionDistanceGrowsWithArmy(t *testing.T) {
	g := geo.New(world.NewState(), geo.Config{InteractionBase: 10})
	c := &world.Character{}
	base := g.InteractionDistance(c)
	for i := 0; i < 16; i++ {
		c.Soldiers = append(c.Soldiers, world.Soldier{Alive: true})
	}
	assert.Equal(t, 10.0, base)
	assert.Equal(t, 14.0, g.InteractionDistance(c))
}

func TestEuclid_LocalBiome(t *testing.T) {
	s := newState(t)
	g := geo.New(s, geo.DefaultConfig())
	near, _ := s.Character(1)
	far, _ := s.Character(7)

	assert.Equal(t, "forest", g.LocalBiome(near).Name)
	assert.Equal(t, world.DefaultBiome, g.LocalBiome(far))
}
