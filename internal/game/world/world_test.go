package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/warband/internal/game/world"
)

const fixture = `
world:
  biomes:
    - {name: forest, spot: 0.5}
  realms:
    - {id: 1, name: Ostmark, ruler: 1}
  houses:
    - {id: 4, name: Varn, head: 1}
  settlements:
    - {id: 10, name: Karsk, owner: 1, realm: 1, center: {x: 10, y: 10}, biome: forest}
  sieges:
    - {id: 5, settlement: 10}
  characters:
    - id: 1
      name: Aldric
      location: {x: 10, y: 10}
      inside: 10
      house: 4
      soldiers:
        - {type: cavalry, count: 3}
        - {type: infantry, count: 2, wounded: true}
      entourage:
        - {id: 100, type: scholar, action: 7}
    - id: 2
      name: Brenna
      location: {x: 0, y: 0}
      prisoner_of: 1
      inactive: true
  listings:
    - id: 3
      name: enemies
      owner: 1
      members:
        - {character: 2, allowed: true}
`

func TestLoadBytes(t *testing.T) {
	s, err := world.LoadBytes([]byte(fixture))
	require.NoError(t, err)

	aldric, ok := s.Character(1)
	require.True(t, ok)
	assert.Len(t, aldric.Soldiers, 5)
	assert.Equal(t, 3, aldric.ActiveSoldiers())
	assert.Equal(t, 5, aldric.LivingSoldiers())
	assert.Equal(t, world.SettlementID(10), aldric.Inside)
	assert.True(t, aldric.Active)
	assert.Equal(t, []world.CharacterID{2}, aldric.Prisoners)

	brenna, ok := s.Character(2)
	require.True(t, ok)
	assert.False(t, brenna.Active)

	assert.Equal(t, 0.5, s.Biome("forest").Spot)
	assert.Equal(t, world.DefaultBiome, s.Biome("tundra"))

	_, ok = s.Siege(5)
	assert.True(t, ok)

	l, ok := s.Listing(3)
	require.True(t, ok)
	m, ok := l.Lookup(2)
	assert.True(t, ok)
	assert.True(t, m.Allowed)
	_, ok = l.Lookup(1)
	assert.False(t, ok)

	h, ok := s.House(aldric.House)
	require.True(t, ok)
	assert.Equal(t, world.CharacterID(1), h.Head)
	require.Len(t, s.Realms(), 1)
	assert.Equal(t, world.CharacterID(1), s.Realms()[0].Ruler)
}

func TestLoadBytes_RejectsUnknownReferences(t *testing.T) {
	_, err := world.LoadBytes([]byte(`
world:
  characters:
    - {id: 1, name: Ghost, inside: 99}
`))
	assert.Error(t, err)

	_, err = world.LoadBytes([]byte(`
world:
  sieges:
    - {id: 1, settlement: 3}
`))
	assert.Error(t, err)
}

func TestState_DuplicateIDs(t *testing.T) {
	s := world.NewState()
	require.NoError(t, s.AddCharacter(&world.Character{ID: 1}))
	assert.Error(t, s.AddCharacter(&world.Character{ID: 1}))
	assert.Error(t, s.AddCharacter(&world.Character{ID: 0}))
	require.NoError(t, s.AddHouse(&world.House{ID: 1}))
	assert.Error(t, s.AddHouse(&world.House{ID: 1}))
}

func TestState_FreeEntourageAndPrisoners(t *testing.T) {
	s, err := world.LoadBytes([]byte(fixture))
	require.NoError(t, err)

	assert.Equal(t, 1, s.FreeEntourage(1, 7))
	aldric, _ := s.Character(1)
	assert.Zero(t, aldric.Entourage[0].Action)

	s.ReleasePrisoner(1, 2)
	brenna, _ := s.Character(2)
	assert.Zero(t, brenna.PrisonerOf)
	assert.Empty(t, aldric.Prisoners)

	s.AddAchievement(1, "escapees", 1)
	assert.Equal(t, 1, aldric.Achievements["escapees"])
}

func TestState_EnterSettlement(t *testing.T) {
	s, err := world.LoadBytes([]byte(fixture))
	require.NoError(t, err)

	assert.True(t, s.EnterSettlement(2, 10))
	brenna, _ := s.Character(2)
	assert.Equal(t, world.SettlementID(10), brenna.Inside)
	assert.Equal(t, world.Point{X: 10, Y: 10}, brenna.Location)
	assert.False(t, s.EnterSettlement(2, 404))
}

func TestCharacter_NudgeCapsProgress(t *testing.T) {
	c := &world.Character{Travelling: true, Progress: 0.95}
	c.Nudge(0.1)
	assert.Equal(t, 1.0, c.Progress)

	idle := &world.Character{Progress: 0.2}
	idle.Nudge(0.5)
	assert.Equal(t, 0.2, idle.Progress)
}

func TestCentroid_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(rt, "n")
		pts := make([]world.Point, n)
		for i := range pts {
			pts[i] = world.Point{
				X: rapid.Float64Range(-1000, 1000).Draw(rt, "x"),
				Y: rapid.Float64Range(-1000, 1000).Draw(rt, "y"),
			}
		}
		c, ok := world.Centroid(pts)
		if !ok {
			rt.Fatal("centroid of non-empty set reported !ok")
		}
		minX, maxX := pts[0].X, pts[0].X
		for _, p := range pts {
			minX = min(minX, p.X)
			maxX = max(maxX, p.X)
		}
		if c.X < minX-1e-9 || c.X > maxX+1e-9 {
			rt.Fatalf("centroid x %v outside [%v, %v]", c.X, minX, maxX)
		}
	})
	_, ok := world.Centroid(nil)
	assert.False(t, ok)
}
