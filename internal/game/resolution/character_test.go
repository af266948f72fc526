package resolution_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// prison puts character 2 in the custody of character 1 and queues an escape.
func prison(t *testing.T, h *harness) (*world.Character, *world.Character, *action.Action) {
	t.Helper()
	captor := h.character(t, 1, world.Point{}, 5)
	prisoner := h.character(t, 2, world.Point{}, 0)
	captor.Prisoners = []world.CharacterID{2}
	prisoner.PrisonerOf = 1
	escape := h.enqueue(t, &action.Action{Kind: action.KindCharacterEscape, Character: 2, Complete: h.at(time.Hour)})
	h.clk.Advance(2 * time.Hour)
	return captor, prisoner, escape
}

func TestEscape_Success(t *testing.T) {
	h := newHarness(t, harnessOpts{rolls: []int{10}})
	captor, prisoner, escape := prison(t, h)

	h.progress(t)
	assert.False(t, h.pending(escape.ID))
	assert.Zero(t, prisoner.PrisonerOf)
	assert.Empty(t, captor.Prisoners)
	assert.Equal(t, 1, prisoner.Achievements["escaped"])
	assert.Equal(t, 1, captor.Achievements["escapees"])
	assert.Equal(t, []string{"resolution.escape.success"}, h.keys(2))
	assert.Equal(t, []string{"resolution.escape.by"}, h.keys(1))
}

func TestEscape_Failure(t *testing.T) {
	h := newHarness(t, harnessOpts{rolls: []int{11}})
	captor, prisoner, escape := prison(t, h)

	h.progress(t)
	assert.False(t, h.pending(escape.ID))
	assert.Equal(t, world.CharacterID(1), prisoner.PrisonerOf)
	assert.Equal(t, []world.CharacterID{2}, captor.Prisoners)
	assert.Equal(t, 1, prisoner.Achievements["failedescapes"])
	assert.Equal(t, []string{"resolution.escape.failed"}, h.keys(2))
	assert.Equal(t, []string{"resolution.escape.try"}, h.keys(1))
}

func TestEscape_UnguardedPrisonerWalksOut(t *testing.T) {
	h := newHarness(t, harnessOpts{rolls: []int{100}})
	captor, prisoner, _ := prison(t, h)
	captor.Active = false

	h.progress(t)
	assert.Zero(t, prisoner.PrisonerOf)
}

func TestEscape_MissingCaptorReleases(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	_, prisoner, _ := prison(t, h)
	prisoner.PrisonerOf = 99

	h.progress(t)
	assert.Zero(t, prisoner.PrisonerOf)
	assert.Empty(t, h.keys(2))
}

func TestResearch_WidensOneCycleAtATime(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.settlement(t, 1, world.Point{}, 0)
	me := h.character(t, 1, world.Point{}, 0)
	subject := history.OfSettlement(1)
	for _, cycle := range []int{1, 3} {
		h.journal.SetCycle(cycle)
		h.journal.LogEvent(subject, "event.test", nil, history.Low, false, 0)
	}
	h.journal.SetCycle(5)
	h.journal.OpenLog(subject, 1)

	research := h.enqueue(t, &action.Action{Kind: action.KindTaskResearch, Character: 1, TargetSettlement: 1, Complete: h.at(time.Hour)})
	me.Entourage = []world.Entourage{{ID: 1, Type: "scholar", Action: int64(research.ID)}}

	h.clk.Advance(61 * time.Minute)
	h.progress(t)
	from, _ := h.journal.AccessFrom(subject, 1)
	assert.Equal(t, 3, from)
	assert.True(t, h.pending(research.ID))
	require.NotNil(t, research.Complete)
	assert.False(t, research.Complete.After(h.clk.Now()), "stays due for the next cycle")

	h.progress(t)
	from, _ = h.journal.AccessFrom(subject, 1)
	assert.Equal(t, 1, from)
	assert.True(t, h.pending(research.ID))
	assert.Equal(t, int64(research.ID), me.Entourage[0].Action)

	h.progress(t)
	assert.False(t, h.pending(research.ID))
	from, ok := h.journal.AccessFrom(subject, 1)
	require.True(t, ok)
	assert.Equal(t, history.FullAccess, from)
	assert.Zero(t, me.Entourage[0].Action)
	assert.Equal(t, []string{"resolution.research.complete"}, h.keys(1))
}

func TestResearch_WithoutAccessIsInvalid(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.settlement(t, 1, world.Point{}, 0)
	h.character(t, 1, world.Point{}, 0)
	research := h.enqueue(t, &action.Action{Kind: action.KindTaskResearch, Character: 1, TargetSettlement: 1, Complete: h.at(time.Hour)})

	h.clk.Advance(2 * time.Hour)
	h.progress(t)
	assert.False(t, h.pending(research.ID))
}
