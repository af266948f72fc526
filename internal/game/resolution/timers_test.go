package resolution_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/world"
)

func TestTimedKinds_RemovedWhenDue(t *testing.T) {
	for _, k := range []action.Kind{
		action.KindSettlementLoot,
		action.KindMilitaryEvade,
		action.KindMilitaryHire,
		action.KindMilitaryDamage,
		action.KindMilitaryLoot,
		action.KindPersonalPrisonAssign,
	} {
		t.Run(k.String(), func(t *testing.T) {
			h := newHarness(t, harnessOpts{})
			h.character(t, 1, world.Point{}, 5)
			a := h.enqueue(t, &action.Action{Kind: k, Character: 1, Complete: h.at(time.Minute)})

			assert.False(t, h.queue.RequestUpdate(context.Background(), a.ID), "no update behaviour")
			h.clk.Advance(2 * time.Minute)
			rep := h.progress(t)

			assert.Equal(t, 1, rep.Resolved)
			assert.False(t, h.pending(a.ID))
			assert.Empty(t, h.keys(1))
		})
	}
}

func TestRegroup_LogsWhenDone(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.character(t, 1, world.Point{}, 5)
	a := h.enqueue(t, &action.Action{Kind: action.KindMilitaryRegroup, Character: 1, Complete: h.at(time.Hour)})

	h.clk.Advance(30 * time.Minute)
	h.progress(t)
	assert.True(t, h.pending(a.ID), "not due yet")

	h.clk.Advance(31 * time.Minute)
	h.progress(t)
	assert.False(t, h.pending(a.ID))
	assert.Equal(t, []string{"resolution.regroup.success"}, h.keys(1))
}

func TestBattleKinds_StayUntilCombatEnds(t *testing.T) {
	for _, k := range []action.Kind{
		action.KindMilitaryBattle,
		action.KindSettlementAttack,
		action.KindSettlementAssault,
		action.KindSettlementSortie,
	} {
		t.Run(k.String(), func(t *testing.T) {
			h := newHarness(t, harnessOpts{})
			h.character(t, 1, world.Point{}, 5)
			a := h.enqueue(t, &action.Action{Kind: k, Character: 1, Complete: h.at(time.Minute), BlockTravel: true})

			h.clk.Advance(2 * time.Minute)
			rep := h.progress(t)

			assert.Equal(t, 1, rep.Resolved)
			assert.True(t, h.pending(a.ID))
			assert.False(t, h.queue.RequestUpdate(context.Background(), a.ID))
		})
	}
}
