package resolution_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/world"
)

func restoredDisengage() *action.Action {
	complete := epoch
	return &action.Action{
		ID:          1,
		Kind:        action.KindMilitaryDisengage,
		Character:   1,
		Started:     epoch,
		Complete:    &complete,
		CanCancel:   action.Bool(false),
		TargetGroup: 2,
	}
}

func TestReconcile_DropsActionsOfMissingGroups(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.character(t, 1, world.Point{}, 5)
	h.character(t, 10, world.Point{}, 5)
	h.character(t, 20, world.Point{}, 5)
	require.NoError(t, h.arena.Load([]*action.Action{restoredDisengage()}))

	n, err := h.queue.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, h.pending(1))

	h.fight(t, []world.CharacterID{10}, []world.CharacterID{20})
	h.clk.Advance(time.Minute)
	h.progress(t)

	assert.NotContains(t, h.keys(1), "resolution.disengage.success")
	assert.NotContains(t, h.kinds(10), action.KindMilitaryRegroup)
}

func TestReconcile_KeepsActionsOfRestoredGroups(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()
	h.character(t, 1, world.Point{}, 5)
	h.character(t, 2, world.Point{}, 5)
	h.character(t, 10, world.Point{}, 5)
	h.character(t, 20, world.Point{}, 5)
	require.NoError(t, h.battles.Restore(
		[]battle.Battle{{ID: 1, Type: battle.TypeField, Started: epoch, Groups: []battle.GroupID{1, 2}}},
		[]battle.Group{
			{ID: 1, Battle: 1, Attacker: true, Characters: []world.CharacterID{2}},
			{ID: 2, Battle: 1, Characters: []world.CharacterID{1}},
		},
	))
	require.NoError(t, h.arena.Load([]*action.Action{restoredDisengage()}))

	n, err := h.queue.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	ga, gd := h.fight(t, []world.CharacterID{10}, []world.CharacterID{20})
	assert.Greater(t, ga.ID, battle.GroupID(2))
	assert.Greater(t, gd.ID, battle.GroupID(2))

	h.clk.Advance(time.Minute)
	h.progress(t)

	assert.Contains(t, h.keys(1), "resolution.disengage.success")
	assert.Contains(t, h.kinds(2), action.KindMilitaryRegroup)
	assert.NotContains(t, h.kinds(10), action.KindMilitaryRegroup)
}

func TestFlush_SendsBattleSnapshotOnlyWhenBattlesChange(t *testing.T) {
	p := &memPersister{}
	h := newHarness(t, harnessOpts{persister: p})
	ctx := context.Background()

	require.NoError(t, h.queue.Flush(ctx))
	assert.Empty(t, p.snapshots, "empty registry is not written")

	ga, _ := h.fight(t, []world.CharacterID{10}, []world.CharacterID{20})
	require.NoError(t, h.queue.Flush(ctx))
	require.Len(t, p.snapshots, 1)
	assert.Len(t, p.snapshots[0].Battles, 1)
	assert.Len(t, p.snapshots[0].Groups, 2)

	h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 10, Complete: h.at(time.Hour)})
	require.NoError(t, h.queue.Flush(ctx))
	assert.Len(t, p.snapshots, 1, "battles unchanged")

	require.NoError(t, h.battles.RemoveFromGroup(10, ga.ID))
	p.fail = assert.AnError
	assert.Error(t, h.queue.Flush(ctx))
	p.fail = nil
	require.NoError(t, h.queue.Flush(ctx))
	require.Len(t, p.snapshots, 2, "failed snapshot is retried")
	assert.Empty(t, p.snapshots[1].Groups[0].Characters)
}
