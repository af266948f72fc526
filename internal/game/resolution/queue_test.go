package resolution_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/resolution"
	"github.com/cory-johannsen/warband/internal/game/world"
)

func TestEnqueue_DefaultsAndPriority(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.character(t, 1, world.Point{}, 0)

	first := h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 1, Complete: h.at(time.Hour)})
	second := h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 1, Complete: h.at(time.Hour), CanCancel: action.Bool(false)})
	other := h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 2, Complete: h.at(time.Hour)})

	assert.Equal(t, epoch, first.Started)
	assert.Equal(t, 1, first.Priority)
	assert.Equal(t, 2, second.Priority)
	assert.Equal(t, 1, other.Priority)
	assert.True(t, first.Cancellable())
	assert.False(t, second.Cancellable())
	assert.False(t, first.Hidden)
	assert.False(t, first.Hourly)
	assert.Equal(t, 3, h.queue.Len())
}

func TestEnqueue_Immediate(t *testing.T) {
	h := newHarness(t, harnessOpts{cfg: resolution.Config{ImmediateActions: true}})
	h.character(t, 1, world.Point{}, 0)
	ctx := context.Background()

	res, err := h.queue.Enqueue(ctx, &action.Action{Kind: action.KindMilitaryRegroup, Character: 1}, false)
	require.NoError(t, err)
	assert.True(t, res.Immediate)
	assert.True(t, res.Accepted)
	assert.Zero(t, h.queue.Len())
	assert.Equal(t, []string{"resolution.regroup.success"}, h.keys(1))

	res, err = h.queue.Enqueue(ctx, &action.Action{Kind: action.KindMilitaryRegroup, Character: 1}, true)
	require.NoError(t, err)
	assert.False(t, res.Immediate)

	res, err = h.queue.Enqueue(ctx, &action.Action{Kind: action.KindMilitaryHire, Character: 1, Complete: h.at(time.Minute)}, false)
	require.NoError(t, err)
	assert.False(t, res.Immediate, "timed actions are never immediate")

	res, err = h.queue.Enqueue(ctx, &action.Action{Kind: action.KindMilitaryBlock, Character: 1, StringValue: "attack"}, false)
	require.NoError(t, err)
	assert.False(t, res.Immediate, "block orders are always deferred")
	assert.Equal(t, 3, h.queue.Len())

	res, err = h.queue.Enqueue(ctx, &action.Action{Kind: action.ParseKind("nope"), Character: 1}, false)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
}

func TestEnqueue_ImmediateDisabledStores(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	res, err := h.queue.Enqueue(context.Background(), &action.Action{Kind: action.KindMilitaryRegroup, Character: 1}, false)
	require.NoError(t, err)
	assert.False(t, res.Immediate)
	assert.NotZero(t, res.ID)
}

func TestProgress_RoundTripResolvesOnce(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.character(t, 1, world.Point{}, 0)
	a := h.enqueue(t, &action.Action{Kind: action.KindMilitaryRegroup, Character: 1, Complete: h.at(10 * time.Minute)})

	assert.Zero(t, h.progress(t).Resolved, "not yet due")
	h.clk.Advance(10 * time.Minute)
	assert.Zero(t, h.progress(t).Resolved, "complete == now is not due")

	h.clk.Advance(time.Second)
	rep := h.progress(t)
	assert.Equal(t, 1, rep.Resolved)
	assert.Equal(t, []world.CharacterID{1}, rep.Characters)
	assert.False(t, h.pending(a.ID))

	assert.Zero(t, h.progress(t).Resolved)
	assert.Equal(t, []string{"resolution.regroup.success"}, h.keys(1))
}

func TestProgress_BatchBoundedEarliestFirst(t *testing.T) {
	h := newHarness(t, harnessOpts{cfg: resolution.Config{MaxProgress: 2}})
	var acts []*action.Action
	for i, offset := range []time.Duration{30, 10, 20, 40} {
		acts = append(acts, h.enqueue(t, &action.Action{
			Kind:      action.KindMilitaryHire,
			Character: world.CharacterID(i + 1),
			Complete:  h.at(offset * time.Minute),
		}))
	}
	h.clk.Advance(time.Hour)

	assert.Equal(t, 2, h.progress(t).Resolved)
	assert.False(t, h.pending(acts[1].ID))
	assert.False(t, h.pending(acts[2].ID))
	assert.True(t, h.pending(acts[0].ID))
	assert.True(t, h.pending(acts[3].ID))

	assert.Equal(t, 2, h.progress(t).Resolved)
	assert.Zero(t, h.queue.Len())
}

func TestProgress_DefaultBatchSize(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	for i := 0; i < 7; i++ {
		h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 1, Complete: h.at(time.Minute)})
	}
	h.clk.Advance(time.Hour)
	assert.Equal(t, resolution.DefaultMaxProgress, h.progress(t).Resolved)
	assert.Equal(t, 2, h.queue.Len())
}

func TestProgress_Property_OnlyDueEarliestFirst(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxProgress := rapid.IntRange(1, 8).Draw(rt, "max")
		h := newHarness(t, harnessOpts{cfg: resolution.Config{MaxProgress: maxProgress}})
		offsets := rapid.SliceOfN(rapid.IntRange(-120, 120), 0, 20).Draw(rt, "offsets")

		type entry struct {
			id       action.ID
			complete time.Time
		}
		var entries []entry
		for i, off := range offsets {
			a := h.enqueue(t, &action.Action{
				Kind:      action.KindMilitaryHire,
				Character: world.CharacterID(i%3 + 1),
				Complete:  h.at(time.Duration(off) * time.Minute),
			})
			entries = append(entries, entry{a.ID, *a.Complete})
		}
		now := h.clk.Now()
		rep := h.progress(t)

		var due []entry
		for _, e := range entries {
			if e.complete.Before(now) {
				due = append(due, e)
			}
		}
		sort.Slice(due, func(i, j int) bool {
			if !due[i].complete.Equal(due[j].complete) {
				return due[i].complete.Before(due[j].complete)
			}
			return due[i].id < due[j].id
		})
		want := min(len(due), maxProgress)
		if rep.Resolved != want {
			rt.Fatalf("resolved %d, want %d", rep.Resolved, want)
		}
		for i, e := range due {
			if gone := !h.pending(e.id); gone != (i < want) {
				rt.Fatalf("due action %d (rank %d) removed=%v", e.id, i, gone)
			}
		}
		for _, e := range entries {
			if !e.complete.Before(now) && !h.pending(e.id) {
				rt.Fatalf("action %d completing at %v resolved at %v", e.id, e.complete, now)
			}
		}
	})
}

func TestRefresh_SplitsHourly(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.settlement(t, 1, world.Point{}, 0)
	h.character(t, 1, world.Point{X: 1000}, 0)
	daily := h.enqueue(t, &action.Action{Kind: action.KindSettlementDefend, Character: 1, TargetSettlement: 1})
	hourly := h.enqueue(t, &action.Action{Kind: action.KindSettlementDefend, Character: 1, TargetSettlement: 1, Hourly: true})

	rep := h.refresh(t)
	assert.Equal(t, 1, rep.Updated)
	assert.False(t, h.pending(daily.ID))
	assert.True(t, h.pending(hourly.ID))

	_, err := h.queue.RefreshHourly(context.Background())
	require.NoError(t, err)
	assert.False(t, h.pending(hourly.ID))
}

func TestRequestUpdate(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.character(t, 1, world.Point{}, 0)
	hire := h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 1, Complete: h.at(time.Hour)})
	ctx := context.Background()

	assert.False(t, h.queue.RequestUpdate(ctx, hire.ID), "no update behaviour")
	assert.False(t, h.queue.RequestUpdate(ctx, 999))
	assert.True(t, h.pending(hire.ID))
}

func TestCancel(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	c := h.character(t, 1, world.Point{}, 0)
	ctx := context.Background()
	free := h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 1, Complete: h.at(time.Hour)})
	locked := h.enqueue(t, &action.Action{Kind: action.KindMilitaryBattle, Character: 1, CanCancel: action.Bool(false)})
	c.Entourage = []world.Entourage{{ID: 1, Action: int64(free.ID)}}

	require.NoError(t, h.queue.Cancel(ctx, free.ID, false))
	assert.Zero(t, c.Entourage[0].Action)

	assert.ErrorIs(t, h.queue.Cancel(ctx, locked.ID, false), resolution.ErrNotCancellable)
	assert.True(t, h.pending(locked.ID))
	require.NoError(t, h.queue.Cancel(ctx, locked.ID, true))
	assert.ErrorIs(t, h.queue.Cancel(ctx, locked.ID, true), resolution.ErrNotFound)
}

type memPersister struct {
	fail      error
	changed   []action.ID
	removed   []action.ID
	snapshots []battle.Snapshot
}

func (p *memPersister) Persist(_ context.Context, changed []*action.Action, removed []action.ID, battles *battle.Snapshot) error {
	if p.fail != nil {
		return p.fail
	}
	if battles != nil {
		p.snapshots = append(p.snapshots, *battles)
	}
	for _, a := range changed {
		p.changed = append(p.changed, a.ID)
	}
	p.removed = append(p.removed, removed...)
	return nil
}

func TestFlush(t *testing.T) {
	p := &memPersister{fail: errors.New("db down")}
	h := newHarness(t, harnessOpts{persister: p})
	ctx := context.Background()
	keep := h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 1, Complete: h.at(time.Hour)})
	gone := h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 1, Complete: h.at(time.Minute)})

	h.clk.Advance(2 * time.Minute)
	h.progress(t)
	assert.Error(t, h.queue.Flush(ctx))
	assert.Empty(t, p.changed)

	p.fail = nil
	require.NoError(t, h.queue.Flush(ctx))
	assert.Equal(t, []action.ID{keep.ID}, p.changed)
	assert.Equal(t, []action.ID{gone.ID}, p.removed)

	require.NoError(t, h.queue.Flush(ctx))
	assert.Len(t, p.changed, 1, "nothing new to flush")
}

func TestObserverSeesNonEmptyPasses(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.progress(t)
	assert.Empty(t, h.obs.reports)

	h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 4, Complete: h.at(time.Minute)})
	h.clk.Advance(time.Hour)
	h.progress(t)
	require.Len(t, h.obs.reports, 1)
	assert.Equal(t, []world.CharacterID{4}, h.obs.reports[0].Characters)
	assert.NotEqual(t, uuid.Nil, h.obs.reports[0].ID)
}

func TestQueue_ReadsReturnCopies(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	a := h.enqueue(t, &action.Action{Kind: action.KindMilitaryHire, Character: 1, Complete: h.at(time.Hour)})

	cp, ok := h.queue.Get(a.ID)
	require.True(t, ok)
	cp.Hidden = true
	assert.False(t, a.Hidden)
	assert.Len(t, h.queue.ForCharacter(1), 1)
	_, ok = h.queue.Get(404)
	assert.False(t, ok)
}
