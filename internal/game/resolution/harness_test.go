package resolution_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/battlemath"
	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/game/dice"
	"github.com/cory-johannsen/warband/internal/game/geo"
	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/permission"
	"github.com/cory-johannsen/warband/internal/game/politics"
	"github.com/cory-johannsen/warband/internal/game/resolution"
	"github.com/cory-johannsen/warband/internal/game/world"
)

var epoch = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

type recorder struct {
	reports []resolution.TickReport
}

func (r *recorder) AfterTick(rep resolution.TickReport) { r.reports = append(r.reports, rep) }

type harness struct {
	clk     *clock.Manual
	world   *world.State
	battles *battle.Registry
	journal *history.Memory
	arena   *action.Arena
	queue   *resolution.Queue
	obs     *recorder
	deps    resolution.Deps
}

type harnessOpts struct {
	cfg       resolution.Config
	persister resolution.Persister
	// rolls are d100 results, 1..100, returned in order and then repeated.
	rolls []int
}

func newHarness(t testing.TB, opts harnessOpts) *harness {
	t.Helper()
	clk := clock.NewManual(epoch)
	st := world.NewState()
	reg := battle.NewRegistry()
	mem := history.NewMemory(clk)
	g := geo.New(st, geo.DefaultConfig())
	logger := zap.NewNop()
	values := []int{0}
	if len(opts.rolls) > 0 {
		values = make([]int, len(opts.rolls))
		for i, r := range opts.rolls {
			values[i] = r - 1
		}
	}
	obs := &recorder{}
	deps := resolution.Deps{
		World:       st,
		Battles:     reg,
		Geography:   g,
		Permissions: permission.NewRules(st, g, reg),
		Politics:    politics.NewService(mem, logger),
		Math:        battlemath.NewScripted(st, reg, nil, logger),
		History:     mem,
		Journal:     mem,
		Roller:      dice.NewRoller(dice.NewFixed(values...), logger),
		Clock:       clk,
		Logger:      logger,
		Observer:    obs,
	}
	arena := action.NewArena()
	q, err := resolution.NewQueue(opts.cfg, deps, arena, opts.persister)
	require.NoError(t, err)
	return &harness{
		clk:     clk,
		world:   st,
		battles: reg,
		journal: mem,
		arena:   arena,
		queue:   q,
		obs:     obs,
		deps:    deps,
	}
}

func (h *harness) character(t testing.TB, id world.CharacterID, loc world.Point, soldiers int) *world.Character {
	t.Helper()
	c := &world.Character{ID: id, Name: "c", Active: true, Location: loc}
	for i := 0; i < soldiers; i++ {
		c.Soldiers = append(c.Soldiers, world.Soldier{ID: int64(id)*1000 + int64(i), Type: world.Infantry, Alive: true})
	}
	require.NoError(t, h.world.AddCharacter(c))
	return c
}

func (h *harness) settlement(t testing.TB, id world.SettlementID, center world.Point, owner world.CharacterID) *world.Settlement {
	t.Helper()
	s := &world.Settlement{ID: id, Name: "Karsk", Center: center, Owner: owner, Realm: 1}
	require.NoError(t, h.world.AddSettlement(s))
	return s
}

// fight puts attacker and defender in opposite groups of a new battle.
func (h *harness) fight(t testing.TB, attackers, defenders []world.CharacterID) (*battle.Group, *battle.Group) {
	t.Helper()
	b := &battle.Battle{Type: battle.TypeField, Started: h.clk.Now()}
	h.battles.AddBattle(b)
	ga := h.battles.NewGroup(true, attackers...)
	gd := h.battles.NewGroup(false, defenders...)
	require.NoError(t, h.battles.Attach(b, ga))
	require.NoError(t, h.battles.Attach(b, gd))
	return ga, gd
}

func (h *harness) enqueue(t testing.TB, a *action.Action) *action.Action {
	t.Helper()
	res, err := h.queue.Enqueue(context.Background(), a, true)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	return a
}

// at returns a completion time offset from the harness clock.
func (h *harness) at(d time.Duration) *time.Time {
	return clock.At(h.clk.Now(), d)
}

func (h *harness) progress(t testing.TB) resolution.TickReport {
	t.Helper()
	rep, err := h.queue.Progress(context.Background())
	require.NoError(t, err)
	return rep
}

func (h *harness) refresh(t testing.TB) resolution.TickReport {
	t.Helper()
	rep, err := h.queue.Refresh(context.Background())
	require.NoError(t, err)
	return rep
}

func (h *harness) pending(id action.ID) bool {
	_, ok := h.arena.Get(id)
	return ok
}

func (h *harness) keys(c world.CharacterID) []string {
	return h.journal.Keys(history.OfCharacter(c))
}

func (h *harness) settlementKeys(s world.SettlementID) []string {
	return h.journal.Keys(history.OfSettlement(s))
}

func (h *harness) kinds(c world.CharacterID) []action.Kind {
	var out []action.Kind
	for _, a := range h.arena.ForCharacter(c) {
		out = append(out, a.Kind)
	}
	return out
}

func (h *harness) first(t testing.TB, c world.CharacterID, k action.Kind) *action.Action {
	t.Helper()
	for _, a := range h.arena.ForCharacter(c) {
		if a.Kind == k {
			return a
		}
	}
	t.Fatalf("character %d has no %s action", c, k)
	return nil
}
