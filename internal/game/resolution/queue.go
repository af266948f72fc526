package resolution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// DefaultMaxProgress is the batch size of one Progress pass.
const DefaultMaxProgress = 5

// Config tunes the queue.
type Config struct {
	// MaxProgress caps the number of due actions resolved per Progress call.
	MaxProgress int
	// ImmediateActions lets open-ended actions resolve at enqueue time.
	ImmediateActions bool
	// DebugRetain keeps invalid actions in the queue instead of removing them.
	DebugRetain bool
}

// Persister stores the queue's changes durably. battles is nil when the
// battle registry has not changed since the last successful Persist; otherwise
// it replaces every stored battle and group.
type Persister interface {
	Persist(ctx context.Context, changed []*action.Action, removed []action.ID, battles *battle.Snapshot) error
}

// EnqueueResult reports how Enqueue handled an action.
type EnqueueResult struct {
	// Accepted is false only when an immediate resolution found no resolver.
	Accepted bool
	// Immediate is true when the action was resolved instead of stored.
	Immediate bool
	// ID is the arena id of a stored action.
	ID action.ID
}

// deferredKinds never resolve at enqueue time: their resolvers form battles
// or capture settlements and must see batched world state.
var deferredKinds = map[action.Kind]bool{
	action.KindSettlementTake:    true,
	action.KindSettlementAttack:  true,
	action.KindSettlementAssault: true,
	action.KindSettlementSortie:  true,
	action.KindMilitaryBattle:    true,
	action.KindMilitaryBlock:     true,
	action.KindMilitaryDisengage: true,
}

// Queue is the single writer over pending actions. Every exported method
// takes the queue lock, so resolvers never run concurrently.
type Queue struct {
	mu        sync.Mutex
	cfg       Config
	deps      Deps
	arena     *action.Arena
	engine    *Engine
	formation *Formation
	persister Persister
	logger    *zap.Logger
	// battlesSaved is the registry version last handed to the persister.
	battlesSaved uint64
}

// NewQueue wires the resolver catalogue over arena.
//
// Precondition: deps passes validation; persister may be nil.
// Postcondition: returns a Queue whose engine has a resolver for every kind.
func NewQueue(cfg Config, deps Deps, arena *action.Arena, persister Persister) (*Queue, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxProgress <= 0 {
		cfg.MaxProgress = DefaultMaxProgress
	}
	q := &Queue{
		cfg:       cfg,
		deps:      deps,
		arena:     arena,
		persister: persister,
		logger:    deps.Logger,
	}
	q.formation = &Formation{deps: deps, arena: arena}
	reg, err := newCatalogue(&env{Deps: deps, arena: arena, formation: q.formation})
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(reg, arena, deps.Logger, cfg.DebugRetain)
	if err != nil {
		return nil, err
	}
	q.engine = engine
	return q, nil
}

// Enqueue schedules a for deps.Character.
//
// Postcondition: a is either resolved immediately (Immediate) or stored with
// Started = now, Priority above the character's other actions and
// CanCancel defaulted to true.
func (q *Queue) Enqueue(ctx context.Context, a *action.Action, neverImmediate bool) (EnqueueResult, error) {
	if err := ctx.Err(); err != nil {
		return EnqueueResult{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	t := q.tick()
	res := q.enqueue(t, a, neverImmediate)
	q.observe(t)
	return res, nil
}

func (q *Queue) enqueue(t *Tick, a *action.Action, neverImmediate bool) EnqueueResult {
	a.Started = t.Now
	if !neverImmediate && a.Complete == nil && q.cfg.ImmediateActions {
		if !deferredKinds[a.Kind] {
			ok := q.engine.Resolve(t, a)
			t.count(ok)
			return EnqueueResult{Accepted: ok, Immediate: true}
		}
		q.logger.Debug("deferring immediate action", zap.Stringer("action", a))
	}
	a.Priority = q.arena.MaxPriority(a.Character) + 1
	if a.CanCancel == nil {
		a.CanCancel = action.Bool(true)
	}
	id := q.arena.Insert(a)
	q.logger.Debug("action queued",
		zap.Stringer("tick", t.ID),
		zap.Stringer("action", a),
	)
	return EnqueueResult{Accepted: true, ID: id}
}

func (t *Tick) count(resolved bool) {
	if resolved {
		t.resolved++
	} else {
		t.discarded++
	}
}

// Progress resolves up to MaxProgress due actions, earliest first.
//
// Postcondition: no action with Complete >= now is resolved.
func (q *Queue) Progress(ctx context.Context) (TickReport, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := q.tick()
	for _, a := range q.arena.Due(t.Now, q.cfg.MaxProgress) {
		if err := ctx.Err(); err != nil {
			q.observe(t)
			return t.report(), err
		}
		// An earlier resolver in this batch may have removed or retimed a.
		if _, ok := q.arena.Get(a.ID); !ok || !a.Timer().Due(t.Now) {
			continue
		}
		t.count(q.engine.Resolve(t, a))
	}
	q.observe(t)
	return t.report(), nil
}

// RequestUpdate runs the update behaviour of one pending action.
//
// Postcondition: false when the action is unknown or its kind has no
// update behaviour.
func (q *Queue) RequestUpdate(ctx context.Context, id action.ID) bool {
	if ctx.Err() != nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	a, ok := q.arena.Get(id)
	if !ok {
		return false
	}
	t := q.tick()
	updated := q.engine.Update(t, a)
	if updated {
		t.updated++
	}
	q.observe(t)
	return updated
}

// Refresh runs the update behaviour of every pending non-hourly action.
func (q *Queue) Refresh(ctx context.Context) (TickReport, error) {
	return q.refresh(ctx, false)
}

// RefreshHourly runs the update behaviour of every pending hourly action.
func (q *Queue) RefreshHourly(ctx context.Context) (TickReport, error) {
	return q.refresh(ctx, true)
}

func (q *Queue) refresh(ctx context.Context, hourly bool) (TickReport, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := q.tick()
	for _, a := range q.arena.Pending() {
		if err := ctx.Err(); err != nil {
			q.observe(t)
			return t.report(), err
		}
		if a.Hourly != hourly {
			continue
		}
		if _, ok := q.arena.Get(a.ID); !ok {
			continue
		}
		if q.engine.Update(t, a) {
			t.updated++
		}
	}
	q.observe(t)
	return t.report(), nil
}

// Cancel removes a pending action on behalf of a player or operator.
//
// Precondition: force is required for actions with CanCancel false.
func (q *Queue) Cancel(ctx context.Context, id action.ID, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	a, ok := q.arena.Get(id)
	if !ok {
		return fmt.Errorf("cancelling %d: %w", id, ErrNotFound)
	}
	if !force && !a.Cancellable() {
		return fmt.Errorf("cancelling %s: %w", a, ErrNotCancellable)
	}
	q.deps.World.FreeEntourage(a.Character, int64(a.ID))
	q.arena.Remove(id)
	q.logger.Info("action cancelled", zap.Stringer("action", a), zap.Bool("forced", force))
	return nil
}

// Flush hands every change since the previous Flush to the persister,
// together with a battle registry snapshot when battles changed.
// Changes are restored to the dirty set when persisting fails.
func (q *Queue) Flush(ctx context.Context) error {
	if q.persister == nil {
		return nil
	}
	q.mu.Lock()
	changed, removed := q.arena.Drain()
	var snap *battle.Snapshot
	if q.deps.Battles.Version() != q.battlesSaved {
		s := q.deps.Battles.Snapshot()
		snap = &s
	}
	q.mu.Unlock()
	if len(changed) == 0 && len(removed) == 0 && snap == nil {
		return nil
	}
	if err := q.persister.Persist(ctx, changed, removed, snap); err != nil {
		q.mu.Lock()
		q.arena.Restore(changed, removed)
		q.mu.Unlock()
		return fmt.Errorf("flushing action queue: %w", err)
	}
	if snap != nil {
		q.mu.Lock()
		q.battlesSaved = snap.Version
		q.mu.Unlock()
	}
	return nil
}

// Reconcile removes pending actions whose target battle group no longer
// exists, such as actions restored without their battle. It runs once after
// the arena and the battle registry have been restored.
//
// Postcondition: every pending action with a TargetGroup names a registered
// group; the removed actions are flushed as deletions.
func (q *Queue) Reconcile(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for _, a := range q.arena.Pending() {
		if a.TargetGroup == 0 {
			continue
		}
		if _, ok := q.deps.Battles.Group(a.TargetGroup); ok {
			continue
		}
		q.logger.Warn("dropping action bound to a missing battle group",
			zap.Stringer("action", a),
			zap.Int64("group", int64(a.TargetGroup)),
		)
		q.deps.World.FreeEntourage(a.Character, int64(a.ID))
		q.arena.Remove(a.ID)
		removed++
	}
	return removed, nil
}

// CreateBattle forms a battle from req. See Formation.CreateBattle.
func (q *Queue) CreateBattle(ctx context.Context, req BattleRequest) (BattleResult, error) {
	if err := ctx.Err(); err != nil {
		return BattleResult{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	t := q.tick()
	res, err := q.formation.CreateBattle(t, req)
	q.observe(t)
	return res, err
}

// CreateDisengage schedules a disengage for c out of group. See
// Formation.CreateDisengage.
func (q *Queue) CreateDisengage(ctx context.Context, c world.CharacterID, group battle.GroupID, opposed action.ID) (EnqueueResult, error) {
	if err := ctx.Err(); err != nil {
		return EnqueueResult{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.deps.World.Character(c)
	if !ok {
		return EnqueueResult{}, fmt.Errorf("disengage for character %d: %w", c, ErrInvalidAction)
	}
	t := q.tick()
	res := q.formation.CreateDisengage(t, ch, group, opposed)
	q.observe(t)
	return res, nil
}

// CalculateDisengageTime returns how long c needs to disengage.
func (q *Queue) CalculateDisengageTime(c *world.Character) time.Duration {
	return CalculateDisengageTime(c)
}

// Get returns a copy of the pending action with id.
func (q *Queue) Get(id action.ID) (*action.Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	a, ok := q.arena.Get(id)
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// ForCharacter returns copies of c's pending actions in priority order.
func (q *Queue) ForCharacter(c world.CharacterID) []*action.Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	acts := q.arena.ForCharacter(c)
	out := make([]*action.Action, len(acts))
	for i, a := range acts {
		out[i] = a.Clone()
	}
	return out
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.arena.Len()
}

func (q *Queue) tick() *Tick {
	return newTick(q, q.deps.Clock.Now())
}

func (q *Queue) observe(t *Tick) {
	r := t.report()
	if r.Empty() {
		return
	}
	q.logger.Debug("queue pass",
		zap.Stringer("tick", r.ID),
		zap.Int("resolved", r.Resolved),
		zap.Int("discarded", r.Discarded),
		zap.Int("updated", r.Updated),
	)
	if q.deps.Observer != nil {
		q.deps.Observer.AfterTick(r)
	}
}
