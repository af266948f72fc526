package resolution

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/action"
)

// Resolver implements the behaviour of one action kind.
//
// Resolve runs when the action's timer elapses; Update re-evaluates a
// pending action. Either may return ErrNoResolve or ErrNoUpdate when the
// kind lacks that behaviour, and ErrInvalidAction when the action's
// character or target is gone.
type Resolver interface {
	Resolve(t *Tick, a *action.Action) error
	Update(t *Tick, a *action.Action) error
}

// Registry maps every kind of the closed action enum to its resolver.
type Registry struct {
	resolvers map[action.Kind]Resolver
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[action.Kind]Resolver)}
}

// Register binds r to k.
//
// Precondition: k is a valid kind not yet registered; r is non-nil.
func (r *Registry) Register(k action.Kind, res Resolver) error {
	if !k.Valid() {
		return fmt.Errorf("resolution: cannot register unknown kind %q", k)
	}
	if res == nil {
		return fmt.Errorf("resolution: nil resolver for %s", k)
	}
	if _, dup := r.resolvers[k]; dup {
		return fmt.Errorf("resolution: duplicate resolver for %s", k)
	}
	r.resolvers[k] = res
	return nil
}

// Lookup returns the resolver for k.
func (r *Registry) Lookup(k action.Kind) (Resolver, bool) {
	res, ok := r.resolvers[k]
	return res, ok
}

// Complete returns an error naming every kind left without a resolver.
func (r *Registry) Complete() error {
	var errs []error
	for _, k := range action.Kinds() {
		if _, ok := r.resolvers[k]; !ok {
			errs = append(errs, fmt.Errorf("resolution: no resolver for %s", k))
		}
	}
	return errors.Join(errs...)
}

// Engine dispatches actions to their resolvers and turns resolver failures
// into removals or log lines. It never panics on resolver errors.
type Engine struct {
	registry    *Registry
	arena       *action.Arena
	logger      *zap.Logger
	debugRetain bool
}

// NewEngine returns an Engine over a complete registry.
//
// Precondition: registry.Complete() == nil.
func NewEngine(registry *Registry, arena *action.Arena, logger *zap.Logger, debugRetain bool) (*Engine, error) {
	if err := registry.Complete(); err != nil {
		return nil, err
	}
	return &Engine{registry: registry, arena: arena, logger: logger, debugRetain: debugRetain}, nil
}

// Resolve runs the resolve behaviour of a.
//
// Postcondition: returns false, with a removed, when the kind is unknown or
// has no resolve behaviour; true otherwise.
func (e *Engine) Resolve(t *Tick, a *action.Action) bool {
	res, ok := e.registry.Lookup(a.Kind)
	if !ok {
		e.arena.Remove(a.ID)
		return false
	}
	t.Bind(a.Character)
	err := res.Resolve(t, a)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNoResolve):
		e.arena.Remove(a.ID)
		return false
	default:
		e.fail("resolve", a, err)
		return true
	}
}

// Update runs the update behaviour of a.
//
// Postcondition: returns false when the kind is unknown or has no update
// behaviour; a is left untouched in that case.
func (e *Engine) Update(t *Tick, a *action.Action) bool {
	res, ok := e.registry.Lookup(a.Kind)
	if !ok {
		return false
	}
	err := res.Update(t, a)
	switch {
	case err == nil:
		t.Bind(a.Character)
		return true
	case errors.Is(err, ErrNoUpdate):
		return false
	default:
		t.Bind(a.Character)
		e.fail("update", a, err)
		return true
	}
}

func (e *Engine) fail(phase string, a *action.Action, err error) {
	if errors.Is(err, ErrInvalidAction) {
		e.logger.Debug("invalid action",
			zap.String("phase", phase),
			zap.Stringer("action", a),
			zap.Bool("retained", e.debugRetain),
			zap.Error(err),
		)
		if !e.debugRetain {
			e.arena.Remove(a.ID)
		}
		return
	}
	e.logger.Warn("resolver failed",
		zap.String("phase", phase),
		zap.Stringer("action", a),
		zap.Error(err),
	)
	e.arena.Remove(a.ID)
}
