package resolution

import (
	"fmt"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// env is what every resolver sees: the collaborators, the arena and battle
// formation.
type env struct {
	Deps
	arena     *action.Arena
	formation *Formation
}

func newCatalogue(e *env) (*Registry, error) {
	reg := NewRegistry()
	for k, res := range map[action.Kind]Resolver{
		action.KindSettlementTake:       &takeResolver{e},
		action.KindSettlementRename:     &renameResolver{e},
		action.KindSettlementGrant:      &grantResolver{e},
		action.KindSettlementEnter:      &enterResolver{e},
		action.KindSettlementLoot:       &timerResolver{env: e},
		action.KindSettlementAttack:     battleResolver{},
		action.KindSettlementAssault:    battleResolver{},
		action.KindSettlementSortie:     battleResolver{},
		action.KindSettlementDefend:     &defendResolver{e},
		action.KindMilitaryBattle:       battleResolver{},
		action.KindMilitaryBlock:        &blockResolver{e},
		action.KindMilitaryDisengage:    &disengageResolver{e},
		action.KindMilitaryIntercepted:  &interceptedResolver{e},
		action.KindMilitaryAid:          &aidResolver{e},
		action.KindMilitaryEvade:        &timerResolver{env: e},
		action.KindMilitaryHire:         &timerResolver{env: e},
		action.KindMilitaryRegroup:      &timerResolver{env: e, event: "resolution.regroup.success", severity: history.Low, expiry: 15},
		action.KindMilitaryDamage:       &timerResolver{env: e},
		action.KindMilitaryLoot:         &timerResolver{env: e},
		action.KindPersonalPrisonAssign: &timerResolver{env: e},
		action.KindCharacterEscape:      &escapeResolver{e},
		action.KindTaskResearch:         &researchResolver{e},
	} {
		if err := reg.Register(k, res); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (e *env) character(id world.CharacterID) (*world.Character, error) {
	c, ok := e.World.Character(id)
	if !ok {
		return nil, fmt.Errorf("character %d: %w", id, ErrInvalidAction)
	}
	return c, nil
}

func (e *env) settlement(id world.SettlementID) (*world.Settlement, error) {
	s, ok := e.World.Settlement(id)
	if !ok {
		return nil, fmt.Errorf("settlement %d: %w", id, ErrInvalidAction)
	}
	return s, nil
}

func (e *env) remove(a *action.Action) {
	e.arena.Remove(a.ID)
}

func (e *env) put(a *action.Action) {
	e.arena.Put(a)
}

func (e *env) logCharacter(c world.CharacterID, key string, params history.Params, sev history.Severity, notify bool, expiry int) {
	e.History.LogEvent(history.OfCharacter(c), key, params, sev, notify, expiry)
}

func (e *env) logSettlement(s world.SettlementID, key string, params history.Params, sev history.Severity, notify bool, expiry int) {
	e.History.LogEvent(history.OfSettlement(s), key, params, sev, notify, expiry)
}

// failure builds the parameters of a "multi" event listing the failure key
// and its reason.
func failure(key, reason string, extra history.Params) history.Params {
	p := history.Params{"events": []string{key, "resolution." + reason}}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

// timerResolver removes its action when the timer elapses, optionally
// logging an event to the acting character.
type timerResolver struct {
	*env
	event    string
	severity history.Severity
	expiry   int
}

func (r *timerResolver) Resolve(_ *Tick, a *action.Action) error {
	if r.event != "" {
		r.logCharacter(a.Character, r.event, nil, r.severity, false, r.expiry)
	}
	r.remove(a)
	return nil
}

func (r *timerResolver) Update(*Tick, *action.Action) error { return ErrNoUpdate }

// battleResolver is bound to the kinds that mark battle participation. The
// actions stay until combat resolution, owned elsewhere, ends the battle.
type battleResolver struct{}

func (battleResolver) Resolve(*Tick, *action.Action) error { return nil }

func (battleResolver) Update(*Tick, *action.Action) error { return ErrNoUpdate }
