package resolution

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// RegroupTime is how long enemies regroup after a successful disengage.
const RegroupTime = 60 * time.Minute

// Travel nudges applied after a disengage attempt, as fractions of speed.
const (
	disengageGetAway = 0.1
	interceptGetAway = 0.05
)

// disengageBlockers are the kinds that commit a character to the fight.
var disengageBlockers = []action.Kind{
	action.KindMilitaryBlock,
	action.KindMilitaryDamage,
	action.KindMilitaryLoot,
	action.KindSettlementAttack,
	action.KindSettlementDefend,
}

// blockResolver attacks matching characters that come within reach.
type blockResolver struct{ *env }

// Resolve runs the block check one last time and retires the order.
func (r *blockResolver) Resolve(t *Tick, a *action.Action) error {
	fired, err := r.check(t, a)
	if err != nil {
		return err
	}
	if !fired {
		r.logCharacter(a.Character, "resolution.block.expired", nil, history.Low, false, 10)
		r.remove(a)
	}
	return nil
}

// Update attacks every matching victim in range.
func (r *blockResolver) Update(t *Tick, a *action.Action) error {
	_, err := r.check(t, a)
	return err
}

func (r *blockResolver) check(t *Tick, a *action.Action) (bool, error) {
	c, err := r.character(a.Character)
	if err != nil {
		return false, err
	}
	if r.Battles.InBattle(c.ID) {
		return false, nil
	}
	var victims []*world.Character
	for _, target := range r.Geography.CharactersNear(c, 2*r.Geography.InteractionDistance(c)) {
		if target.IsGM() {
			continue
		}
		match, _, _ := r.Permissions.CheckListing(a.Listing, target)
		if (match && a.StringValue == "attack") || (!match && a.StringValue == "allow") {
			victims = append(victims, target)
		}
	}
	if len(victims) == 0 {
		return false, nil
	}
	if _, err := r.formation.CreateBattle(t, BattleRequest{Character: c, Targets: victims}); err != nil {
		return false, fmt.Errorf("block by %d: %w", c.ID, err)
	}
	r.remove(a)
	return true, nil
}

// disengageResolver rolls a character's attempt to slip out of a battle.
type disengageResolver struct{ *env }

func (r *disengageResolver) Resolve(t *Tick, a *action.Action) error {
	c, err := r.character(a.Character)
	if err != nil {
		return err
	}
	group, ok := r.Battles.Group(a.TargetGroup)
	if !ok {
		return fmt.Errorf("disengage group %d: %w", a.TargetGroup, ErrInvalidAction)
	}
	enemy, ok := r.Battles.Enemy(group.ID)
	if !ok {
		// The battle is over; there is nobody left to slip away from.
		r.remove(a)
		return nil
	}
	var enemies []*world.Character
	enemyActive := 0
	for _, id := range enemy.Characters {
		if e, ok := r.World.Character(id); ok {
			enemies = append(enemies, e)
			enemyActive += e.ActiveSoldiers()
		}
	}
	chance := DisengageChance(c.LivingSoldiers(), len(c.Entourage), r.Geography.LocalBiome(c).Spot,
		enemyActive, r.arena.HasKind(c.ID, disengageBlockers...))
	check := r.Roller.Percent("disengage", chance)

	getAway := interceptGetAway
	if check.Success {
		for _, e := range enemies {
			t.Enqueue(&action.Action{
				Kind:      action.KindMilitaryRegroup,
				Character: e.ID,
				Complete:  clock.At(t.Now, RegroupTime),
				CanCancel: action.Bool(false),
			}, true)
		}
		if err := r.Battles.RemoveFromGroup(c.ID, group.ID); err != nil {
			r.Logger.Debug("disengage: not in group", zap.Int64("character", int64(c.ID)), zap.Error(err))
		}
		r.logCharacter(c.ID, "resolution.disengage.success", history.Params{"%roll%": check.String()}, history.Medium, false, 10)
		r.remove(a)
		getAway = disengageGetAway
	} else {
		r.logCharacter(c.ID, "resolution.disengage.failed", history.Params{"%roll%": check.String()}, history.Medium, false, 10)
		if err := a.Transition(action.KindMilitaryIntercepted); err != nil {
			return err
		}
		a.Hidden = true
		a.CanCancel = action.Bool(false)
		// Interception is open-ended; the refresh pass retires it.
		a.Complete = nil
		r.put(a)
	}

	for _, other := range r.arena.ForCharacter(c.ID) {
		if other.Kind.IsBattle() && other.TargetGroup == a.TargetGroup {
			other.BlockTravel = false
			r.put(other)
		}
	}
	c.Nudge(c.Speed * getAway)
	return nil
}

func (r *disengageResolver) Update(*Tick, *action.Action) error { return ErrNoUpdate }

// interceptedResolver retires an interception once its character no longer
// fights.
type interceptedResolver struct{ *env }

func (r *interceptedResolver) Resolve(t *Tick, a *action.Action) error {
	if r.check(a) {
		a.Complete = nil
		r.put(a)
	}
	return nil
}

func (r *interceptedResolver) Update(t *Tick, a *action.Action) error {
	r.check(a)
	return nil
}

// check removes a when its character has no battle action of any kind and
// reports whether a is still held.
func (r *interceptedResolver) check(a *action.Action) bool {
	if r.arena.HasKind(a.Character, action.BattleKinds...) {
		return true
	}
	r.remove(a)
	return false
}

// aidResolver joins a character to every side its target fights on once the
// two are close enough.
type aidResolver struct{ *env }

func (r *aidResolver) Resolve(_ *Tick, a *action.Action) error {
	r.logCharacter(a.Character, "resolution.aid.removed",
		history.Params{"%link-character%": a.TargetCharacter}, history.Low, false, 10)
	r.remove(a)
	return nil
}

func (r *aidResolver) Update(_ *Tick, a *action.Action) error {
	c, err := r.character(a.Character)
	if err != nil {
		return err
	}
	if r.Battles.InBattle(c.ID) || r.arena.HasKind(c.ID, action.KindMilitaryRegroup) {
		return nil
	}
	target, err := r.character(a.TargetCharacter)
	if err != nil {
		return err
	}
	groups := r.Battles.GroupsOf(target.ID)
	if len(groups) == 0 {
		return nil
	}
	if r.Geography.DistanceToCharacter(c, target) >= r.Geography.InteractionDistance(c) || c.Inside != target.Inside {
		return nil
	}
	for _, g := range groups {
		if err := r.Battles.Join(c.ID, g.ID); err != nil {
			return err
		}
		r.logCharacter(c.ID, "resolution.aid.success",
			history.Params{"%link-character%": target.ID}, history.High, false, 15)
	}
	r.remove(a)
	return nil
}
