package resolution

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// BattleRequest describes an attack. Settlement, Siege and the two groups
// are optional; a siege battle requires Attackers.
type BattleRequest struct {
	Character  *world.Character
	Settlement *world.Settlement
	Targets    []*world.Character
	Siege      *world.Siege
	Attackers  *battle.Group
	Defenders  *battle.Group
}

// BattleResult reports the formed battle.
type BattleResult struct {
	// Time is the preparation period before the battle starts.
	Time time.Duration
	// Outside is true for a sortie against targets outside the settlement.
	Outside bool
	Battle  *battle.Battle
}

// engagement is how a battle is announced and which action kind its
// participants receive.
type engagement int

const (
	engageField engagement = iota
	engageSkirmish
	engageSortie
	engageAssault
	engageSiegeSortie
)

func (e engagement) kind() action.Kind {
	switch e {
	case engageAssault:
		return action.KindSettlementAssault
	case engageSortie, engageSiegeSortie:
		return action.KindSettlementSortie
	default:
		return action.KindMilitaryBattle
	}
}

// Formation classifies and creates battles and disengage attempts.
type Formation struct {
	deps  Deps
	arena *action.Arena
}

// CreateBattle classifies the attack, creates the battle and its groups,
// sets the preparation timer, and gives every participant a battle action.
//
// Precondition: req.Character and every entry of req.Targets are non-nil.
// Postcondition: on error nothing has been created.
func (f *Formation) CreateBattle(t *Tick, req BattleRequest) (BattleResult, error) {
	c := req.Character
	if c == nil {
		return BattleResult{}, fmt.Errorf("creating battle: no attacker: %w", ErrInvalidAction)
	}
	for i, tgt := range req.Targets {
		if tgt == nil {
			return BattleResult{}, fmt.Errorf("creating battle for %d: target %d is nil: %w", c.ID, i, ErrInvalidAction)
		}
	}
	b := &battle.Battle{Started: t.Now}
	targets := req.Targets
	outside := false
	var eng engagement
	var anchor *world.Settlement

	switch {
	case req.Siege != nil:
		if req.Attackers == nil {
			return BattleResult{}, fmt.Errorf("creating siege battle for siege %d: no attacking group", req.Siege.ID)
		}
		s, ok := f.deps.World.Settlement(req.Siege.Settlement)
		if !ok {
			return BattleResult{}, fmt.Errorf("creating siege battle: settlement %d: %w", req.Siege.Settlement, ErrInvalidAction)
		}
		anchor = s
		b.Siege = req.Siege.ID
		b.Settlement = s.ID
		b.Location = s.Center
		if req.Attackers.Attacker {
			b.Type, eng = battle.TypeSiegeAssault, engageAssault
		} else {
			b.Type, eng = battle.TypeSiegeSortie, engageSiegeSortie
		}

	case req.Settlement != nil:
		anchor = req.Settlement
		b.Settlement = req.Settlement.ID
		var inside, out []*world.Character
		for _, tgt := range targets {
			if tgt.Inside == req.Settlement.ID {
				inside = append(inside, tgt)
			} else {
				out = append(out, tgt)
			}
		}
		switch {
		case len(inside) > 0:
			// Attackers inside the walls cannot reach targets outside them.
			targets = inside
			b.Type, eng = battle.TypeUrban, engageSkirmish
			b.Location = req.Settlement.Center
		case len(out) > 0:
			outside = true
			b.Type, eng = battle.TypeField, engageSortie
			b.Location = locate(out)
		default:
			return BattleResult{}, fmt.Errorf("creating battle at settlement %d: %w", req.Settlement.ID, ErrNoTargets)
		}

	default:
		if len(targets) == 0 {
			return BattleResult{}, fmt.Errorf("creating field battle for character %d: %w", c.ID, ErrNoTargets)
		}
		b.Type, eng = battle.TypeField, engageField
		b.Location = locate(targets)
	}

	f.deps.Battles.AddBattle(b)
	attackers := req.Attackers
	if attackers == nil {
		attackers = f.deps.Battles.NewGroup(true)
	}
	defenders := req.Defenders
	if defenders == nil {
		defenders = f.deps.Battles.NewGroup(false)
	}
	if req.Siege == nil {
		attackers.Attacker = true
		attackers.Add(c.ID)
		defenders.Attacker = false
		for _, tgt := range targets {
			defenders.Add(tgt.ID)
		}
	}
	for _, g := range []*battle.Group{attackers, defenders} {
		if err := f.deps.Battles.Attach(b, g); err != nil {
			f.deps.Battles.End(b.ID)
			return BattleResult{}, fmt.Errorf("creating battle: %w", err)
		}
	}

	prep := clock.Seconds(f.deps.Math.PreparationTime(b))
	b.InitialComplete = t.Now.Add(prep)
	b.Complete = b.InitialComplete

	if anchor != nil {
		if key := announcement(eng); key != "" {
			f.deps.History.LogEvent(history.OfSettlement(anchor.ID), key,
				history.Params{"%link-character%": c.ID}, history.High, false, 60)
		}
	}

	kind := eng.kind()
	var targetSettlement world.SettlementID
	if anchor != nil {
		targetSettlement = anchor.ID
	}
	t.Enqueue(&action.Action{
		Kind:             kind,
		Character:        c.ID,
		TargetSettlement: targetSettlement,
		TargetGroup:      attackers.ID,
		CanCancel:        action.Bool(false),
		BlockTravel:      true,
	}, true)
	t.Bind(c.ID)
	c.TravelLocked = true

	for _, tgt := range targets {
		act := &action.Action{
			Kind:        kind,
			Character:   tgt.ID,
			TargetGroup: defenders.ID,
			StringValue: "forced",
			CanCancel:   action.Bool(false),
			BlockTravel: true,
		}
		t.Enqueue(act, true)
		t.Bind(tgt.ID)
		if f.arena.HasKind(tgt.ID, action.KindMilitaryEvade) {
			f.CreateDisengage(t, tgt, defenders.ID, act.ID)
			f.deps.History.LogEvent(history.OfCharacter(tgt.ID), "resolution.attack.evading",
				history.Params{"%time%": prep.String(), "%link-character%": c.ID}, history.High, false, 25)
		} else {
			f.deps.History.LogEvent(history.OfCharacter(tgt.ID), "resolution.attack.targeted",
				history.Params{"%time%": prep.String(), "%link-character%": c.ID}, history.High, false, 25)
		}
		tgt.TravelLocked = true
	}

	return BattleResult{Time: prep, Outside: outside, Battle: b}, nil
}

func announcement(e engagement) string {
	switch e {
	case engageAssault:
		return "event.settlement.siege.assault"
	case engageSiegeSortie:
		return "event.settlement.siege.sortie"
	case engageSkirmish:
		return "event.settlement.skirmish"
	case engageSortie:
		return "event.settlement.sortie"
	default:
		return ""
	}
}

func locate(cs []*world.Character) world.Point {
	pts := make([]world.Point, len(cs))
	for i, c := range cs {
		pts[i] = c.Location
	}
	p, _ := world.Centroid(pts)
	return p
}

// CreateDisengage schedules a cancellable disengage attempt for c out of
// group, opposing the battle action opposed.
//
// Postcondition: the action completes CalculateDisengageTime(c) from now.
func (f *Formation) CreateDisengage(t *Tick, c *world.Character, group battle.GroupID, opposed action.ID) EnqueueResult {
	return t.Enqueue(&action.Action{
		Kind:        action.KindMilitaryDisengage,
		Character:   c.ID,
		TargetGroup: group,
		Opposes:     opposed,
		Complete:    clock.At(t.Now, CalculateDisengageTime(c)),
		CanCancel:   action.Bool(true),
	}, false)
}
