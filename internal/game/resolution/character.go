package resolution

import (
	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/history"
)

// Escape chances, in percent, by captor state.
const (
	escapeChanceGuarded   = 10.0
	escapeChanceUnguarded = 100.0
)

// escapeResolver rolls a prisoner's escape attempt. The action ends either
// way.
type escapeResolver struct{ *env }

func (r *escapeResolver) Resolve(_ *Tick, a *action.Action) error {
	c, err := r.character(a.Character)
	if err != nil {
		return err
	}
	defer r.remove(a)
	if c.PrisonerOf == 0 {
		return nil
	}
	captor, ok := r.World.Character(c.PrisonerOf)
	if !ok {
		r.World.ReleasePrisoner(c.PrisonerOf, c.ID)
		return nil
	}
	chance := escapeChanceUnguarded
	if captor.Active {
		chance = escapeChanceGuarded
	}
	if r.Roller.Percent("escape", chance).Success {
		r.World.AddAchievement(captor.ID, "escapees", 1)
		r.World.ReleasePrisoner(captor.ID, c.ID)
		r.World.AddAchievement(c.ID, "escaped", 1)
		r.logCharacter(c.ID, "resolution.escape.success",
			history.Params{"%link-character%": captor.ID}, history.High, true, 20)
		r.logCharacter(captor.ID, "resolution.escape.by",
			history.Params{"%link-character%": c.ID}, history.Medium, false, 30)
		return nil
	}
	r.World.AddAchievement(c.ID, "failedescapes", 1)
	r.logCharacter(c.ID, "resolution.escape.failed",
		history.Params{"%link-character%": captor.ID}, history.High, true, 20)
	r.logCharacter(captor.ID, "resolution.escape.try",
		history.Params{"%link-character%": c.ID}, history.Medium, false, 30)
	return nil
}

func (r *escapeResolver) Update(*Tick, *action.Action) error { return ErrNoUpdate }
