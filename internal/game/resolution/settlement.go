package resolution

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// Time-to-take is only rescaled when it moves outside this band.
const (
	takeRatioLow  = 0.99
	takeRatioHigh = 1.01
)

// Grant options carried in StringValue.
const (
	grantKeepClaim  = "keep_claim"
	grantClearRealm = "clear_realm"
)

// takeResolver captures a settlement when its timer elapses and keeps the
// timer in step with the forces supporting and opposing the capture.
type takeResolver struct{ *env }

func (r *takeResolver) Resolve(_ *Tick, a *action.Action) error {
	c, s, ok, err := r.check(a)
	if err != nil {
		return err
	}
	if ok {
		if s.Owner != 0 {
			r.Journal.CloseLog(history.OfSettlement(s.ID), s.Owner)
		}
		r.Journal.OpenLog(history.OfSettlement(s.ID), c.ID)
		r.Politics.ChangeSettlementOwner(s, c.ID, "take")
		r.Politics.ChangeSettlementRealm(s, a.TargetRealm, "take")
		if c.Inside != s.ID {
			r.World.EnterSettlement(c.ID, s.ID)
		}
	}
	r.remove(a)
	return nil
}

func (r *takeResolver) Update(t *Tick, a *action.Action) error {
	c, s, ok, err := r.check(a)
	if err != nil {
		return err
	}
	if !ok {
		r.remove(a)
		return nil
	}
	attackers := c.ActiveSoldiers() + r.sum(a.Supporting)
	defenders := r.sum(a.Opposing)
	total := r.Math.TimeToTake(s, c, attackers, defenders)
	timer := a.Timer()
	if ratio := timer.Ratio(total); ratio < takeRatioLow || ratio > takeRatioHigh {
		complete := timer.Rescale(t.Now, total)
		// Re-anchor Started so the timer's length is the new total.
		a.Started = complete.Add(-total)
		a.Complete = &complete
		r.put(a)
	}
	return nil
}

// sum totals the active soldiers of the characters behind actions.
func (r *takeResolver) sum(ids action.IDSet) int {
	n := 0
	for _, id := range ids.Slice() {
		other, ok := r.arena.Get(id)
		if !ok {
			continue
		}
		if ch, ok := r.World.Character(other.Character); ok {
			n += ch.ActiveSoldiers()
		}
	}
	return n
}

// check re-tests the take permission, logging failure to both parties.
func (r *takeResolver) check(a *action.Action) (*world.Character, *world.Settlement, bool, error) {
	c, err := r.character(a.Character)
	if err != nil {
		return nil, nil, false, err
	}
	s, err := r.settlement(a.TargetSettlement)
	if err != nil {
		return nil, nil, false, err
	}
	if d := r.Permissions.CanTake(c, s); !d.OK {
		r.logCharacter(c.ID, "multi",
			failure("resolution.take.failed", d.Reason, history.Params{"%link-settlement%": s.ID}),
			history.Low, false, 30)
		r.logSettlement(s.ID, "event.settlement.take.stopped",
			history.Params{"%link-character%": c.ID}, history.High, true, 20)
		return c, s, false, nil
	}
	return c, s, true, nil
}

// renameResolver renames a settlement if its owner still may.
type renameResolver struct{ *env }

func (r *renameResolver) Resolve(_ *Tick, a *action.Action) error {
	c, err := r.character(a.Character)
	if err != nil {
		return err
	}
	s, err := r.settlement(a.TargetSettlement)
	if err != nil {
		return err
	}
	if a.StringValue == "" {
		return fmt.Errorf("rename of settlement %d: empty name: %w", s.ID, ErrInvalidAction)
	}
	if d := r.Permissions.CanRename(c, s); !d.OK {
		r.logCharacter(c.ID, "multi",
			failure("resolution.rename.failed", d.Reason, history.Params{"%link-settlement%": s.ID}),
			history.Low, false, 30)
		r.remove(a)
		return nil
	}
	old := s.Name
	s.Name = a.StringValue
	r.logSettlement(s.ID, "event.settlement.renamed",
		history.Params{"%oldname%": old, "%newname%": s.Name}, history.Medium, true, 0)
	r.logCharacter(c.ID, "resolution.rename.success",
		history.Params{"%link-settlement%": s.ID, "%new%": s.Name}, history.Low, false, 20)
	r.remove(a)
	return nil
}

func (r *renameResolver) Update(*Tick, *action.Action) error { return ErrNoUpdate }

// grantResolver hands a settlement to another character.
type grantResolver struct{ *env }

func (r *grantResolver) Resolve(_ *Tick, a *action.Action) error {
	c, err := r.character(a.Character)
	if err != nil {
		return err
	}
	s, err := r.settlement(a.TargetSettlement)
	if err != nil {
		return err
	}
	to, err := r.character(a.TargetCharacter)
	if err != nil {
		return err
	}
	if d := r.Permissions.CanGrant(c, s, to); !d.OK {
		r.logCharacter(c.ID, "resolution.grant.failed", history.Params{
			"%link-settlement%": s.ID,
			"%link-character%":  to.ID,
			"%reason%":          "resolution." + d.Reason,
		}, history.Medium, false, 30)
		r.remove(a)
		return nil
	}
	subject := history.OfSettlement(s.ID)
	if s.Owner != 0 {
		r.Journal.CloseLog(subject, s.Owner)
	}
	r.Journal.OpenLog(subject, to.ID)
	reason := "grant"
	if containsFlag(a.StringValue, grantKeepClaim) {
		reason = "grant_fief"
	}
	r.Politics.ChangeSettlementOwner(s, to.ID, reason)
	if containsFlag(a.StringValue, grantClearRealm) && s.Realm != 0 {
		r.Politics.ChangeSettlementRealm(s, 0, "grant")
	}
	r.remove(a)
	return nil
}

func (r *grantResolver) Update(*Tick, *action.Action) error { return ErrNoUpdate }

// enterResolver moves a character into a settlement.
type enterResolver struct{ *env }

func (r *enterResolver) Resolve(_ *Tick, a *action.Action) error {
	if _, err := r.character(a.Character); err != nil {
		return err
	}
	s, err := r.settlement(a.TargetSettlement)
	if err != nil {
		return err
	}
	key := "resolution.enter.success"
	if !r.World.EnterSettlement(a.Character, s.ID) {
		key = "resolution.enter.failed"
	}
	r.logCharacter(a.Character, key, history.Params{"%link-settlement%": s.ID}, history.Low, false, 10)
	r.remove(a)
	return nil
}

func (r *enterResolver) Update(*Tick, *action.Action) error { return ErrNoUpdate }

// defendResolver drops a defence order once the defender wanders off.
type defendResolver struct{ *env }

func (r *defendResolver) Resolve(*Tick, *action.Action) error { return ErrNoResolve }

func (r *defendResolver) Update(_ *Tick, a *action.Action) error {
	c, err := r.character(a.Character)
	if err != nil {
		return err
	}
	s, err := r.settlement(a.TargetSettlement)
	if err != nil {
		return err
	}
	if r.Geography.DistanceToSettlement(c, s) > r.Geography.ActionDistance(s) {
		r.logCharacter(c.ID, "resolution.defend.removed",
			history.Params{"%link-settlement%": s.ID}, history.Low, false, 10)
		r.remove(a)
	}
	return nil
}

// containsFlag reports whether flag appears in a comma or space separated
// option string.
func containsFlag(options, flag string) bool {
	for _, f := range strings.FieldsFunc(options, func(r rune) bool { return r == ',' || r == ' ' }) {
		if f == flag {
			return true
		}
	}
	return false
}
