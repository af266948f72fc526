package resolution

import (
	"fmt"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/history"
)

// researchResolver widens a reader's access to a log one cycle at a time.
// The action stays due, so every progress pass reaches one cycle further.
// Once no older cycle remains the reader sees the whole log and the
// assigned entourage are freed.
type researchResolver struct{ *env }

func (r *researchResolver) Resolve(_ *Tick, a *action.Action) error {
	subject, err := r.subject(a)
	if err != nil {
		return err
	}
	from, ok := r.Journal.AccessFrom(subject, a.Character)
	if !ok {
		return fmt.Errorf("research of %s by %d: no log access: %w", subject, a.Character, ErrInvalidAction)
	}
	if prev, ok := r.Journal.PreviousCycle(subject, from); ok {
		r.Journal.SetAccessFrom(subject, a.Character, prev)
		return nil
	}
	r.Journal.SetAccessFrom(subject, a.Character, history.FullAccess)
	r.World.FreeEntourage(a.Character, int64(a.ID))
	r.logCharacter(a.Character, "resolution.research.complete",
		history.Params{"%link-log%": subject.String()}, history.Low, false, 30)
	r.remove(a)
	return nil
}

func (r *researchResolver) Update(*Tick, *action.Action) error { return ErrNoUpdate }

// subject picks the researched log: realm, then settlement, then character.
func (r *researchResolver) subject(a *action.Action) (history.Subject, error) {
	switch {
	case a.TargetRealm != 0:
		if _, ok := r.World.Realm(a.TargetRealm); !ok {
			return history.Subject{}, fmt.Errorf("realm %d: %w", a.TargetRealm, ErrInvalidAction)
		}
		return history.OfRealm(a.TargetRealm), nil
	case a.TargetSettlement != 0:
		if _, err := r.settlement(a.TargetSettlement); err != nil {
			return history.Subject{}, err
		}
		return history.OfSettlement(a.TargetSettlement), nil
	case a.TargetCharacter != 0:
		if _, err := r.character(a.TargetCharacter); err != nil {
			return history.Subject{}, err
		}
		return history.OfCharacter(a.TargetCharacter), nil
	}
	return history.Subject{}, fmt.Errorf("research without a log: %w", ErrInvalidAction)
}
