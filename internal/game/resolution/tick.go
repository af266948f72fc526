package resolution

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// Tick is the explicit context of one queue pass. Resolvers read the pass
// time from it, schedule follow-up actions through it, and the engine records
// every acting character on it.
type Tick struct {
	ID  uuid.UUID
	Now time.Time

	q          *Queue
	characters map[world.CharacterID]struct{}
	resolved   int
	discarded  int
	updated    int
}

func newTick(q *Queue, now time.Time) *Tick {
	return &Tick{
		ID:         uuid.New(),
		Now:        now,
		q:          q,
		characters: make(map[world.CharacterID]struct{}),
	}
}

// Bind records c as an acting character of this pass.
func (t *Tick) Bind(c world.CharacterID) {
	if c == 0 {
		return
	}
	if t.characters == nil {
		t.characters = make(map[world.CharacterID]struct{})
	}
	t.characters[c] = struct{}{}
}

// Characters returns the acting characters in ascending id order.
func (t *Tick) Characters() []world.CharacterID {
	out := make([]world.CharacterID, 0, len(t.characters))
	for c := range t.characters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Enqueue schedules a within the current pass. It follows the same rules as
// Queue.Enqueue but does not take the queue lock.
//
// Precondition: t was created by a Queue.
func (t *Tick) Enqueue(a *action.Action, neverImmediate bool) EnqueueResult {
	return t.q.enqueue(t, a, neverImmediate)
}

// TickReport summarises one queue pass.
type TickReport struct {
	ID         uuid.UUID
	Now        time.Time
	Resolved   int
	Discarded  int
	Updated    int
	Characters []world.CharacterID
}

func (t *Tick) report() TickReport {
	return TickReport{
		ID:         t.ID,
		Now:        t.Now,
		Resolved:   t.resolved,
		Discarded:  t.discarded,
		Updated:    t.updated,
		Characters: t.Characters(),
	}
}

// Empty reports whether the pass neither touched an action nor involved a
// character.
func (r TickReport) Empty() bool {
	return r.Resolved == 0 && r.Discarded == 0 && r.Updated == 0 && len(r.Characters) == 0
}
