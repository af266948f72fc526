// Package action defines the pending, time-scoped unit of player intent and the
// in-memory arena that owns every pending action.
package action

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// ErrIllegalTransition is returned when an action is asked to change kind
// along an edge the state machine does not allow.
var ErrIllegalTransition = errors.New("action: illegal kind transition")

// ID identifies a pending action. IDs are assigned by the Arena.
type ID int64

// IDSet is an adjacency set of action ids.
type IDSet map[ID]struct{}

// Add inserts id.
func (s IDSet) Add(id ID) { s[id] = struct{}{} }

// Remove deletes id.
func (s IDSet) Remove(id ID) { delete(s, id) }

// Has reports membership.
func (s IDSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Slice returns the members in ascending order.
func (s IDSet) Slice() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Action is a scheduled intent owned by the Arena.
//
// Invariant: an action with non-nil Complete is resolved once Complete < now;
// an action with nil Complete terminates only through explicit removal.
type Action struct {
	ID        ID
	Kind      Kind
	Character world.CharacterID
	Started   time.Time
	Complete  *time.Time
	// Priority orders a character's actions; assigned by the queue.
	Priority int

	Hidden      bool
	Hourly      bool
	BlockTravel bool
	// CanCancel is nil until the queue applies its default of true.
	CanCancel *bool

	TargetSettlement world.SettlementID
	TargetRealm      world.RealmID
	TargetCharacter  world.CharacterID
	TargetGroup      battle.GroupID
	// Listing is the permission listing consulted by military.block.
	Listing int64

	NumberValue float64
	StringValue string

	// Supports and Opposes point at the action this one contributes to or
	// resists. Supporting and Opposing are the inverse sets, maintained by the
	// Arena.
	Supports   ID
	Opposes    ID
	Supporting IDSet
	Opposing   IDSet
}

// Bool returns a pointer to b, for optional flag fields.
func Bool(b bool) *bool { return &b }

// Cancellable reports the effective CanCancel flag (default true).
func (a *Action) Cancellable() bool {
	return a.CanCancel == nil || *a.CanCancel
}

// Timer returns the action's started/complete pair.
func (a *Action) Timer() clock.Timer {
	return clock.Timer{Started: a.Started, Complete: a.Complete}
}

// String renders a short identifier for logs.
func (a *Action) String() string {
	return fmt.Sprintf("%s#%d(char=%d)", a.Kind, a.ID, a.Character)
}

// legalTransitions enumerates the in-place kind changes an action may undergo.
var legalTransitions = map[Kind][]Kind{
	KindMilitaryDisengage: {KindMilitaryIntercepted},
}

// Transition changes the action's kind in place.
//
// Postcondition: on success a.Kind == to; otherwise a is unchanged and the
// error wraps ErrIllegalTransition.
func (a *Action) Transition(to Kind) error {
	for _, k := range legalTransitions[a.Kind] {
		if k == to {
			a.Kind = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.Kind, to)
}

// Clone returns a deep copy of a.
func (a *Action) Clone() *Action {
	cp := *a
	if a.Complete != nil {
		t := *a.Complete
		cp.Complete = &t
	}
	if a.CanCancel != nil {
		b := *a.CanCancel
		cp.CanCancel = &b
	}
	cp.Supporting = make(IDSet, len(a.Supporting))
	for id := range a.Supporting {
		cp.Supporting.Add(id)
	}
	cp.Opposing = make(IDSet, len(a.Opposing))
	for id := range a.Opposing {
		cp.Opposing.Add(id)
	}
	return &cp
}
