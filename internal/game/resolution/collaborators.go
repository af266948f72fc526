package resolution

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/battlemath"
	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/game/dice"
	"github.com/cory-johannsen/warband/internal/game/geo"
	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/permission"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// Politics changes settlement ownership and realm affiliation.
type Politics interface {
	ChangeSettlementOwner(s *world.Settlement, owner world.CharacterID, reason string)
	ChangeSettlementRealm(s *world.Settlement, realm world.RealmID, reason string)
}

// TickObserver receives a report after every queue pass that resolved or
// updated anything.
type TickObserver interface {
	AfterTick(r TickReport)
}

// Deps bundles the collaborators resolvers read and mutate.
//
// Precondition for NewQueue: every field except Observer must be non-nil.
type Deps struct {
	World       *world.State
	Battles     *battle.Registry
	Geography   geo.Geography
	Permissions permission.Checker
	Politics    Politics
	Math        battlemath.Calculator
	History     history.Sink
	Journal     history.Journal
	Roller      *dice.Roller
	Clock       clock.Clock
	Logger      *zap.Logger
	Observer    TickObserver
}

func (d Deps) validate() error {
	for _, dep := range []struct {
		name    string
		missing bool
	}{
		{"World", d.World == nil},
		{"Battles", d.Battles == nil},
		{"Geography", d.Geography == nil},
		{"Permissions", d.Permissions == nil},
		{"Politics", d.Politics == nil},
		{"Math", d.Math == nil},
		{"History", d.History == nil},
		{"Journal", d.Journal == nil},
		{"Roller", d.Roller == nil},
		{"Clock", d.Clock == nil},
		{"Logger", d.Logger == nil},
	} {
		if dep.missing {
			return &MissingDependencyError{Name: dep.name}
		}
	}
	return nil
}

// MissingDependencyError reports a nil collaborator passed to NewQueue.
type MissingDependencyError struct {
	Name string
}

func (e *MissingDependencyError) Error() string {
	return "resolution: missing dependency " + e.Name
}
