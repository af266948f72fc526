// Package politics changes who owns settlements and which realm they belong
// to, recording each change in the settlement's history.
package politics

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// Service applies ownership and realm changes.
type Service struct {
	history history.Sink
	logger  *zap.Logger
}

// NewService returns a Service.
//
// Precondition: all arguments must be non-nil.
func NewService(sink history.Sink, logger *zap.Logger) *Service {
	return &Service{history: sink, logger: logger}
}

// ChangeSettlementOwner sets s.Owner to owner and logs
// "event.settlement.owner.<reason>". A no-op when owner already holds s.
func (p *Service) ChangeSettlementOwner(s *world.Settlement, owner world.CharacterID, reason string) {
	if s.Owner == owner {
		return
	}
	previous := s.Owner
	s.Owner = owner
	p.history.LogEvent(history.OfSettlement(s.ID), "event.settlement.owner."+reason,
		history.Params{"%link-character%": owner, "%link-character-2%": previous},
		history.High, true, 0)
	p.logger.Info("settlement owner changed",
		zap.Int64("settlement", int64(s.ID)),
		zap.Int64("from", int64(previous)),
		zap.Int64("to", int64(owner)),
		zap.String("reason", reason),
	)
}

// ChangeSettlementRealm moves s into realm; zero leaves it unaffiliated.
func (p *Service) ChangeSettlementRealm(s *world.Settlement, realm world.RealmID, reason string) {
	if s.Realm == realm {
		return
	}
	previous := s.Realm
	s.Realm = realm
	key := "event.settlement.realm." + reason
	if realm == 0 {
		key = "event.settlement.realm.none"
	}
	p.history.LogEvent(history.OfSettlement(s.ID), key,
		history.Params{"%link-realm%": realm, "%link-realm-2%": previous},
		history.High, true, 0)
	if previous != 0 {
		p.history.LogEvent(history.OfRealm(previous), "event.realm.lost.settlement",
			history.Params{"%link-settlement%": s.ID}, history.Medium, false, 0)
	}
	if realm != 0 {
		p.history.LogEvent(history.OfRealm(realm), "event.realm.gained.settlement",
			history.Params{"%link-settlement%": s.ID}, history.Medium, false, 0)
	}
	p.logger.Info("settlement realm changed",
		zap.Int64("settlement", int64(s.ID)),
		zap.Int64("from", int64(previous)),
		zap.Int64("to", int64(realm)),
		zap.String("reason", reason),
	)
}
