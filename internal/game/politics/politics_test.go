package politics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/politics"
	"github.com/cory-johannsen/warband/internal/game/world"
)

func TestService_ChangeSettlementOwner(t *testing.T) {
	mem := history.NewMemory(clock.NewManual(time.Unix(0, 0)))
	svc := politics.NewService(mem, zap.NewNop())
	s := &world.Settlement{ID: 4, Owner: 1}

	svc.ChangeSettlementOwner(s, 2, "take")
	svc.ChangeSettlementOwner(s, 2, "take")

	assert.Equal(t, world.CharacterID(2), s.Owner)
	assert.Equal(t, []string{"event.settlement.owner.take"}, mem.Keys(history.OfSettlement(4)))
}

func TestService_ChangeSettlementRealm(t *testing.T) {
	mem := history.NewMemory(clock.NewManual(time.Unix(0, 0)))
	svc := politics.NewService(mem, zap.NewNop())
	s := &world.Settlement{ID: 4, Realm: 1}

	svc.ChangeSettlementRealm(s, 2, "take")
	svc.ChangeSettlementRealm(s, 0, "grant")

	assert.Zero(t, s.Realm)
	assert.Equal(t, []string{"event.settlement.realm.take", "event.settlement.realm.none"},
		mem.Keys(history.OfSettlement(4)))
	assert.Equal(t, []string{"event.realm.lost.settlement"}, mem.Keys(history.OfRealm(1)))
	assert.Equal(t, []string{"event.realm.gained.settlement", "event.realm.lost.settlement"},
		mem.Keys(history.OfRealm(2)))
}
