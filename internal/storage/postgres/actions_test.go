package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/storage/postgres"
	"github.com/cory-johannsen/warband/internal/testutil"
)

var epoch = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func newActionRepo(t *testing.T) *postgres.ActionRepository {
	t.Helper()
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return postgres.NewActionRepository(pc.Pool, zap.NewNop())
}

func TestActionRepository_PersistAndLoad(t *testing.T) {
	repo := newActionRepo(t)
	ctx := context.Background()

	take := &action.Action{
		ID:               1,
		Kind:             action.KindSettlementTake,
		Character:        7,
		Started:          epoch,
		Complete:         clock.At(epoch, 3*time.Hour),
		BlockTravel:      true,
		TargetSettlement: 10,
	}
	support := &action.Action{
		ID:          2,
		Kind:        action.KindMilitaryHire,
		Character:   8,
		Started:     epoch,
		Hourly:      true,
		CanCancel:   action.Bool(false),
		NumberValue: 12.5,
		StringValue: "spearmen",
		Supports:    1,
	}
	require.NoError(t, repo.Persist(ctx, []*action.Action{take, support}, nil, nil))

	got, err := repo.LoadPending(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, action.KindSettlementTake, got[0].Kind)
	require.NotNil(t, got[0].Complete)
	assert.Equal(t, epoch.Add(3*time.Hour), *got[0].Complete)
	assert.True(t, got[0].BlockTravel)
	assert.True(t, got[0].Cancellable())

	assert.Nil(t, got[1].Complete)
	assert.False(t, got[1].Cancellable())
	assert.Equal(t, action.ID(1), got[1].Supports)
	assert.Equal(t, 12.5, got[1].NumberValue)
	assert.Equal(t, "spearmen", got[1].StringValue)
}

func TestActionRepository_UpsertAndRemove(t *testing.T) {
	repo := newActionRepo(t)
	ctx := context.Background()

	a := &action.Action{ID: 5, Kind: action.KindMilitaryBlock, Character: 3, Started: epoch, Listing: 4}
	b := &action.Action{ID: 6, Kind: action.KindSettlementDefend, Character: 3, Started: epoch}
	require.NoError(t, repo.Persist(ctx, []*action.Action{a, b}, nil, nil))

	a.Listing = 9
	a.Priority = 2
	require.NoError(t, repo.Persist(ctx, []*action.Action{a}, []action.ID{6}, nil))

	got, err := repo.LoadPending(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0].Listing)
	assert.Equal(t, 2, got[0].Priority)
}

func TestActionRepository_EmptyPersistIsNoop(t *testing.T) {
	repo := newActionRepo(t)
	require.NoError(t, repo.Persist(context.Background(), nil, nil, nil))
}
