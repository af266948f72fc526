package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/world"
)

const actionColumns = `id, kind, character_id, started, complete, priority, hidden, hourly,
	block_travel, can_cancel, target_settlement, target_realm, target_character,
	target_group, listing, number_value, string_value, supports, opposes`

// ActionRepository stores the pending actions of the queue. It implements
// resolution.Persister.
type ActionRepository struct {
	pool   *Pool
	logger *zap.Logger
}

// NewActionRepository creates an ActionRepository backed by pool.
//
// Precondition: pool must be open.
func NewActionRepository(pool *Pool, logger *zap.Logger) *ActionRepository {
	return &ActionRepository{pool: pool, logger: logger}
}

// LoadPending returns every stored action ordered by id. Unrecognised kind
// strings load as action.KindUnknown.
//
// Postcondition: returned actions have empty Supporting/Opposing sets; the
// arena rebuilds them from Supports/Opposes.
func (r *ActionRepository) LoadPending(ctx context.Context) ([]*action.Action, error) {
	rows, err := r.pool.DB().Query(ctx, `SELECT `+actionColumns+` FROM actions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying actions: %w", err)
	}
	actions, err := pgx.CollectRows(rows, scanAction)
	if err != nil {
		return nil, fmt.Errorf("scanning actions: %w", err)
	}
	r.logger.Info("loaded pending actions", zap.Int("count", len(actions)))
	return actions, nil
}

func scanAction(row pgx.CollectableRow) (*action.Action, error) {
	var (
		a         action.Action
		kind      string
		char      int64
		canCancel bool
		settle    int64
		realm     int64
		target    int64
		group     int64
		supports  int64
		opposes   int64
	)
	err := row.Scan(&a.ID, &kind, &char, &a.Started, &a.Complete, &a.Priority, &a.Hidden, &a.Hourly,
		&a.BlockTravel, &canCancel, &settle, &realm, &target,
		&group, &a.Listing, &a.NumberValue, &a.StringValue, &supports, &opposes)
	if err != nil {
		return nil, err
	}
	a.Kind = action.ParseKind(kind)
	a.Character = world.CharacterID(char)
	a.CanCancel = action.Bool(canCancel)
	a.TargetSettlement = world.SettlementID(settle)
	a.TargetRealm = world.RealmID(realm)
	a.TargetCharacter = world.CharacterID(target)
	a.TargetGroup = battle.GroupID(group)
	a.Supports = action.ID(supports)
	a.Opposes = action.ID(opposes)
	a.Started = a.Started.UTC()
	if a.Complete != nil {
		c := a.Complete.UTC()
		a.Complete = &c
	}
	return &a, nil
}

// Persist upserts changed and deletes removed in one transaction. A non-nil
// battles snapshot replaces the stored battles and groups in the same
// transaction, so restored actions never outlive their battle.
func (r *ActionRepository) Persist(ctx context.Context, changed []*action.Action, removed []action.ID, battles *battle.Snapshot) error {
	start := time.Now()
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, a := range changed {
			batch.Queue(`INSERT INTO actions (`+actionColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
				ON CONFLICT (id) DO UPDATE SET
					kind = EXCLUDED.kind,
					started = EXCLUDED.started,
					complete = EXCLUDED.complete,
					priority = EXCLUDED.priority,
					hidden = EXCLUDED.hidden,
					hourly = EXCLUDED.hourly,
					block_travel = EXCLUDED.block_travel,
					can_cancel = EXCLUDED.can_cancel,
					target_settlement = EXCLUDED.target_settlement,
					target_realm = EXCLUDED.target_realm,
					target_character = EXCLUDED.target_character,
					target_group = EXCLUDED.target_group,
					listing = EXCLUDED.listing,
					number_value = EXCLUDED.number_value,
					string_value = EXCLUDED.string_value,
					supports = EXCLUDED.supports,
					opposes = EXCLUDED.opposes,
					updated_at = NOW()`,
				int64(a.ID), a.Kind.String(), int64(a.Character), a.Started, a.Complete, a.Priority,
				a.Hidden, a.Hourly, a.BlockTravel, a.Cancellable(),
				int64(a.TargetSettlement), int64(a.TargetRealm), int64(a.TargetCharacter), int64(a.TargetGroup),
				a.Listing, a.NumberValue, a.StringValue, int64(a.Supports), int64(a.Opposes),
			)
		}
		if len(removed) > 0 {
			ids := make([]int64, len(removed))
			for i, id := range removed {
				ids[i] = int64(id)
			}
			batch.Queue(`DELETE FROM actions WHERE id = ANY($1)`, ids)
		}
		if battles != nil {
			replaceBattles(batch, battles)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("persisting %d changed and %d removed actions: %w", len(changed), len(removed), err)
	}
	r.logger.Debug("actions persisted",
		zap.Int("changed", len(changed)),
		zap.Int("removed", len(removed)),
		zap.Bool("battles", battles != nil),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
