package postgres

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/world"
)

// replaceBattles queues statements that swap the stored battles and groups
// for snap.
func replaceBattles(batch *pgx.Batch, snap *battle.Snapshot) {
	batch.Queue(`DELETE FROM battle_groups`)
	batch.Queue(`DELETE FROM battles`)
	position := make(map[battle.GroupID]int)
	for _, b := range snap.Battles {
		for i, gid := range b.Groups {
			position[gid] = i
		}
		batch.Queue(`INSERT INTO battles (id, type, x, y, started, initial_complete, complete, settlement_id, siege_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			int64(b.ID), b.Type.String(), b.Location.X, b.Location.Y,
			b.Started, b.InitialComplete, b.Complete, int64(b.Settlement), int64(b.Siege),
		)
	}
	for _, g := range snap.Groups {
		chars := make([]int64, len(g.Characters))
		for i, c := range g.Characters {
			chars[i] = int64(c)
		}
		batch.Queue(`INSERT INTO battle_groups (id, battle_id, position, attacker, siege_id, characters)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			int64(g.ID), int64(g.Battle), position[g.ID], g.Attacker, int64(g.Siege), chars,
		)
	}
}

// LoadBattles returns every stored battle and group ordered by id. Each
// battle's Groups lists its groups in their stored order.
//
// Postcondition: the result can be passed to battle.Registry.Restore.
func (r *ActionRepository) LoadBattles(ctx context.Context) ([]battle.Battle, []battle.Group, error) {
	rows, err := r.pool.DB().Query(ctx, `SELECT id, type, x, y, started, initial_complete, complete, settlement_id, siege_id
		FROM battles ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("querying battles: %w", err)
	}
	battles, err := pgx.CollectRows(rows, scanBattle)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning battles: %w", err)
	}

	rows, err = r.pool.DB().Query(ctx, `SELECT id, battle_id, position, attacker, siege_id, characters
		FROM battle_groups ORDER BY battle_id, position, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("querying battle groups: %w", err)
	}
	groups, err := pgx.CollectRows(rows, scanGroup)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning battle groups: %w", err)
	}

	index := make(map[battle.ID]int, len(battles))
	for i, b := range battles {
		index[b.ID] = i
	}
	for _, g := range groups {
		if i, ok := index[g.Battle]; ok {
			battles[i].Groups = append(battles[i].Groups, g.ID)
		}
	}
	slices.SortFunc(groups, func(a, b battle.Group) int { return cmp.Compare(a.ID, b.ID) })
	r.logger.Info("loaded battles", zap.Int("battles", len(battles)), zap.Int("groups", len(groups)))
	return battles, groups, nil
}

func scanBattle(row pgx.CollectableRow) (battle.Battle, error) {
	var (
		b      battle.Battle
		kind   string
		settle int64
		siege  int64
	)
	err := row.Scan(&b.ID, &kind, &b.Location.X, &b.Location.Y,
		&b.Started, &b.InitialComplete, &b.Complete, &settle, &siege)
	if err != nil {
		return battle.Battle{}, err
	}
	t, ok := battle.ParseType(kind)
	if !ok {
		return battle.Battle{}, fmt.Errorf("battle %d: unknown type %q", b.ID, kind)
	}
	b.Type = t
	b.Settlement = world.SettlementID(settle)
	b.Siege = world.SiegeID(siege)
	b.Started = b.Started.UTC()
	b.InitialComplete = b.InitialComplete.UTC()
	b.Complete = b.Complete.UTC()
	return b, nil
}

func scanGroup(row pgx.CollectableRow) (battle.Group, error) {
	var (
		g        battle.Group
		battleID int64
		position int
		siege    int64
		chars    []int64
	)
	if err := row.Scan(&g.ID, &battleID, &position, &g.Attacker, &siege, &chars); err != nil {
		return battle.Group{}, err
	}
	g.Battle = battle.ID(battleID)
	g.Siege = world.SiegeID(siege)
	g.Characters = make([]world.CharacterID, len(chars))
	for i, c := range chars {
		g.Characters[i] = world.CharacterID(c)
	}
	return g, nil
}
