// Package main provides the action server binary: it loads the world, restores
// pending actions and drives the action queue on a fixed tick.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/cory-johannsen/warband/internal/config"
	"github.com/cory-johannsen/warband/internal/game/action"
	"github.com/cory-johannsen/warband/internal/game/battle"
	"github.com/cory-johannsen/warband/internal/game/battlemath"
	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/game/dice"
	"github.com/cory-johannsen/warband/internal/game/geo"
	"github.com/cory-johannsen/warband/internal/game/history"
	"github.com/cory-johannsen/warband/internal/game/permission"
	"github.com/cory-johannsen/warband/internal/game/politics"
	"github.com/cory-johannsen/warband/internal/game/request"
	"github.com/cory-johannsen/warband/internal/game/resolution"
	"github.com/cory-johannsen/warband/internal/game/world"
	"github.com/cory-johannsen/warband/internal/gameserver"
	"github.com/cory-johannsen/warband/internal/observability"
	"github.com/cory-johannsen/warband/internal/scripting"
	"github.com/cory-johannsen/warband/internal/server"
	"github.com/cory-johannsen/warband/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "actionserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting action server",
		zap.String("grpc_addr", cfg.Server.Addr()),
		zap.Bool("database", cfg.Database.Enabled),
	)

	clk := clock.System{}

	var src dice.Source
	if cfg.Queue.Seed != 0 {
		src = dice.NewSeededSource(cfg.Queue.Seed)
		logger.Warn("dice seeded; rolls are reproducible", zap.Uint64("seed", cfg.Queue.Seed))
	} else {
		src = dice.NewCryptoSource()
	}
	roller := dice.NewRoller(src, logger)

	worldStart := time.Now()
	state, err := world.LoadFile(cfg.World.Fixture)
	if err != nil {
		logger.Fatal("loading world", zap.Error(err))
	}
	logger.Info("world loaded",
		zap.String("fixture", cfg.World.Fixture),
		zap.Int("characters", len(state.Characters())),
		zap.Int("realms", len(state.Realms())),
		zap.Duration("elapsed", time.Since(worldStart)),
	)

	scripts := scripting.NewManager(roller, logger)
	defer scripts.Close()
	if cfg.Scripting.BattleScript != "" {
		if err := loadScripts(scripts, cfg.Scripting); err != nil {
			logger.Fatal("loading battle script", zap.Error(err))
		}
		logger.Info("battle script loaded", zap.String("path", cfg.Scripting.BattleScript))
	}

	journal := history.NewMemory(clk)
	sinks := history.Fanout{journal}

	lifecycle := server.NewLifecycle(logger)

	var persister resolution.Persister
	arena := action.NewArena()
	battles := battle.NewRegistry()
	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		actions := postgres.NewActionRepository(pool, logger)
		stored, groups, err := actions.LoadBattles(ctx)
		if err != nil {
			logger.Fatal("loading battles", zap.Error(err))
		}
		if err := battles.Restore(stored, groups); err != nil {
			logger.Fatal("restoring battles", zap.Error(err))
		}
		pending, err := actions.LoadPending(ctx)
		if err != nil {
			logger.Fatal("loading pending actions", zap.Error(err))
		}
		if err := arena.Load(pending); err != nil {
			logger.Fatal("restoring pending actions", zap.Error(err))
		}
		persister = actions

		events := postgres.NewEventRepository(pool, clk, journal.Cycle, logger, postgres.DefaultEventBuffer)
		sinks = append(sinks, events)

		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func(ctx context.Context) error {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
						if err := pool.Health(ctx, 5*time.Second); err != nil {
							logger.Warn("database health check failed", zap.Error(err))
						}
					}
				}
			},
			StopFn: func(context.Context) error {
				pool.Close()
				return nil
			},
		})
		lifecycle.Add("events", events)
	} else {
		logger.Warn("database disabled; pending actions are not persisted")
	}
	sink := history.NewZapSink(sinks, logger)

	geography := geo.New(state, geo.Config{
		InteractionBase: cfg.Geo.InteractionBase,
		ActionRange:     cfg.Geo.ActionRange,
	})
	ticks := gameserver.NewTickLogger(logger)

	queue, err := resolution.NewQueue(resolution.Config{
		MaxProgress:      cfg.Queue.MaxProgress,
		ImmediateActions: cfg.Queue.ImmediateActions,
		DebugRetain:      cfg.Queue.DebugRetain,
	}, resolution.Deps{
		World:       state,
		Battles:     battles,
		Geography:   geography,
		Permissions: permission.NewRules(state, geography, battles),
		Politics:    politics.NewService(sink, logger),
		Math:        battlemath.NewScripted(state, battles, scripts, logger),
		History:     sink,
		Journal:     journal,
		Roller:      roller,
		Clock:       clk,
		Logger:      logger,
		Observer:    ticks,
	}, arena, persister)
	if err != nil {
		logger.Fatal("creating action queue", zap.Error(err))
	}
	if n, err := queue.Reconcile(ctx); err != nil {
		logger.Fatal("reconciling restored actions", zap.Error(err))
	} else if n > 0 {
		logger.Warn("dropped actions bound to missing battle groups", zap.Int("count", n))
	}
	logger.Info("action queue ready", zap.Int("pending", queue.Len()))

	requests := request.NewManager(state, clk, sink, journal, logger)

	driver := gameserver.NewDriver(queue, cfg.Queue.TickInterval, cfg.Queue.HourlyInterval, clk.Now, logger)
	driver.OnHourly(func(_ context.Context, now time.Time) error {
		if n := requests.Purge(now); n > 0 {
			logger.Info("purged decided requests", zap.Int("count", n))
		}
		return nil
	})
	driver.OnHourly(func(context.Context, time.Time) error {
		journal.SetCycle(journal.Cycle() + 1)
		return nil
	})

	healthSrv := health.NewServer()
	reporter := gameserver.NewHealthReporter(driver, healthSrv, cfg.Queue.TickInterval, clk.Now, logger)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.Server.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Server.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func(context.Context) error {
			grpcServer.GracefulStop()
			return nil
		},
	})
	lifecycle.Add("driver", driver)
	lifecycle.Add("health", reporter)

	logger.Info("action server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// loadScripts loads a single battle script file or every script in a
// directory.
func loadScripts(m *scripting.Manager, cfg config.ScriptingConfig) error {
	info, err := os.Stat(cfg.BattleScript)
	if err != nil {
		return fmt.Errorf("locating battle script: %w", err)
	}
	if info.IsDir() {
		return m.LoadDir(cfg.BattleScript, cfg.InstructionLimit)
	}
	return m.LoadFile(cfg.BattleScript, cfg.InstructionLimit)
}
