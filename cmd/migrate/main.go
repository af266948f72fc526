// Package main applies, rolls back or inspects the action store schema.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/config"
	"github.com/cory-johannsen/warband/internal/observability"
)

type options struct {
	source  string
	command string
	steps   int
	force   int
}

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	var opts options
	flag.StringVar(&opts.source, "migrations", "migrations", "directory holding the migration files")
	flag.StringVar(&opts.command, "direction", "up", "up, down or version")
	flag.IntVar(&opts.steps, "steps", 0, "number of steps (0 = all)")
	flag.IntVar(&opts.force, "force", -1, "mark the schema clean at this version before migrating")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "migrate")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.Database.Enabled {
		logger.Fatal("database.enabled is false", zap.String("config", *configPath))
	}
	if err := run(cfg.Database, opts, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
}

func run(db config.DatabaseConfig, opts options, logger *zap.Logger) error {
	start := time.Now()
	m, err := migrate.New("file://"+opts.source, db.DSN())
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if opts.force >= 0 {
		if err := m.Force(opts.force); err != nil {
			return fmt.Errorf("forcing version %d: %w", opts.force, err)
		}
		logger.Warn("schema version forced", zap.Int("version", opts.force))
	}

	switch opts.command {
	case "up":
		if opts.steps > 0 {
			err = m.Steps(opts.steps)
		} else {
			err = m.Up()
		}
	case "down":
		if opts.steps > 0 {
			err = m.Steps(-opts.steps)
		} else {
			err = m.Down()
		}
	case "version":
	default:
		return fmt.Errorf("unknown direction %q", opts.command)
	}
	unchanged := errors.Is(err, migrate.ErrNoChange)
	if err != nil && !unchanged {
		return err
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", verr)
	}
	logger.Info("schema",
		zap.String("direction", opts.command),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Bool("changed", opts.command != "version" && !unchanged),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
