package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/melodex/internal/docstore"
	"github.com/desertthunder/melodex/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the default configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			r.logger.Warn("config file exists, leaving it alone", "path", path)
			return r.writePlain("Config already exists at %s\n", path)
		}
		return err
	}

	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Config written to %s\n", path)
}

// SetupDatabase initializes the SQLite database and runs migrations, or ensures MongoDB indexes.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Database
	if isMongo(cfg.Driver) {
		return r.setupMongo(ctx, cmd.Bool("reset"))
	}

	r.logger.Info("initializing database", "path", cfg.Path)

	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrationsContext(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", cfg.Path)
	return r.writePlain("✓ Database ready at %s\n", cfg.Path)
}

// SetupRollback reverts the most recent SQLite migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Database
	if isMongo(cfg.Driver) {
		return fmt.Errorf("%w: rollback only applies to sqlite", shared.ErrInvalidArgument)
	}

	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}
	r.logger.Info("rolled back latest migration", "path", cfg.Path)
	return r.writePlain("✓ Rolled back latest migration\n")
}

func (r *Runner) setupMongo(ctx context.Context, reset bool) error {
	cfg := r.config.Database
	store, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, r.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if reset {
		r.logger.Warn("dropping catalog collections", "database", cfg.MongoDatabase)
		if err := store.Drop(ctx); err != nil {
			return err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return r.writePlain("✓ MongoDB database %s ready\n", cfg.MongoDatabase)
}

func isMongo(driver string) bool {
	d := strings.ToLower(driver)
	return d == "mongo" || d == "mongodb"
}
