package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		path = filepath.Join(shared.ConfigDir(), "config.toml")
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set api.base_url, or api.use_mock = true to try the built-in mock backend\n")
	r.writePlain("2. Run 'taskmaster auth login --email you@example.com' to sign in\n")
	return nil
}

// openMigrationDB returns the runner's database or a fresh unmigrated connection to config.Database.
// release is a no-op for the runner's own database.
func (r *Runner) openMigrationDB() (db *sql.DB, release func(), err error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}

	db, err = shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, func() { db.Close() }, nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, closeDB, err := r.openMigrationDB()
	if err != nil {
		return err
	}
	defer closeDB()

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if len(applied) == 0 {
		return r.writePlain("✓ Database %s is up to date\n", r.config.Database.Path)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Applied %d migration(s) to %s: %v\n", len(applied), r.config.Database.Path, applied)
}

// SetupRollback reverts the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.openMigrationDB()
	if err != nil {
		return err
	}
	defer closeDB()

	version, err := shared.RollbackMigration(db)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Rolled back migration %d\n", version)
}
