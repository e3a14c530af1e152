package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file and database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default configuration to --config",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "status",
						Usage: "List applied migrations without changing the schema",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recently applied migration",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// SetupConfig writes the embedded example configuration.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Configuration written to %s\n", path)
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	switch {
	case cmd.Bool("status"):
		applied, err := shared.MigrationStatus(db)
		if err != nil {
			return err
		}
		r.writePlainHeader(fmt.Sprintf("Applied migrations (%d)", len(applied)))
		for _, m := range applied {
			r.writePlain("  %04d  %s\n", m.Version, m.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
		}
		return nil
	case cmd.Bool("rollback"):
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		r.writePlain("✓ Rolled back the latest migration on %s\n", r.config.Database.Path)
		return nil
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	return nil
}
