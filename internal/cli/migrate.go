package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-duel-service/internal/config"
	pgmigrations "trivia-duel-service/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies the stats, notification and question bank migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var status, rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the Postgres tables for player state and question banks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			switch {
			case status:
				return withMigrator(cmd.Context(), cfg, printMigrationStatus)
			case rollback:
				return withMigrator(cmd.Context(), cfg, rollbackLastGroup)
			default:
				return runMigrationsWithConfig(cmd.Context(), cfg)
			}
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "list applied and pending migrations")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last applied group")
	return cmd
}

// runMigrationsWithConfig is shared by migrate, seed and start. The migration
// lock keeps replicas that boot together from applying the same group twice.
func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	return withMigrator(ctx, cfg, func(ctx context.Context, m *migrate.Migrator) error {
		if err := m.Lock(ctx); err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		defer func() {
			if err := m.Unlock(ctx); err != nil {
				log.Printf("unlock migrations: %v", err)
			}
		}()

		group, err := m.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		if group == nil || len(group.Migrations) == 0 {
			log.Printf("player and question bank tables up to date")
			return nil
		}
		log.Printf("applied %d migrations as group %d", len(group.Migrations), group.ID)
		return nil
	})
}

func withMigrator(ctx context.Context, cfg config.Config, fn func(context.Context, *migrate.Migrator) error) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}
	return fn(ctx, migrator)
}

func printMigrationStatus(ctx context.Context, m *migrate.Migrator) error {
	ms, err := m.MigrationsWithStatus(ctx)
	if err != nil {
		return err
	}
	for _, mig := range ms.Applied() {
		log.Printf("applied  %s (group %d)", mig.Name, mig.GroupID)
	}
	for _, mig := range ms.Unapplied() {
		log.Printf("pending  %s", mig.Name)
	}
	return nil
}

func rollbackLastGroup(ctx context.Context, m *migrate.Migrator) error {
	group, err := m.Rollback(ctx)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	if group == nil || len(group.Migrations) == 0 {
		log.Printf("nothing to roll back")
		return nil
	}
	log.Printf("rolled back group %d (%d migrations)", group.ID, len(group.Migrations))
	return nil
}
