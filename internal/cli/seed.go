package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"trivia-duel-service/internal/config"
	"trivia-duel-service/internal/i18n"
	pgstore "trivia-duel-service/internal/infra/postgres"
)

// NewSeedCmd copies the embedded classic question banks into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Store the built-in classic question banks in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	catalog, err := i18n.Load()
	if err != nil {
		return err
	}
	loader := pgstore.NewBankLoader(pool, catalog)
	for _, locale := range catalog.Locales() {
		bank := catalog.Questions(locale)
		if err := loader.SaveBank(ctx, locale, bank); err != nil {
			return fmt.Errorf("seed %s: %w", locale, err)
		}
		log.Printf("seeded %d classic questions for %s", len(bank), locale)
	}
	return nil
}
