package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/teresa-solution/housezen-portal/internal/config"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var source string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the development schema of the Housezen backend tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "Database host")
	flags.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "Database port")
	flags.StringVar(&cfg.DBUser, "db-user", cfg.DBUser, "Database user")
	flags.StringVar(&cfg.DBPass, "db-pass", cfg.DBPass, "Database password")
	flags.StringVar(&cfg.DBName, "db-name", cfg.DBName, "Database name")
	flags.StringVar(&source, "source", "file://scripts/migrations", "Migrations source")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cfg, source, func(m *migrate.Migrate) error {
					log.Info().Msg("Applying migrations...")
					if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("failed to apply migrations: %w", err)
					}
					log.Info().Msg("Migrations applied successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cfg, source, func(m *migrate.Migrate) error {
					log.Info().Msg("Reverting migrations...")
					if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("failed to revert migrations: %w", err)
					}
					log.Info().Msg("Migrations reverted successfully")
					return nil
				})
			},
		},
		newForceCmd(cfg, &source),
	)
	return root
}

func newForceCmd(cfg *config.Config, source *string) *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "force",
		Short: "Force the recorded migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cfg, *source, func(m *migrate.Migrate) error {
				log.Info().Int("version", version).Msg("Forcing migration version...")
				if err := m.Force(version); err != nil {
					return fmt.Errorf("failed to force migration version: %w", err)
				}
				log.Info().Msg("Migration version forced successfully")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 1, "Version to force")
	return cmd
}

func withMigrator(cfg *config.Config, source string, fn func(*migrate.Migrate) error) error {
	pgxConfig, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse DSN: %w", err)
	}
	db := stdlib.OpenDB(*pgxConfig)
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	return fn(m)
}
