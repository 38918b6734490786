package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/templui/discord-onboarding/internal/config"
	"github.com/templui/discord-onboarding/internal/db"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd, func(m migrator) error {
				return db.RunMigrations(cmd.Context(), m.db.DB, m.driver)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd, func(m migrator) error {
				return db.MigrateDown(cmd.Context(), m.db.DB, m.driver)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd, func(m migrator) error {
				version, err := db.MigrationVersion(cmd.Context(), m.db.DB, m.driver)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "version:", version)
				return nil
			})
		},
	})

	return cmd
}

type migrator struct {
	db     *sqlx.DB
	driver string
}

func migrate(cmd *cobra.Command, fn func(m migrator) error) error {
	cfg := config.Load()

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return err
	}
	defer db.Close(database)

	return fn(migrator{db: database, driver: cfg.DBDriver})
}
