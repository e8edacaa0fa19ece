package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/edumarket-api/pkg/database"
)

func newMigrateCmd(rt *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	withMigrator := func(fn func(*database.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			mg, err := database.NewMigrator(rt.cfg.Database, rt.logger)
			if err != nil {
				return err
			}
			defer mg.Close() //nolint:errcheck
			return fn(mg)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  withMigrator(func(mg *database.Migrator) error { return mg.Up() }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE:  withMigrator(func(mg *database.Migrator) error { return mg.Down() }),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(mg *database.Migrator) error {
				version, dirty, err := mg.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			}),
		},
	)
	return cmd
}
