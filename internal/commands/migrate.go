package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ledgerbot/internal/config"
	"ledgerbot/internal/log"
	"ledgerbot/internal/storage"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the sqlite or postgres backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			switch a.cfg.DataBackend {
			case config.BackendSQLite:
				err = storage.RunMigrations(a.cfg.SQLiteDBPath)
			case config.BackendPostgres:
				if a.cfg.DatabaseURL == "" {
					return errors.New("missing DATABASE_URL for postgres backend")
				}
				err = storage.RunPostgresMigrations(a.cfg.DatabaseURL)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "nothing to migrate for %s backend\n", a.cfg.DataBackend)
				return nil
			}
			if err != nil {
				return fmt.Errorf("migrate %s: %w", a.cfg.DataBackend, err)
			}
			a.logger.Info("Migrations applied", log.FieldBackend, a.cfg.DataBackend)
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
