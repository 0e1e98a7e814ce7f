// Package commands holds the ledgerbot command-line interface.
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ledgerbot/internal/buildinfo"
	"ledgerbot/internal/cli"
	"ledgerbot/internal/config"
	"ledgerbot/internal/log"
)

// app carries what every subcommand needs once the root has initialized.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}
	var logLevel, backendName string

	rootCmd := &cobra.Command{
		Use:     "ledgerbot",
		Short:   "Chat-based expense logger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadAndValidateConfig(func(c *config.Config) {
				if backendName != "" {
					c.DataBackend = strings.ToLower(backendName)
				}
				if logLevel != "" {
					c.LogLevel = logLevel
				}
			})
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cli.SetupLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "ledger backend (memory, sheets, sqlite, postgres); overrides DATA_BACKEND")

	rootCmd.AddCommand(
		newServeCommand(a),
		newParseCommand(),
		newAddCommand(a),
		newRecentCommand(a),
		newTotalCommand(a),
		newCategoriesCommand(a),
		newMigrateCommand(a),
	)

	return rootCmd
}
