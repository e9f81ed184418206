// Package cli wires configuration, storage and the HTTP server behind the
// takwira command.
package cli

import (
	"log/slog"
	"os"

	"github.com/AlouiLouai/takwira/internal/config"
	"github.com/AlouiLouai/takwira/internal/logging"

	"github.com/spf13/cobra"
)

const serviceName = "takwira"

// RootOptions holds global flags and the state PersistentPreRunE builds for
// subcommands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Version    string

	cfg    config.Config
	logger *slog.Logger
}

func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:     "takwira",
		Short:   "Takwira squad builder",
		Long:    "Two seven-a-side rosters on a shared pitch, backed by SQLite, Postgres or memory.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (overrides TAKWIRA_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

func (o *RootOptions) load(cmd *cobra.Command) error {
	if o.ConfigPath != "" {
		if err := os.Setenv("TAKWIRA_CONFIG", o.ConfigPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logging.NewLogger(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: serviceName,
		Version: o.Version,
		Output:  cmd.ErrOrStderr(),
	})
	return nil
}
