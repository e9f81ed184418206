package cli

import (
	"context"
	"fmt"

	"github.com/AlouiLouai/takwira/internal/config"
	"github.com/AlouiLouai/takwira/internal/logging"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending players table migrations",
		Long: `Apply the embedded SQL migrations (or the files in POSTGRES_MIGRATIONS_DIR /
DB_MIGRATIONS_DIR) to the configured SQLite or Postgres database.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := rootOpts.cfg
			if cfg.Store.Backend == config.BackendMemory {
				return fmt.Errorf("nothing to migrate: store backend is %s", cfg.Store.Backend)
			}
			// Migrate runs explicitly below; opening must not depend on it.
			cfg.Store.AutoMigrate = false

			b, err := openBackend(ctx, cfg, rootOpts.logger)
			if err != nil {
				return err
			}
			defer b.Close()

			n, err := b.migrator.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logging.Info(rootOpts.logger, "migrations applied", logging.FieldBackend, cfg.Store.Backend, logging.FieldCount, n)
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}
}
