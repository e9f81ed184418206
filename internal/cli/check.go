package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type CheckOptions struct {
	JSON bool
}

// NewCheckCommand reports whether the players table is usable. It exits
// non-zero when it is not.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:          "check",
		Short:        "Check that the players table is reachable and migrated",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := rootOpts.cfg
			cfg.Store.AutoMigrate = false

			b, err := openBackend(ctx, cfg, rootOpts.logger)
			if err != nil {
				return err
			}
			defer b.Close()

			r := b.gateway.CheckReadiness(ctx)
			out := cmd.OutOrStdout()
			if opts.JSON {
				if err := json.NewEncoder(out).Encode(r); err != nil {
					return err
				}
			} else if r.IsReady {
				fmt.Fprintln(out, r.Message)
			} else {
				fmt.Fprintf(out, "%s: %s\n", r.ErrorKind, r.Message)
			}
			if !r.IsReady {
				return fmt.Errorf("store not ready: %s", r.ErrorKind)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the readiness result as JSON")
	return cmd
}
