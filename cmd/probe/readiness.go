package probe

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/api"
	"github/chapool/signing-gateway/internal/api/handlers/common"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util/command"
)

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs the readiness probes against the configured dependencies",
		Long: `Builds the gateway from the current configuration and probes the upstream
node and the audit database. Exits non-zero when any probe fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := verboseEnabled(cmd)
			if err != nil {
				return err
			}

			cfg := config.DefaultServiceConfigFromEnv()

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				return runReadiness(ctx, cmd.OutOrStdout(), s, verbose)
			})
		},
	}

	addVerboseFlag(cmd)

	return cmd
}

func runReadiness(ctx context.Context, out io.Writer, s *api.Server, verbose bool) error {
	errs := common.ProbeReadiness(ctx, s)

	if verbose {
		for _, err := range errs {
			fmt.Fprintf(out, "Probe error: %v\n", err)
		}
	}

	if len(errs) > 0 {
		return errors.Errorf("readiness probe failed with %d error(s)", len(errs))
	}

	if verbose {
		fmt.Fprintln(out, "Probes succeeded.")
	}

	return nil
}
