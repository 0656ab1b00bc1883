package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/config"
)

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Checks that a running gateway answers its ready endpoint",
		Long: `Checks that the gateway at GATEWAY_PROBE_URL answers /-/ready with 200.
Exits non-zero otherwise, suitable as a container health check.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := verboseEnabled(cmd)
			if err != nil {
				return err
			}

			cfg := config.DefaultServiceConfigFromEnv()

			return runLiveness(cmd.Context(), cmd.OutOrStdout(), cfg, verbose)
		},
	}

	addVerboseFlag(cmd)

	return cmd
}

func runLiveness(ctx context.Context, out io.Writer, cfg config.Server, verbose bool) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Management.ProbeReadinessTimeout)
	defer cancel()

	url := strings.TrimSuffix(cfg.Management.ProbeURL, "/") + "/-/ready"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build probe request")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to reach %s", url)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024)) //nolint:mnd

	if verbose {
		fmt.Fprintf(out, "%s: %d %s\n", url, res.StatusCode, strings.TrimSpace(string(body)))
	}

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("liveness probe failed with status %d", res.StatusCode)
	}

	return nil
}
