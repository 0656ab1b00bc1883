package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/api"
	"github/chapool/signing-gateway/internal/api/router"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util/command"
)

const printRoutesFlag = "print-routes"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Starts the signing gateway",
		Long: `Starts the signing gateway.

Signing methods are answered locally, all other JSON-RPC traffic is relayed to the
upstream node. The process shuts down gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printRoutes, err := cmd.Flags().GetBool(printRoutesFlag)
			if err != nil {
				return err
			}

			return runServer(cmd.Context(), printRoutes)
		},
	}

	cmd.Flags().Bool(printRoutesFlag, false, "Print all registered routes on startup")

	return cmd
}

func runServer(ctx context.Context, printRoutes bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.DefaultServiceConfigFromEnv()

	return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		if err := router.Init(s); err != nil {
			return errors.Wrap(err, "failed to initialize router")
		}

		if printRoutes {
			for _, route := range s.Echo.Routes() {
				log.Info().Str("method", route.Method).Str("path", route.Path).Msg("Route")
			}
		}

		errCh := make(chan error, 1)
		go func() {
			defer close(errCh)

			log.Info().Str("address", cfg.Echo.ListenAddress).Msg("Starting server")
			if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
			log.Info().Msg("Received shutdown signal")
			return nil
		case err := <-errCh:
			return err
		}
	})
}
