package db

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/audit"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util/command"
)

func newMigrate() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Applies all pending audit database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			db, err := open(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := audit.Migrate(db)
			if err != nil {
				return err
			}

			log.Info().Int("count", n).Msg("Applied audit migrations")
			return nil
		},
	}
}
