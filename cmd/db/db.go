package db

import (
	"database/sql"

	_ "github.com/lib/pq" // postgres driver
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util/command"
)

// New returns the group managing the optional audit database at GATEWAY_AUDIT_DATABASE_URL.
func New() *cobra.Command {
	cmd := command.NewSubcommandGroup("db",
		newMigrate(),
		newStatus(),
	)
	cmd.Short = "Audit database schema subcommands"

	return cmd
}

func open(cfg config.Server) (*sql.DB, error) {
	if cfg.Audit.DatabaseURL == "" {
		return nil, errors.New("GATEWAY_AUDIT_DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", cfg.Audit.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audit database")
	}

	return db, nil
}
