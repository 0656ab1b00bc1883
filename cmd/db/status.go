package db

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/audit"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util/command"
)

func newStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Lists the audit database migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			db, err := open(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			migrations, err := audit.Migrations().FindMigrations()
			if err != nil {
				return errors.Wrap(err, "failed to list migrations")
			}

			applied, err := audit.AppliedMigrations(db)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd
			fmt.Fprintln(w, "MIGRATION\tAPPLIED")
			for _, m := range migrations {
				status := "no"
				if at, ok := applied[m.Id]; ok {
					status = at.UTC().Format(time.DateTime)
				}
				fmt.Fprintf(w, "%s\t%s\n", m.Id, status)
			}

			return w.Flush()
		},
	}
}
