package audit

import (
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/audit"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("audit",
		newCheck(),
		newRecent(),
	)
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

func printRecords(out io.Writer, records []*audit.Record) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd
	fmt.Fprintln(w, "CREATED\tMETHOD\tACCOUNT\tNONCE\tOUTCOME\tKIND\tMODULE\tTX")

	for _, r := range records {
		nonce := "-"
		if r.Nonce != nil {
			nonce = fmt.Sprint(*r.Nonce)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.UTC().Format(time.DateTime), r.Method, r.Account, nonce,
			r.Outcome, dash(r.Kind), dash(r.Module), dash(r.TxHash))
	}

	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
