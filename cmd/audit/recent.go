package audit

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/audit"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util/command"
)

const (
	accountFlag = "account"
	limitFlag   = "limit"
)

func newRecent() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Lists the latest signing requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := cmd.Flags().GetString(accountFlag)
			if err != nil {
				return err
			}
			if account != "" {
				if !common.IsHexAddress(account) {
					return errors.Errorf("invalid account %q", account)
				}
				account = common.HexToAddress(account).Hex()
			}

			limit, err := cmd.Flags().GetInt(limitFlag)
			if err != nil {
				return err
			}

			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			db, err := open(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := audit.Recent(cmd.Context(), db, account, limit)
			if err != nil {
				return err
			}

			return printRecords(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().String(accountFlag, "", "Only show requests of this account")
	cmd.Flags().Int(limitFlag, 20, "Number of requests to show") //nolint:mnd

	return cmd
}
