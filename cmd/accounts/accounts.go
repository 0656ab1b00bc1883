package accounts

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/api"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util/command"
	"github/chapool/signing-gateway/internal/wallet/hd"
)

const countFlag = "count"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Lists the accounts managed by the configured wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			count, err := cmd.Flags().GetInt(countFlag)
			if err != nil {
				return err
			}
			if count > 0 {
				cfg.Wallet.AccountCount = count
			}

			keyring, err := api.NewKeyring(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd
			fmt.Fprintln(w, "INDEX\tPATH\tADDRESS")
			for i, account := range keyring.Accounts() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i, hd.Path(uint32(i)), account.Hex()) //nolint:gosec // bounded by the account count
			}

			return w.Flush()
		},
	}

	cmd.Flags().Int(countFlag, 0, "Number of accounts to derive (defaults to GATEWAY_ACCOUNT_COUNT)")

	return cmd
}
