package keystore

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util/command"
	"github/chapool/signing-gateway/internal/wallet"
	"github/chapool/signing-gateway/internal/wallet/keystore"
)

func newVerify() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Unlocks a keystore file and prints its verification address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			path, err := cmd.Flags().GetString(outFlag)
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.Wallet.KeystoreFile
			}
			if path == "" {
				return errors.New("no keystore file given, use --out or GATEWAY_KEYSTORE_FILE")
			}

			password := cfg.Wallet.KeystorePassword
			if password == "" {
				password, err = wallet.TerminalPrompt("Enter keystore password: ")
				if err != nil {
					return err
				}
			}

			mnemonic, err := keystore.NewService(keystore.DefaultScryptParams()).Decrypt(cmd.Context(), path, password)
			if err != nil {
				return errors.Wrap(err, "failed to unlock keystore")
			}

			address, err := wallet.VerificationAddress(mnemonic, cfg.Wallet.MnemonicPassword)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Verification address: %s\n", address.Hex())

			if cfg.Wallet.VerificationAddress != "" {
				return wallet.VerifyAccounts([]common.Address{address}, common.HexToAddress(cfg.Wallet.VerificationAddress))
			}

			return nil
		},
	}

	cmd.Flags().String(outFlag, "", "Keystore file to unlock (defaults to GATEWAY_KEYSTORE_FILE)")

	return cmd
}
