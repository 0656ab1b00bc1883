package keystore

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util/command"
	"github/chapool/signing-gateway/internal/wallet"
	"github/chapool/signing-gateway/internal/wallet/keystore"
)

const defaultKeystoreFile = "gateway.keystore.json"

func newCreate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Encrypts the wallet mnemonic into a keystore file",
		Long: `Encrypts the wallet mnemonic into a scrypt protected keystore file.

The mnemonic is taken from GATEWAY_MNEMONIC or prompted for. The keystore password is
always prompted for and must be confirmed. The printed verification address can be pinned
with GATEWAY_VERIFICATION_ADDRESS to detect a wrong mnemonic password on startup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			out, err := cmd.Flags().GetString(outFlag)
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Wallet.KeystoreFile
			}
			if out == "" {
				out = defaultKeystoreFile
			}

			mnemonic := cfg.Wallet.Mnemonic
			if mnemonic == "" {
				mnemonic, err = wallet.TerminalPrompt("Enter mnemonic: ")
				if err != nil {
					return errors.Wrap(err, "failed to read mnemonic")
				}
				mnemonic = strings.TrimSpace(mnemonic)
			}

			address, err := wallet.InitializeKeystore(cmd.Context(), keystore.NewService(keystore.DefaultScryptParams()),
				out, mnemonic, cfg.Wallet.MnemonicPassword, wallet.TerminalPrompt)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Keystore written to %s\nVerification address: %s\n", out, address.Hex())
			return nil
		},
	}

	cmd.Flags().String(outFlag, "", "Keystore file to write (defaults to GATEWAY_KEYSTORE_FILE)")

	return cmd
}
