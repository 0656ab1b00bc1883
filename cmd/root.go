package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/cmd/accounts"
	"github/chapool/signing-gateway/cmd/audit"
	"github/chapool/signing-gateway/cmd/db"
	"github/chapool/signing-gateway/cmd/env"
	"github/chapool/signing-gateway/cmd/keystore"
	"github/chapool/signing-gateway/cmd/probe"
	"github/chapool/signing-gateway/cmd/server"
	"github/chapool/signing-gateway/internal/config"
)

const configFlag = "config"

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "gateway",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

An Ethereum JSON-RPC signing gateway. Signing requests are answered with locally
derived keys after passing the configured policy validators, everything else is
relayed to the upstream node.
Requires configuration through ENV or a --config file.`, config.ModuleName),
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if configFile == "" {
			return nil
		}

		return config.ApplyFile(configFile)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVar(&configFile, configFlag, "",
		"config file (toml, yaml or json), environment variables take precedence")

	// attach the subcommands
	rootCmd.AddCommand(
		accounts.New(),
		audit.New(),
		db.New(),
		env.New(),
		keystore.New(),
		probe.New(),
		server.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}
