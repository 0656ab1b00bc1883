package audit

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/audit"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/upstream"
	"github/chapool/signing-gateway/internal/util/command"
)

const txFlag = "tx"

func newCheck() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Shows the audit trail and on-chain status of a transaction",
		Long: `Looks up every signing request that produced the transaction in the audit database
and asks the upstream node for its receipt.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hash, err := cmd.Flags().GetString(txFlag)
			if err != nil {
				return err
			}
			if len(common.FromHex(hash)) != common.HashLength {
				return errors.Errorf("invalid transaction hash %q", hash)
			}

			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg)

			return runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, common.HexToHash(hash))
		},
	}

	cmd.Flags().String(txFlag, "", "Transaction hash to check")
	_ = cmd.MarkFlagRequired(txFlag)

	return cmd
}

func runCheck(ctx context.Context, out io.Writer, cfg config.Server, hash common.Hash) error {
	db, err := open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := audit.FindByTxHash(ctx, db, hash.Hex())
	switch {
	case errors.Is(err, audit.ErrNotFound):
		fmt.Fprintf(out, "No signing request produced %s\n", hash.Hex())
	case err != nil:
		return err
	default:
		if err := printRecords(out, records); err != nil {
			return err
		}
	}
	fmt.Fprintln(out)

	client, err := upstream.NewClient(cfg.Upstream.URLs, cfg.Upstream.Timeout)
	if err != nil {
		return err
	}
	defer client.Close()

	receipt, err := client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		fmt.Fprintln(out, "Transaction is not mined (pending, dropped or unknown to the node)")
		return nil
	}
	if err != nil {
		return err
	}

	status := "failed"
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = "success"
	}

	fmt.Fprintf(out, "Block: %s (%s)\nStatus: %s\nGas used: %d\n",
		receipt.BlockNumber, receipt.BlockHash.Hex(), status, receipt.GasUsed)
	if receipt.ContractAddress != (common.Address{}) {
		fmt.Fprintf(out, "Contract: %s\n", receipt.ContractAddress.Hex())
	}

	return nil
}
