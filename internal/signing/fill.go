package signing

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/chapool/signing-gateway/internal/signing/request"
)

// fillDefaults completes the fee and gas fields the caller left out. The nonce is
// assigned by the sequencer and the chain id by the caller.
func (s *service) fillDefaults(ctx context.Context, tx *request.Transaction) error {
	if tx.Value == nil {
		tx.Value = new(big.Int)
	}

	switch tx.Type {
	case types.DynamicFeeTxType:
		if tx.MaxPriorityFeePerGas == nil {
			tip, err := s.node.SuggestGasTipCap(ctx)
			if err != nil {
				return errors.Wrap(err, "failed to suggest priority fee")
			}
			tx.MaxPriorityFeePerGas = tip
		}

		if tx.MaxFeePerGas == nil {
			head, err := s.node.HeaderByNumber(ctx, nil)
			if err != nil {
				return errors.Wrap(err, "failed to fetch latest header")
			}
			if head.BaseFee == nil {
				return errors.New("upstream chain does not report a base fee")
			}

			// leave room for the base fee to double before the transaction is included
			feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(2)) //nolint:mnd
			tx.MaxFeePerGas = feeCap.Add(feeCap, tx.MaxPriorityFeePerGas)
		}

	default:
		if tx.GasPrice == nil {
			price, err := s.node.SuggestGasPrice(ctx)
			if err != nil {
				return errors.Wrap(err, "failed to suggest gas price")
			}
			tx.GasPrice = price
		}
	}

	if tx.Gas == nil {
		gas, err := s.node.EstimateGas(ctx, ethereum.CallMsg{
			From:       tx.From,
			To:         tx.To,
			GasPrice:   tx.GasPrice,
			GasFeeCap:  tx.MaxFeePerGas,
			GasTipCap:  tx.MaxPriorityFeePerGas,
			Value:      tx.Value,
			Data:       tx.Data,
			AccessList: tx.AccessList,
		})
		if err != nil {
			return errors.Wrap(err, "failed to estimate gas")
		}
		tx.Gas = &gas
	}

	return nil
}
