package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github/chapool/signing-gateway/internal/signing/request"
	"github/chapool/signing-gateway/internal/util"
)

// logRecorder logs every signature produced by the wrapped signer
type logRecorder struct {
	inner Service
}

// NewLogRecorder creates a signer that logs all signing operations of inner
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewLogRecorder(inner Service) Service {
	return &logRecorder{inner: inner}
}

func (r *logRecorder) Accounts() []common.Address {
	return r.inner.Accounts()
}

func (r *logRecorder) SignTransaction(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := r.inner.SignTransaction(ctx, account, tx, chainID)
	if err != nil {
		return nil, err
	}

	util.LogFromContext(ctx).Info().
		Str("account", account.Hex()).
		Uint64("nonce", signed.Nonce()).
		Str("chain_id", chainID.String()).
		Str("tx_hash", signed.Hash().Hex()).
		Msg("Signed transaction")

	return signed, nil
}

func (r *logRecorder) SignTypedData(ctx context.Context, account common.Address, data *request.TypedData) ([]byte, error) {
	signature, err := r.inner.SignTypedData(ctx, account, data)
	if err != nil {
		return nil, err
	}

	util.LogFromContext(ctx).Info().
		Str("account", account.Hex()).
		RawJSON("typed_data", data.Raw).
		Str("signature", hexutil.Encode(signature)).
		Msg("Signed typed data")

	return signature, nil
}

func (r *logRecorder) SignMessage(ctx context.Context, account common.Address, message []byte) ([]byte, error) {
	signature, err := r.inner.SignMessage(ctx, account, message)
	if err != nil {
		return nil, err
	}

	util.LogFromContext(ctx).Info().
		Str("account", account.Hex()).
		Str("data", hexutil.Encode(message)).
		Str("signature", hexutil.Encode(signature)).
		Msg("Signed message")

	return signature, nil
}

// Clear wipes the keys of the wrapped signer when it holds any.
func (r *logRecorder) Clear() {
	if c, ok := r.inner.(interface{ Clear() }); ok {
		c.Clear()
	}
}
