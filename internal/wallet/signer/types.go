package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/chapool/signing-gateway/internal/signing/request"
)

var ErrUnknownAccount = errors.New("unknown signer account")

// Service signs payloads with keys it never exposes.
type Service interface {
	// Accounts lists the managed addresses in derivation order
	Accounts() []common.Address

	// SignTransaction signs tx for chainID and returns the signed transaction
	SignTransaction(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)

	// SignTypedData returns the 65 byte r||s||v signature over the EIP-712 digest
	SignTypedData(ctx context.Context, account common.Address, data *request.TypedData) ([]byte, error)

	// SignMessage returns the 65 byte r||s||v signature over the EIP-191 personal message hash
	SignMessage(ctx context.Context, account common.Address, message []byte) ([]byte, error)
}
