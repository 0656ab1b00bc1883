package signing

import (
	"context"
	"math/big"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github/chapool/signing-gateway/internal/ratelimit"
	"github/chapool/signing-gateway/internal/signing/nonce"
	"github/chapool/signing-gateway/internal/signing/request"
	"github/chapool/signing-gateway/internal/signing/verdict"
)

// Service runs intercepted signing requests through chain, nonce and policy checks before
// any key is used.
type Service interface {
	// Accounts lists the managed addresses
	Accounts() []common.Address

	// ChainID returns the configured chain id
	ChainID() *big.Int

	// Sign produces the signature or signed transaction for req
	Sign(ctx context.Context, req *request.Request) (*Result, error)

	// Send signs a transaction request and submits it upstream
	Send(ctx context.Context, req *request.Request) (*Result, error)

	// NonceState returns the nonce state of a managed account
	NonceState(account common.Address) (nonce.Snapshot, bool)
}

// Node is the upstream node used to complete and submit transactions.
type Node interface {
	nonce.Source

	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Policy decides whether a request may be signed.
type Policy interface {
	Evaluate(ctx context.Context, req *request.Request) verdict.Verdict
}

// Config holds the chain identity and the known start nonces.
type Config struct {
	ChainID     *big.Int
	StartNonces map[common.Address]uint64

	// Clock stamps audit records; the real clock is used when nil
	Clock time2.Clock

	// Limiter caps signing attempts per account; nil disables the cap
	Limiter ratelimit.Limiter
}

// Result is the artifact of a signed request.
type Result struct {
	Variant request.Variant
	Account common.Address

	// Signature is the 65 byte r||s||v signature of typed data and messages
	Signature []byte

	// Transaction is the signed transaction and Raw its binary encoding
	Transaction *types.Transaction
	Raw         []byte
}

// TxHash returns the hash of the signed transaction, or the zero hash for other variants.
func (r *Result) TxHash() common.Hash {
	if r.Transaction == nil {
		return common.Hash{}
	}
	return r.Transaction.Hash()
}
