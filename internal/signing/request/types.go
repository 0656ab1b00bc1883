package request

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Variant tags the kind of payload a Request carries.
type Variant int

const (
	VariantTransaction Variant = iota + 1
	VariantTypedData
	VariantMessage
)

func (v Variant) String() string {
	switch v {
	case VariantTransaction:
		return "transaction"
	case VariantTypedData:
		return "typed_data"
	case VariantMessage:
		return "message"
	default:
		return "unknown"
	}
}

// ErrMalformed is returned for request parameters that cannot describe a signable payload.
var ErrMalformed = errors.New("malformed signing request")

// Request is a signing request for a single account. Exactly one of Transaction,
// TypedData and Message is set, matching Variant.
type Request struct {
	Variant Variant
	Account common.Address

	// Method is the RPC method the request was extracted from
	Method string

	Transaction *Transaction
	TypedData   *TypedData
	Message     []byte
}

// NewTransaction creates a transaction signing request. The account is the transaction sender.
func NewTransaction(method string, tx *Transaction) *Request {
	return &Request{
		Variant:     VariantTransaction,
		Account:     tx.From,
		Method:      method,
		Transaction: tx,
	}
}

// NewTypedData creates an EIP-712 signing request.
func NewTypedData(method string, account common.Address, data *TypedData) *Request {
	return &Request{
		Variant:   VariantTypedData,
		Account:   account,
		Method:    method,
		TypedData: data,
	}
}

// NewMessage creates an EIP-191 personal message signing request.
func NewMessage(method string, account common.Address, message []byte) *Request {
	return &Request{
		Variant: VariantMessage,
		Account: account,
		Method:  method,
		Message: message,
	}
}

// ChainID returns the chain id claimed by the request, or nil when it claims none.
// Messages never claim a chain id.
func (r *Request) ChainID() *big.Int {
	switch r.Variant {
	case VariantTransaction:
		return r.Transaction.ChainID
	case VariantTypedData:
		return r.TypedData.ChainID
	default:
		return nil
	}
}

// PayloadJSON returns the JSON document validators see for this request.
func (r *Request) PayloadJSON() ([]byte, error) {
	switch r.Variant {
	case VariantTransaction:
		return json.Marshal(r.Transaction)
	case VariantTypedData:
		return r.TypedData.Raw, nil
	case VariantMessage:
		return json.Marshal(hexutil.Encode(r.Message))
	default:
		return nil, errors.Wrapf(ErrMalformed, "unknown variant %d", r.Variant)
	}
}
