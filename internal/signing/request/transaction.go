package request

import (
	"bytes"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// Transaction holds the parameters of an eth_sendTransaction / eth_signTransaction call.
// Optional fields stay nil until filled by the signing core.
type Transaction struct {
	Type                 uint8
	From                 common.Address
	To                   *common.Address
	Gas                  *uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Value                *big.Int
	Data                 []byte
	Nonce                *uint64
	AccessList           types.AccessList
	ChainID              *big.Int
}

// transactionArgs is the wire form of Transaction.
type transactionArgs struct {
	Type                 *hexutil.Uint64   `json:"type,omitempty"`
	From                 *common.Address   `json:"from,omitempty"`
	To                   *common.Address   `json:"to"`
	Gas                  *hexutil.Uint64   `json:"gas,omitempty"`
	GasPrice             *hexutil.Big      `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big      `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big      `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big      `json:"value"`
	Data                 *hexutil.Bytes    `json:"data"`
	Input                *hexutil.Bytes    `json:"input,omitempty"`
	Nonce                *hexutil.Uint64   `json:"nonce,omitempty"`
	AccessList           *types.AccessList `json:"accessList,omitempty"`
	ChainID              *hexutil.Big      `json:"chainId,omitempty"`

	// accepted only when empty; blob and set code transactions are not signed
	BlobHashes        []common.Hash     `json:"blobVersionedHashes,omitempty"`
	AuthorizationList []json.RawMessage `json:"authorizationList,omitempty"`
}

// ParseTransaction decodes transaction call parameters and infers the transaction type.
// EIP-1559 is preferred; EIP-2930 is chosen for an access list without dynamic fees and
// legacy for a bare gasPrice. Contradicting fields are rejected, unknown keys are ignored.
func ParseTransaction(raw json.RawMessage) (*Transaction, error) {
	var args transactionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	if args.From == nil {
		return nil, errors.Wrap(ErrMalformed, "missing from address")
	}

	if len(args.BlobHashes) > 0 {
		return nil, errors.Wrap(ErrMalformed, "blob transactions are not supported")
	}
	if len(args.AuthorizationList) > 0 {
		return nil, errors.Wrap(ErrMalformed, "set code transactions are not supported")
	}

	if args.Data != nil && args.Input != nil && !bytes.Equal(*args.Data, *args.Input) {
		return nil, errors.Wrap(ErrMalformed, "data and input fields differ")
	}

	txType, err := inferType(&args)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		Type:                 txType,
		From:                 *args.From,
		To:                   args.To,
		GasPrice:             (*big.Int)(args.GasPrice),
		MaxFeePerGas:         (*big.Int)(args.MaxFeePerGas),
		MaxPriorityFeePerGas: (*big.Int)(args.MaxPriorityFeePerGas),
		Value:                new(big.Int),
		ChainID:              (*big.Int)(args.ChainID),
	}

	if args.Gas != nil {
		gas := uint64(*args.Gas)
		tx.Gas = &gas
	}
	if args.Nonce != nil {
		n := uint64(*args.Nonce)
		tx.Nonce = &n
	}
	if args.Value != nil {
		tx.Value = (*big.Int)(args.Value)
	}

	switch {
	case args.Data != nil:
		tx.Data = *args.Data
	case args.Input != nil:
		tx.Data = *args.Input
	}

	if args.AccessList != nil {
		tx.AccessList = *args.AccessList
	} else if txType != types.LegacyTxType {
		tx.AccessList = types.AccessList{}
	}

	return tx, nil
}

func inferType(args *transactionArgs) (uint8, error) {
	dynamic := args.MaxFeePerGas != nil || args.MaxPriorityFeePerGas != nil

	var declared *uint8
	if args.Type != nil {
		if *args.Type > types.DynamicFeeTxType {
			return 0, errors.Wrapf(ErrMalformed, "unsupported transaction type %d", uint64(*args.Type))
		}
		t := uint8(*args.Type)
		declared = &t
	}

	is := func(t uint8) bool { return declared != nil && *declared == t }

	switch {
	case (declared == nil || is(types.DynamicFeeTxType)) && args.GasPrice == nil:
		return types.DynamicFeeTxType, nil
	case (declared == nil || is(types.LegacyTxType)) && !dynamic && args.AccessList == nil:
		return types.LegacyTxType, nil
	case (declared == nil || is(types.AccessListTxType)) && !dynamic:
		return types.AccessListTxType, nil
	default:
		return 0, errors.Wrap(ErrMalformed, "malformed transaction args")
	}
}

// MarshalJSON encodes the transaction in its RPC form without the sender.
func (tx *Transaction) MarshalJSON() ([]byte, error) {
	txType := hexutil.Uint64(tx.Type)
	data := hexutil.Bytes(tx.Data)
	if data == nil {
		data = hexutil.Bytes{}
	}

	args := transactionArgs{
		Type:                 &txType,
		To:                   tx.To,
		GasPrice:             (*hexutil.Big)(tx.GasPrice),
		MaxFeePerGas:         (*hexutil.Big)(tx.MaxFeePerGas),
		MaxPriorityFeePerGas: (*hexutil.Big)(tx.MaxPriorityFeePerGas),
		Value:                (*hexutil.Big)(tx.Value),
		Data:                 &data,
		ChainID:              (*hexutil.Big)(tx.ChainID),
	}
	if tx.Gas != nil {
		gas := hexutil.Uint64(*tx.Gas)
		args.Gas = &gas
	}
	if tx.Nonce != nil {
		n := hexutil.Uint64(*tx.Nonce)
		args.Nonce = &n
	}
	if tx.Type != types.LegacyTxType {
		accessList := tx.AccessList
		args.AccessList = &accessList
	}

	return json.Marshal(args)
}

// ToUnsigned builds the go-ethereum transaction. All fields required by the type must be set.
func (tx *Transaction) ToUnsigned() (*types.Transaction, error) {
	if tx.Gas == nil || tx.Nonce == nil || tx.ChainID == nil {
		return nil, errors.Wrap(ErrMalformed, "transaction is missing gas, nonce or chain id")
	}

	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}

	switch tx.Type {
	case types.LegacyTxType:
		if tx.GasPrice == nil {
			return nil, errors.Wrap(ErrMalformed, "legacy transaction is missing gasPrice")
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    *tx.Nonce,
			GasPrice: tx.GasPrice,
			Gas:      *tx.Gas,
			To:       tx.To,
			Value:    value,
			Data:     tx.Data,
		}), nil
	case types.AccessListTxType:
		if tx.GasPrice == nil {
			return nil, errors.Wrap(ErrMalformed, "access list transaction is missing gasPrice")
		}
		return types.NewTx(&types.AccessListTx{
			ChainID:    tx.ChainID,
			Nonce:      *tx.Nonce,
			GasPrice:   tx.GasPrice,
			Gas:        *tx.Gas,
			To:         tx.To,
			Value:      value,
			Data:       tx.Data,
			AccessList: tx.AccessList,
		}), nil
	case types.DynamicFeeTxType:
		if tx.MaxFeePerGas == nil || tx.MaxPriorityFeePerGas == nil {
			return nil, errors.Wrap(ErrMalformed, "dynamic fee transaction is missing fee caps")
		}
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:    tx.ChainID,
			Nonce:      *tx.Nonce,
			GasTipCap:  tx.MaxPriorityFeePerGas,
			GasFeeCap:  tx.MaxFeePerGas,
			Gas:        *tx.Gas,
			To:         tx.To,
			Value:      value,
			Data:       tx.Data,
			AccessList: tx.AccessList,
		}), nil
	default:
		return nil, errors.Wrapf(ErrMalformed, "unsupported transaction type %d", tx.Type)
	}
}
