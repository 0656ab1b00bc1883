package request

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// RPC methods carrying a signing request.
const (
	MethodSendTransaction = "eth_sendTransaction"
	MethodSignTransaction = "eth_signTransaction"
	MethodSignTypedDataV4 = "eth_signTypedData_v4"
	MethodSignTypedData   = "eth_signTypedData"
	MethodSign            = "eth_sign"
	MethodPersonalSign    = "personal_sign"
)

// FromCall extracts the signing request from the positional params of an intercepted method.
func FromCall(method string, params json.RawMessage) (*Request, error) {
	var args []json.RawMessage
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, errors.Wrap(ErrMalformed, "params must be an array")
		}
	}

	switch method {
	case MethodSendTransaction, MethodSignTransaction:
		if len(args) != 1 {
			return nil, errors.Wrapf(ErrMalformed, "%s expects 1 param, got %d", method, len(args))
		}

		tx, err := ParseTransaction(args[0])
		if err != nil {
			return nil, err
		}

		return NewTransaction(method, tx), nil

	case MethodSignTypedDataV4, MethodSignTypedData:
		if len(args) != 2 { //nolint:mnd
			return nil, errors.Wrapf(ErrMalformed, "%s expects 2 params, got %d", method, len(args))
		}

		account, err := parseAddress(args[0])
		if err != nil {
			return nil, err
		}

		data, err := ParseTypedData(args[1])
		if err != nil {
			return nil, err
		}

		return NewTypedData(method, account, data), nil

	case MethodSign:
		if len(args) != 2 { //nolint:mnd
			return nil, errors.Wrapf(ErrMalformed, "%s expects 2 params, got %d", method, len(args))
		}

		account, err := parseAddress(args[0])
		if err != nil {
			return nil, err
		}

		message, err := parseMessage(args[1], false)
		if err != nil {
			return nil, err
		}

		return NewMessage(method, account, message), nil

	case MethodPersonalSign:
		// personal_sign takes (data, address[, password]); the password is ignored
		if len(args) < 2 || len(args) > 3 {
			return nil, errors.Wrapf(ErrMalformed, "%s expects 2 or 3 params, got %d", method, len(args))
		}

		account, err := parseAddress(args[1])
		if err != nil {
			return nil, err
		}

		message, err := parseMessage(args[0], true)
		if err != nil {
			return nil, err
		}

		return NewMessage(method, account, message), nil

	default:
		return nil, errors.Wrapf(ErrMalformed, "method %s does not carry a signing request", method)
	}
}

func parseAddress(raw json.RawMessage) (common.Address, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return common.Address{}, errors.Wrap(ErrMalformed, "address must be a string")
	}

	if !common.IsHexAddress(text) {
		return common.Address{}, errors.Wrapf(ErrMalformed, "invalid address %q", text)
	}

	return common.HexToAddress(text), nil
}

// parseMessage decodes hex message data. When lenient, a non-hex string is taken as UTF-8 text.
func parseMessage(raw json.RawMessage, lenient bool) ([]byte, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, errors.Wrap(ErrMalformed, "message must be a string")
	}

	message, err := hexutil.Decode(text)
	if err == nil {
		return message, nil
	}

	if lenient && utf8.ValidString(text) {
		return []byte(text), nil
	}

	return nil, errors.Wrapf(ErrMalformed, "invalid message data: %v", err)
}
