package rpc

import (
	"github/chapool/signing-gateway/internal/signing/request"
)

// Category tells the router how to handle a method.
type Category int

const (
	Passthrough Category = iota
	InterceptTransaction
	InterceptTypedData
	InterceptMessage
	InterceptAccounts
)

func (c Category) String() string {
	switch c {
	case Passthrough:
		return "passthrough"
	case InterceptTransaction:
		return "transaction"
	case InterceptTypedData:
		return "typed_data"
	case InterceptMessage:
		return "message"
	case InterceptAccounts:
		return "accounts"
	default:
		return "unknown"
	}
}

// Intercepted reports whether the gateway answers the method itself.
func (c Category) Intercepted() bool {
	return c != Passthrough
}

const (
	MethodAccounts        = "eth_accounts"
	MethodRequestAccounts = "eth_requestAccounts"
)

//nolint:gochecknoglobals // static routing table
var categories = map[string]Category{
	request.MethodSendTransaction: InterceptTransaction,
	request.MethodSignTransaction: InterceptTransaction,
	request.MethodSignTypedDataV4: InterceptTypedData,
	request.MethodSignTypedData:   InterceptTypedData,
	request.MethodSign:            InterceptMessage,
	request.MethodPersonalSign:    InterceptMessage,
	MethodAccounts:                InterceptAccounts,
	MethodRequestAccounts:         InterceptAccounts,
}

// Classify maps a method name to its category. Unknown methods pass through.
func Classify(method string) Category {
	return categories[method]
}

// Sends reports whether the method submits the signed transaction upstream.
func Sends(method string) bool {
	return method == request.MethodSendTransaction
}
