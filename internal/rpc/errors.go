package rpc

import (
	"github.com/pkg/errors"
	"github/chapool/signing-gateway/internal/signing"
	"github/chapool/signing-gateway/internal/signing/request"
)

// JSON-RPC error codes used by the gateway.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
	CodeRejected       = -32003
	CodeLimitExceeded  = -32005
)

// ErrorData is attached to errors produced by the signing core.
type ErrorData struct {
	Kind      string `json:"kind"`
	Validator string `json:"validator,omitempty"`

	// TxHash is set when a signed transaction could not be submitted
	TxHash string `json:"txHash,omitempty"`
}

func ErrParse(message string) *Error {
	return &Error{Code: CodeParseError, Message: message}
}

func ErrInvalidRequest(message string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: message}
}

func ErrInvalidParams(message string) *Error {
	return &Error{Code: CodeInvalidParams, Message: message}
}

func ErrUpstreamUnavailable() *Error {
	return &Error{Code: CodeServerError, Message: "upstream unavailable"}
}

// FromError maps an error of the signing path to a JSON-RPC error object. Rejections carry
// the verdict reason as message and the kind in data.
func FromError(err error) *Error {
	var sErr *signing.Error
	if errors.As(err, &sErr) {
		data := &ErrorData{Kind: string(sErr.Kind), Validator: sErr.Module}

		switch {
		case sErr.Kind == signing.KindRateLimited:
			return &Error{Code: CodeLimitExceeded, Message: sErr.Reason, Data: data}
		case sErr.Kind.Rejection():
			return &Error{Code: CodeRejected, Message: sErr.Reason, Data: data}
		case sErr.Kind == signing.KindInvalidRequest:
			return &Error{Code: CodeInvalidParams, Message: sErr.Reason, Data: data}
		case sErr.Kind == signing.KindUpstreamFailure:
			return &Error{Code: CodeServerError, Message: sErr.Error(), Data: data}
		default:
			return &Error{Code: CodeInternalError, Message: sErr.Reason, Data: data}
		}
	}

	if errors.Is(err, request.ErrMalformed) {
		return ErrInvalidParams(err.Error())
	}

	return &Error{Code: CodeInternalError, Message: "internal error"}
}
