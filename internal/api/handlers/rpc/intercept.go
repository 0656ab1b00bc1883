package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github/chapool/signing-gateway/internal/api"
	jsonrpc "github/chapool/signing-gateway/internal/rpc"
	"github/chapool/signing-gateway/internal/signing"
	"github/chapool/signing-gateway/internal/signing/request"
	"github/chapool/signing-gateway/internal/util"
)

// handleCall answers a single call that the gateway intercepts.
func handleCall(ctx context.Context, s *api.Server, call *jsonrpc.Request) *jsonrpc.Response {
	if rpcErr := call.Validate(); rpcErr != nil {
		return jsonrpc.NewErrorResponse(call.ID, rpcErr)
	}

	result, rpcErr := intercept(ctx, s, call)
	if rpcErr != nil {
		return jsonrpc.NewErrorResponse(call.ID, rpcErr)
	}

	res, err := jsonrpc.NewResult(call.ID, result)
	if err != nil {
		return jsonrpc.NewErrorResponse(call.ID, jsonrpc.FromError(err))
	}

	return res
}

func intercept(ctx context.Context, s *api.Server, call *jsonrpc.Request) (any, *jsonrpc.Error) {
	log := util.LogFromContext(ctx).With().Str("rpc_method", call.Method).Logger()

	if jsonrpc.Classify(call.Method) == jsonrpc.InterceptAccounts {
		return s.Signing.Accounts(), nil
	}

	req, err := request.FromCall(call.Method, call.Params)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected malformed signing request")
		return nil, jsonrpc.FromError(err)
	}

	ctx = log.WithContext(ctx)

	if jsonrpc.Sends(call.Method) {
		result, err := s.Signing.Send(ctx, req)
		if err != nil {
			return nil, sendError(err, result)
		}
		return result.TxHash(), nil
	}

	result, err := s.Signing.Sign(ctx, req)
	if err != nil {
		return nil, jsonrpc.FromError(err)
	}

	if result.Transaction != nil {
		return hexutil.Bytes(result.Raw), nil
	}

	return hexutil.Bytes(result.Signature), nil
}

// sendError attaches the hash of a signed but unsubmitted transaction to the error.
func sendError(err error, result *signing.Result) *jsonrpc.Error {
	rpcErr := jsonrpc.FromError(err)

	if data, ok := rpcErr.Data.(*jsonrpc.ErrorData); ok && result != nil && result.Transaction != nil {
		data.TxHash = result.TxHash().Hex()
	}

	return rpcErr
}
