package rpc

import (
	"bytes"
	"context"
	"encoding/json"

	"github/chapool/signing-gateway/internal/api"
	jsonrpc "github/chapool/signing-gateway/internal/rpc"
	"github/chapool/signing-gateway/internal/util"
)

// handleBatch answers a batch that mixes intercepted and passthrough calls. Passthrough
// members go upstream as one sub-batch; the answers keep the order of the calls.
// Notifications get no answer.
func handleBatch(ctx context.Context, s *api.Server, calls []*jsonrpc.Request) []*jsonrpc.Response {
	var passthrough []*jsonrpc.Request
	for _, call := range calls {
		if call.Validate() == nil && !jsonrpc.Classify(call.Method).Intercepted() {
			passthrough = append(passthrough, call)
		}
	}

	upstream := forwardBatch(ctx, s, passthrough)

	responses := make([]*jsonrpc.Response, 0, len(calls))
	for _, call := range calls {
		var res *jsonrpc.Response

		switch {
		case call.Validate() != nil:
			res = jsonrpc.NewErrorResponse(call.ID, call.Validate())
		case jsonrpc.Classify(call.Method).Intercepted():
			res = handleCall(ctx, s, call)
		default:
			res = upstream.lookup(call)
		}

		if !call.Notification() {
			responses = append(responses, res)
		}
	}

	return responses
}

type upstreamAnswers struct {
	byID map[string]*jsonrpc.Response

	// fallback answers every member when the node replied with a single error object
	fallback *jsonrpc.Error
}

func (a *upstreamAnswers) lookup(call *jsonrpc.Request) *jsonrpc.Response {
	if res, ok := a.byID[idKey(call.ID)]; ok {
		return res
	}

	if a.fallback != nil {
		return jsonrpc.NewErrorResponse(call.ID, a.fallback)
	}

	return jsonrpc.NewErrorResponse(call.ID, jsonrpc.ErrUpstreamUnavailable())
}

func forwardBatch(ctx context.Context, s *api.Server, calls []*jsonrpc.Request) *upstreamAnswers {
	answers := &upstreamAnswers{byID: map[string]*jsonrpc.Response{}}
	if len(calls) == 0 {
		return answers
	}

	log := util.LogFromContext(ctx)

	body, err := json.Marshal(calls)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode passthrough sub-batch")
		return answers
	}

	_, res, err := s.Upstream.Forward(ctx, body)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to forward passthrough sub-batch")
		return answers
	}

	var responses []*jsonrpc.Response
	if err := json.Unmarshal(res, &responses); err != nil {
		var single jsonrpc.Response
		if err := json.Unmarshal(res, &single); err == nil && single.Error != nil {
			answers.fallback = single.Error
		} else {
			log.Warn().Err(err).Msg("Failed to decode upstream batch response")
		}
		return answers
	}

	for _, r := range responses {
		answers.byID[idKey(r.ID)] = r
	}

	return answers
}

func idKey(id json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, id); err != nil {
		return string(id)
	}
	return buf.String()
}
