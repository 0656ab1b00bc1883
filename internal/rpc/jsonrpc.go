package rpc

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

const Version = "2.0"

// Request is a JSON-RPC 2.0 request. ID and Params are kept raw so they can be echoed
// and forwarded without re-encoding.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Notification reports whether the request carries no id and expects no response.
func (r *Request) Notification() bool {
	return len(r.ID) == 0
}

// Response is a JSON-RPC 2.0 response carrying either Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewResult creates a success response for id.
func NewResult(id json.RawMessage, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode result")
	}

	return &Response{JSONRPC: Version, ID: normalizeID(id), Result: raw}, nil
}

// NewErrorResponse creates an error response for id.
func NewErrorResponse(id json.RawMessage, rpcErr *Error) *Response {
	return &Response{JSONRPC: Version, ID: normalizeID(id), Error: rpcErr}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// ParseBody decodes a single request or a batch. batch reports whether the body was an array.
func ParseBody(body []byte) (requests []*Request, batch bool, err error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false, errors.New("empty request body")
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &requests); err != nil {
			return nil, true, errors.Wrap(err, "invalid batch")
		}
		if len(requests) == 0 {
			return nil, true, errors.New("empty batch")
		}
		return requests, true, nil
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, false, errors.Wrap(err, "invalid request")
	}

	return []*Request{&req}, false, nil
}

// Validate checks the framing of a decoded request.
func (r *Request) Validate() *Error {
	if r == nil || r.JSONRPC != Version || r.Method == "" {
		return ErrInvalidRequest("invalid JSON-RPC 2.0 request")
	}
	return nil
}
