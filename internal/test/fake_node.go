package test

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github/chapool/signing-gateway/internal/rpc"
)

// FakeChainID is the chain id reported by a FakeNode unless overridden.
const FakeChainID = 100

// FakeBaseFee is the base fee of the latest block of a FakeNode.
var FakeBaseFee = big.NewInt(1_000_000_000) //nolint:gochecknoglobals,mnd

// NodeHandler answers a single JSON-RPC method.
type NodeHandler func(params json.RawMessage) (any, *rpc.Error)

// FakeNode is an in-process Ethereum JSON-RPC node answering a fixed set of methods.
type FakeNode struct {
	Server *httptest.Server

	mu       sync.Mutex
	handlers map[string]NodeHandler
	calls    map[string]int
	bodies   [][]byte
	sent     []*types.Transaction
}

// NewFakeNode starts a fake node that is closed when the test ends.
func NewFakeNode(t *testing.T) *FakeNode {
	t.Helper()

	n := &FakeNode{
		calls: map[string]int{},
	}
	n.handlers = n.defaultHandlers()
	n.Server = httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	t.Cleanup(n.Server.Close)

	return n
}

// URL returns the endpoint of the node.
func (n *FakeNode) URL() string {
	return n.Server.URL
}

// Handle overrides the answer for method.
func (n *FakeNode) Handle(method string, handler NodeHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = handler
}

// Calls returns how often method was requested.
func (n *FakeNode) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// Bodies returns every raw request body received, in order.
func (n *FakeNode) Bodies() [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]byte(nil), n.bodies...)
}

// Sent returns the transactions received through eth_sendRawTransaction.
func (n *FakeNode) Sent() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.sent...)
}

func (n *FakeNode) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.bodies = append(n.bodies, body)
	n.mu.Unlock()

	requests, batch, err := rpc.ParseBody(body)
	if err != nil {
		writeJSON(w, rpc.NewErrorResponse(nil, rpc.ErrParse(err.Error())))
		return
	}

	responses := make([]*rpc.Response, 0, len(requests))
	for _, req := range requests {
		responses = append(responses, n.answer(req))
	}

	if batch {
		writeJSON(w, responses)
		return
	}
	writeJSON(w, responses[0])
}

func (n *FakeNode) answer(req *rpc.Request) *rpc.Response {
	n.mu.Lock()
	n.calls[req.Method]++
	handler, ok := n.handlers[req.Method]
	n.mu.Unlock()

	if !ok {
		return rpc.NewErrorResponse(req.ID, &rpc.Error{Code: rpc.CodeMethodNotFound, Message: "the method " + req.Method + " does not exist/is not available"})
	}

	result, rpcErr := handler(req.Params)
	if rpcErr != nil {
		return rpc.NewErrorResponse(req.ID, rpcErr)
	}

	res, err := rpc.NewResult(req.ID, result)
	if err != nil {
		return rpc.NewErrorResponse(req.ID, &rpc.Error{Code: rpc.CodeInternalError, Message: err.Error()})
	}

	return res
}

func (n *FakeNode) defaultHandlers() map[string]NodeHandler {
	static := func(result any) NodeHandler {
		return func(json.RawMessage) (any, *rpc.Error) {
			return result, nil
		}
	}

	return map[string]NodeHandler{
		"eth_chainId":              static(hexutil.Uint64(FakeChainID)),
		"net_version":              static("100"),
		"eth_blockNumber":          static(hexutil.Uint64(16)), //nolint:mnd
		"eth_getTransactionCount":  static(hexutil.Uint64(0)),
		"eth_gasPrice":             static((*hexutil.Big)(big.NewInt(3_000_000_000))), //nolint:mnd
		"eth_maxPriorityFeePerGas": static((*hexutil.Big)(big.NewInt(1_000_000_000))), //nolint:mnd
		"eth_estimateGas":          static(hexutil.Uint64(21_000)),                    //nolint:mnd
		"eth_getBalance":           static((*hexutil.Big)(big.NewInt(0))),
		"eth_getBlockByNumber":     static(latestHeader()),
		"eth_sendRawTransaction":   n.sendRawTransaction,
	}
}

func (n *FakeNode) sendRawTransaction(params json.RawMessage) (any, *rpc.Error) {
	var args []hexutil.Bytes
	if err := json.Unmarshal(params, &args); err != nil || len(args) != 1 {
		return nil, rpc.ErrInvalidParams("expected one raw transaction")
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(args[0]); err != nil {
		return nil, rpc.ErrInvalidParams("rlp: " + err.Error())
	}

	n.mu.Lock()
	n.sent = append(n.sent, tx)
	n.mu.Unlock()

	return tx.Hash(), nil
}

func latestHeader() *types.Header {
	return &types.Header{
		ParentHash: common.HexToHash("0x01"),
		Number:     big.NewInt(16), //nolint:mnd
		Difficulty: big.NewInt(0),
		GasLimit:   30_000_000, //nolint:mnd
		Time:       1_700_000_000,
		BaseFee:    new(big.Int).Set(FakeBaseFee),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}
