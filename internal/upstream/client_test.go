package upstream_test

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/rpc"
	"github/chapool/signing-gateway/internal/test"
	"github/chapool/signing-gateway/internal/upstream"
)

func deadURL(t *testing.T) string {
	t.Helper()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	return url
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := upstream.NewClient(nil, time.Second)
	require.Error(t, err)
}

func TestTypedCalls(t *testing.T) {
	node := test.NewFakeNode(t)

	client, err := upstream.NewClient([]string{node.URL()}, time.Second)
	require.NoError(t, err)
	defer client.Close()

	ctx := t.Context()

	chainID, err := client.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(test.FakeChainID), chainID)

	node.Handle("eth_getTransactionCount", func(params json.RawMessage) (any, *rpc.Error) {
		assert.JSONEq(t, `["0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266","pending"]`, string(params))
		return hexutil.Uint64(7), nil
	})
	nonce, err := client.PendingNonceAt(ctx, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	header, err := client.HeaderByNumber(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, test.FakeBaseFee, header.BaseFee)

	tip, err := client.SuggestGasTipCap(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000), tip)

	require.NoError(t, client.Ping(ctx))
}

func TestFailoverOnTransportError(t *testing.T) {
	node := test.NewFakeNode(t)

	client, err := upstream.NewClient([]string{deadURL(t), node.URL()}, time.Second)
	require.NoError(t, err)
	defer client.Close()

	chainID, err := client.ChainID(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(test.FakeChainID), chainID.Int64())

	// the healthy node stays current
	_, err = client.ChainID(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, node.Calls("eth_chainId"))
}

func TestNoFailoverOnNodeError(t *testing.T) {
	first := test.NewFakeNode(t)
	second := test.NewFakeNode(t)

	first.Handle("eth_sendRawTransaction", func(json.RawMessage) (any, *rpc.Error) {
		return nil, &rpc.Error{Code: -32000, Message: "nonce too low"}
	})
	first.Handle("eth_chainId", func(json.RawMessage) (any, *rpc.Error) {
		return nil, &rpc.Error{Code: -32000, Message: "not synced"}
	})

	client, err := upstream.NewClient([]string{first.URL(), second.URL()}, time.Second)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.ChainID(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not synced")
	assert.False(t, errors.Is(err, upstream.ErrUnavailable))
	assert.Equal(t, 0, second.Calls("eth_chainId"))
}

func TestAllNodesDown(t *testing.T) {
	client, err := upstream.NewClient([]string{deadURL(t), deadURL(t)}, time.Second)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.ChainID(t.Context())
	require.ErrorIs(t, err, upstream.ErrUnavailable)

	_, _, err = client.Forward(t.Context(), []byte(`{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber"}`))
	require.ErrorIs(t, err, upstream.ErrUnavailable)
}

func TestForwardIsVerbatim(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client, err := upstream.NewClient([]string{srv.URL}, time.Second)
	require.NoError(t, err)
	defer client.Close()

	body := []byte(`{"jsonrpc":"2.0", "id":1, "method":"eth_getBalance", "params":["0x01","latest"]}`)
	status, res, err := client.Forward(t.Context(), body)
	require.NoError(t, err)
	assert.Equal(t, body, received)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"rate limited"}}`, string(res))
}
