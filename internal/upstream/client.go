package upstream

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 30 * time.Second

// ErrUnavailable is returned when no upstream node produced an answer.
var ErrUnavailable = errors.New("upstream unavailable")

// Client talks to the upstream Ethereum nodes, failing over to the next URL when a node
// cannot be reached. A node that answers, even with an error, is never skipped.
type Client struct {
	urls    []string
	clients []*ethclient.Client
	http    *http.Client
	timeout time.Duration

	mu      sync.RWMutex
	current int // index of the node currently in use
}

// NewClient creates a client for the given node URLs.
func NewClient(urls []string, timeout time.Duration) (*Client, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one upstream URL is required")
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{}

	clients := make([]*ethclient.Client, 0, len(urls))
	for _, url := range urls {
		rpcClient, err := gethrpc.DialOptions(context.Background(), url, gethrpc.WithHTTPClient(httpClient))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid upstream URL %s", url)
		}
		clients = append(clients, ethclient.NewClient(rpcClient))
	}

	return &Client{
		urls:    urls,
		clients: clients,
		http:    httpClient,
		timeout: timeout,
	}, nil
}

// Close closes all node connections.
func (c *Client) Close() {
	for _, client := range c.clients {
		client.Close()
	}
}

// URLs returns the configured node URLs.
func (c *Client) URLs() []string {
	return append([]string(nil), c.urls...)
}

// Forward posts a raw JSON-RPC body to the upstream node and returns its status and body
// untouched.
func (c *Client) Forward(ctx context.Context, body []byte) (int, []byte, error) {
	var (
		status   int
		response []byte
	)

	err := c.each(ctx, "forward", func(ctx context.Context, idx int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.urls[idx], bytes.NewReader(body))
		if err != nil {
			return errors.Wrap(err, "failed to create upstream request")
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			return errors.Wrap(err, "failed to reach upstream")
		}
		defer res.Body.Close()

		data, err := io.ReadAll(res.Body)
		if err != nil {
			return errors.Wrap(err, "failed to read upstream response")
		}

		status, response = res.StatusCode, data
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return status, response, nil
}

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var chainID *big.Int

	err := c.call(ctx, "eth_chainId", func(ctx context.Context, client *ethclient.Client) (err error) {
		chainID, err = client.ChainID(ctx)
		return err
	})

	return chainID, err
}

// PendingNonceAt returns the pending nonce for the given address.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var nonce uint64

	err := c.call(ctx, "eth_getTransactionCount", func(ctx context.Context, client *ethclient.Client) (err error) {
		nonce, err = client.PendingNonceAt(ctx, account)
		return err
	})

	return nonce, err
}

// EstimateGas estimates the gas needed for msg.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var gas uint64

	err := c.call(ctx, "eth_estimateGas", func(ctx context.Context, client *ethclient.Client) (err error) {
		gas, err = client.EstimateGas(ctx, msg)
		return err
	})

	return gas, err
}

// SuggestGasTipCap returns the node's suggested priority fee (EIP-1559).
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	var tip *big.Int

	err := c.call(ctx, "eth_maxPriorityFeePerGas", func(ctx context.Context, client *ethclient.Client) (err error) {
		tip, err = client.SuggestGasTipCap(ctx)
		return err
	})

	return tip, err
}

// SuggestGasPrice returns the node's suggested legacy gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int

	err := c.call(ctx, "eth_gasPrice", func(ctx context.Context, client *ethclient.Client) (err error) {
		price, err = client.SuggestGasPrice(ctx)
		return err
	})

	return price, err
}

// HeaderByNumber returns a block header; a nil number selects the latest block.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var header *types.Header

	err := c.call(ctx, "eth_getBlockByNumber", func(ctx context.Context, client *ethclient.Client) (err error) {
		header, err = client.HeaderByNumber(ctx, number)
		return err
	})

	return header, err
}

// SendTransaction submits a signed transaction with eth_sendRawTransaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.call(ctx, "eth_sendRawTransaction", func(ctx context.Context, client *ethclient.Client) error {
		return client.SendTransaction(ctx, tx)
	})
}

// TransactionReceipt returns the receipt of a mined transaction. A transaction the node
// does not know yields ethereum.NotFound without failing over.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt

	err := c.call(ctx, "eth_getTransactionReceipt", func(ctx context.Context, client *ethclient.Client) (err error) {
		receipt, err = client.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if receipt == nil {
		return nil, ethereum.NotFound
	}

	return receipt, nil
}

// Ping checks that some node answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ChainID(ctx)
	return err
}

func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context, client *ethclient.Client) error) error {
	var answered error

	err := c.each(ctx, method, func(ctx context.Context, idx int) error {
		err := fn(ctx, c.clients[idx])
		if err != nil && nodeAnswered(err) {
			// the node is up and rejected the call; do not fail over
			answered = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	if answered != nil {
		return errors.Wrapf(answered, "%s failed", method)
	}

	return nil
}

// each runs attempt against every node starting with the current one until an attempt
// succeeds. The first node that succeeds becomes current.
func (c *Client) each(ctx context.Context, op string, attempt func(ctx context.Context, idx int) error) error {
	c.mu.RLock()
	start := c.current
	c.mu.RUnlock()

	var lastErr error
	for i := range c.urls {
		idx := (start + i) % len(c.urls)

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := attempt(attemptCtx, idx)
		cancel()

		if err == nil {
			if idx != start {
				c.mu.Lock()
				c.current = idx
				c.mu.Unlock()

				log.Info().Str("url", c.urls[idx]).Msg("Switched upstream node")
			}
			return nil
		}

		lastErr = err
		log.Warn().Err(err).Str("url", c.urls[idx]).Str("op", op).Msg("Upstream node failed, trying next")

		if ctx.Err() != nil {
			break
		}
	}

	return errors.Wrapf(ErrUnavailable, "%s: %v", op, lastErr)
}

// nodeAnswered reports whether err carries a JSON-RPC error object from the node.
func nodeAnswered(err error) bool {
	var rpcErr gethrpc.Error
	return errors.As(err, &rpcErr)
}
