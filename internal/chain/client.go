package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultCallTimeout bounds a single request so a stalled node cannot hold up the event loop.
const DefaultCallTimeout = 15 * time.Second

// Client wraps go-ethereum RPC for log streaming and read-only contract calls.
type Client struct {
	rpcClient   *rpc.Client
	ethClient   *ethclient.Client
	callTimeout time.Duration
}

// NewClient dials rpcURL. ws:// and wss:// endpoints support SubscribeLogs; http(s) endpoints only poll.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient:   rpcClient,
		ethClient:   ethclient.NewClient(rpcClient),
		callTimeout: DefaultCallTimeout,
	}, nil
}

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the current head.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.ethClient.BlockNumber(ctx)
}

// FilterLogs returns logs in [fromBlock, toBlock] emitted by addresses (all when empty) with one of topic0.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.ethClient.FilterLogs(ctx, logQuery(addresses, topic0, fromBlock, toBlock))
}

// SubscribeLogs pushes new logs matching the filter into ch until the subscription ends.
// The subscription outlives the call, so no request timeout applies.
func (c *Client) SubscribeLogs(
	ctx context.Context,
	addresses []common.Address,
	topic0 []common.Hash,
	ch chan<- types.Log,
) (ethereum.Subscription, error) {
	query := logQuery(addresses, topic0, 0, 0)
	query.FromBlock, query.ToBlock = nil, nil
	return c.ethClient.SubscribeFilterLogs(ctx, query, ch)
}

// CallContract performs an eth_call against the latest block when blockNumber is nil.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

func (c *Client) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func logQuery(addresses []common.Address, topic0 []common.Hash, fromBlock, toBlock uint64) ethereum.FilterQuery {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return query
}
