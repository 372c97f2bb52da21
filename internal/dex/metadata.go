package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"priceScope/internal/model"
)

// MetadataResolver fetches the static pool and token facts from chain.
type MetadataResolver interface {
	PoolTokens(ctx context.Context, pool common.Address) (common.Address, common.Address, error)
	TokenInfo(ctx context.Context, token common.Address) (uint8, string, error)
}

// PoolMetaCache caches pool metadata by address. Entries are write-once and
// concurrent misses for one address share a single resolution.
type PoolMetaCache struct {
	resolver MetadataResolver
	tokens   *TokenMetaCache
	logger   *zap.Logger
	group    singleflight.Group

	mu   sync.RWMutex
	data map[common.Address]model.PoolMeta
}

func NewPoolMetaCache(resolver MetadataResolver, tokens *TokenMetaCache, logger *zap.Logger) *PoolMetaCache {
	if tokens == nil {
		tokens = NewTokenMetaCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolMetaCache{
		resolver: resolver,
		tokens:   tokens,
		logger:   logger,
		data:     make(map[common.Address]model.PoolMeta),
	}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

// Set stores meta for address unless an entry already exists. It reports whether meta was stored.
func (c *PoolMetaCache) Set(address common.Address, meta model.PoolMeta) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[address]; ok {
		return false
	}
	c.data[address] = meta
	return true
}

// Len returns the number of cached pools.
func (c *PoolMetaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Resolve returns the metadata for pool, fetching it through the resolver on first sight.
// Failed resolutions are not cached.
func (c *PoolMetaCache) Resolve(ctx context.Context, pool common.Address) (model.PoolMeta, error) {
	if meta, ok := c.Get(pool); ok {
		return meta, nil
	}
	if c.resolver == nil {
		return model.PoolMeta{}, fmt.Errorf("%w: resolver is nil", ErrMetadataResolution)
	}

	v, err, _ := c.group.Do(pool.Hex(), func() (interface{}, error) {
		if meta, ok := c.Get(pool); ok {
			return meta, nil
		}
		meta, err := c.fetchPoolMeta(ctx, pool)
		if err != nil {
			return model.PoolMeta{}, err
		}
		c.Set(pool, meta)
		c.logger.Debug("pool metadata cached",
			zap.String("pool", pool.Hex()),
			zap.String("pair", meta.PairLabel()),
			zap.Uint8("token0_decimals", meta.Token0Decimals),
			zap.Uint8("token1_decimals", meta.Token1Decimals),
		)
		return meta, nil
	})
	if err != nil {
		return model.PoolMeta{}, err
	}
	return v.(model.PoolMeta), nil
}

func (c *PoolMetaCache) fetchPoolMeta(ctx context.Context, pool common.Address) (model.PoolMeta, error) {
	token0, token1, err := c.resolver.PoolTokens(ctx, pool)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("%w: pool %s tokens: %w", ErrMetadataResolution, pool.Hex(), err)
	}

	meta0, err := c.tokenMeta(ctx, token0)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("%w: pool %s token0 %s: %w", ErrMetadataResolution, pool.Hex(), token0.Hex(), err)
	}
	meta1, err := c.tokenMeta(ctx, token1)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("%w: pool %s token1 %s: %w", ErrMetadataResolution, pool.Hex(), token1.Hex(), err)
	}

	return model.PoolMeta{
		Token0:         token0.Hex(),
		Token1:         token1.Hex(),
		Token0Symbol:   meta0.Symbol,
		Token1Symbol:   meta1.Symbol,
		Token0Decimals: meta0.Decimals,
		Token1Decimals: meta1.Decimals,
	}, nil
}

func (c *PoolMetaCache) tokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := c.tokens.Get(token); ok {
		return meta, nil
	}
	decimals, symbol, err := c.resolver.TokenInfo(ctx, token)
	if err != nil {
		return model.TokenMeta{}, err
	}
	meta := model.TokenMeta{Address: token.Hex(), Decimals: decimals, Symbol: symbol}
	c.tokens.Set(token, meta)
	return meta, nil
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainResolver resolves pool and token metadata with eth_call.
type ChainResolver struct {
	caller ContractCaller
	logger *zap.Logger
}

func NewChainResolver(caller ContractCaller, logger *zap.Logger) *ChainResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainResolver{caller: caller, logger: logger}
}

// PoolTokens returns the pool's token0 and token1 addresses.
func (r *ChainResolver) PoolTokens(ctx context.Context, pool common.Address) (common.Address, common.Address, error) {
	if r.caller == nil {
		return common.Address{}, common.Address{}, fmt.Errorf("chain client is nil")
	}

	pairABI, err := PairABI()
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("parse pair abi: %w", err)
	}

	values, err := callMethod(ctx, r.caller, pool, pairABI, "token0")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, pairABI, "token1")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("token1: %w", err)
	}

	return token0, token1, nil
}

// TokenInfo returns the token's decimals and symbol via ERC20 calls.
func (r *ChainResolver) TokenInfo(ctx context.Context, token common.Address) (uint8, string, error) {
	if r.caller == nil {
		return 0, "", fmt.Errorf("chain client is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return 0, "", fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return 0, "", fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, r.caller, token, stringABI, "decimals")
	if err != nil {
		return 0, "", err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return 0, "", fmt.Errorf("decimals: %w", err)
	}

	values, err = callMethod(ctx, r.caller, token, stringABI, "symbol")
	if err == nil {
		if symbol, ok := values[0].(string); ok {
			return decimals, symbol, nil
		}
	}
	r.logger.Debug("string symbol call failed, trying bytes32", zap.String("token", token.Hex()), zap.Error(err))

	values, err = callMethod(ctx, r.caller, token, bytes32ABI, "symbol")
	if err != nil {
		return 0, "", err
	}
	symbol, ok := bytes32ToString(values[0])
	if !ok {
		return 0, "", fmt.Errorf("symbol: unsupported type %T", values[0])
	}
	return decimals, symbol, nil
}

func callMethod(ctx context.Context, caller ContractCaller, to common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("decimals out of range: %s", v.String())
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
