package pricing

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"priceScope/internal/dex"
	"priceScope/internal/indexer"
	"priceScope/internal/model"
)

var (
	poolV2      = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")
	poolV3      = common.HexToAddress("0x11b815efB8f581194ae79006d24E0d814B7697F6")
	poolBroken  = common.HexToAddress("0x0000000000000000000000000000000000000bad")
	poolUnknown = common.HexToAddress("0x000000000000000000000000000000000000c0de")

	tokenUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	tokenWETH = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	tokenUSDT = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
)

type countingResolver struct {
	mu    sync.Mutex
	calls map[common.Address]int
}

func (r *countingResolver) PoolTokens(_ context.Context, pool common.Address) (common.Address, common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[common.Address]int)
	}
	r.calls[pool]++
	switch pool {
	case poolV2:
		return tokenUSDC, tokenWETH, nil
	case poolV3:
		return tokenWETH, tokenUSDT, nil
	default:
		return common.Address{}, common.Address{}, fmt.Errorf("execution reverted")
	}
}

func (r *countingResolver) TokenInfo(_ context.Context, token common.Address) (uint8, string, error) {
	switch token {
	case tokenUSDC:
		return 6, "USDC", nil
	case tokenWETH:
		return 18, "WETH", nil
	case tokenUSDT:
		return 6, "USDT", nil
	default:
		return 0, "", fmt.Errorf("execution reverted")
	}
}

func (r *countingResolver) callsFor(pool common.Address) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[pool]
}

// sliceSource replays events and then ends with err.
type sliceSource struct {
	events []model.RawEvent
	err    error
}

func (s sliceSource) Events(ctx context.Context) (<-chan model.RawEvent, <-chan error) {
	events := make(chan model.RawEvent)
	errs := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errs)
		for _, event := range s.events {
			select {
			case events <- event:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		errs <- s.err
	}()
	return events, errs
}

type captureSink struct {
	mu      sync.Mutex
	results []model.PriceResult
	fail    map[uint64]error
}

func (c *captureSink) PutPrice(_ context.Context, result model.PriceResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail[result.BlockNumber]; err != nil {
		return err
	}
	c.results = append(c.results, result)
	return nil
}

type captureDrops struct {
	records []model.DropRecord
}

func (c *captureDrops) PutDrop(_ context.Context, record model.DropRecord) error {
	c.records = append(c.records, record)
	return nil
}

type capturePools struct {
	pools []model.Pool
}

func (c *capturePools) PutPool(_ context.Context, pool model.Pool) error {
	c.pools = append(c.pools, pool)
	return nil
}

func syncPayload(t *testing.T, reserve0, reserve1 *big.Int) []byte {
	t.Helper()
	pairABI, err := dex.PairABI()
	if err != nil {
		t.Fatalf("pair abi: %v", err)
	}
	data, err := pairABI.Events["Sync"].Inputs.NonIndexed().Pack(reserve0, reserve1)
	if err != nil {
		t.Fatalf("pack sync: %v", err)
	}
	return data
}

func swapPayload(t *testing.T, sqrtPriceX96 *big.Int) []byte {
	t.Helper()
	pairABI, err := dex.PairABI()
	if err != nil {
		t.Fatalf("pair abi: %v", err)
	}
	data, err := pairABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(-1_000_000_000_000_000_000),
		big.NewInt(2_000_000_000),
		sqrtPriceX96,
		big.NewInt(987654321),
		big.NewInt(-197_000),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}
	return data
}

func units(n int64, decimals int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil))
}

func v2Event(pool common.Address, block uint64, data []byte) model.RawEvent {
	return model.RawEvent{
		Address:     pool,
		Topics:      []common.Hash{dex.SyncTopic},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Timestamp:   time.Date(2024, 5, 1, 12, 0, int(block), 0, time.UTC),
	}
}

func v3Event(pool common.Address, block uint64, data []byte) model.RawEvent {
	event := v2Event(pool, block, data)
	event.Topics = []common.Hash{dex.SwapTopic, common.HexToHash("0x01"), common.HexToHash("0x02")}
	return event
}

func TestDispatcherRun(t *testing.T) {
	sqrtPrice, _ := new(big.Int).SetString("3543191142285914316259825", 10)
	good := syncPayload(t, units(40_000_000, 6), units(20_000, 18))

	unknown := v2Event(poolUnknown, 3, good)
	unknown.Topics = []common.Hash{dex.SyncTopic, common.HexToHash("0x01")}

	source := sliceSource{events: []model.RawEvent{
		v2Event(poolV2, 1, good),
		v2Event(poolV2, 2, make([]byte, 63)),
		unknown,
		v2Event(poolV2, 4, syncPayload(t, big.NewInt(0), units(1, 18))),
		v3Event(poolV3, 5, swapPayload(t, sqrtPrice)),
		v2Event(poolBroken, 6, good),
		v2Event(poolV2, 7, good),
	}}

	resolver := &countingResolver{}
	cache := dex.NewPoolMetaCache(resolver, nil, zap.NewNop())
	sink := &captureSink{}
	drops := &captureDrops{}
	pools := &capturePools{}
	core, logs := observer.New(zapcore.WarnLevel)

	dispatcher := NewDispatcher(cache, sink, zap.New(core), Options{Drops: drops, Pools: pools})
	stats, err := dispatcher.Run(context.Background(), source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if stats.Total != 7 || stats.Priced != 3 || stats.Dropped != 4 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	wantBlocks := []uint64{1, 5, 7}
	wantText := []string{"0.00050000", "2000.0", "0.00050000"}
	if len(sink.results) != len(wantBlocks) {
		t.Fatalf("expected %d results, got %d", len(wantBlocks), len(sink.results))
	}
	for i, result := range sink.results {
		if result.BlockNumber != wantBlocks[i] || result.PriceText != wantText[i] {
			t.Fatalf("result %d mismatch: block=%d price=%s", i, result.BlockNumber, result.PriceText)
		}
	}
	if sink.results[0].Pair != "USDC/WETH" || sink.results[0].Variant != model.VariantV2 {
		t.Fatalf("unexpected v2 result: %+v", sink.results[0])
	}
	if sink.results[1].Pair != "WETH/USDT" || sink.results[1].Variant != model.VariantV3 {
		t.Fatalf("unexpected v3 result: %+v", sink.results[1])
	}
	if sink.results[0].Pool != poolV2.Hex() {
		t.Fatalf("pool mismatch: %s", sink.results[0].Pool)
	}

	wantKinds := []string{"MalformedPayload", "UnknownProtocolVariant", "DivisionByZero", "MetadataResolutionFailure"}
	if len(drops.records) != len(wantKinds) {
		t.Fatalf("expected %d drops, got %d", len(wantKinds), len(drops.records))
	}
	for i, record := range drops.records {
		if record.Kind != wantKinds[i] {
			t.Fatalf("drop %d kind mismatch: %s", i, record.Kind)
		}
	}
	if drops.records[1].Topics != 2 {
		t.Fatalf("expected topic count on drop record, got %d", drops.records[1].Topics)
	}

	warnings := logs.FilterMessage("drop event").All()
	if len(warnings) != len(wantKinds) {
		t.Fatalf("expected %d drop warnings, got %d", len(wantKinds), len(warnings))
	}
	if warnings[0].ContextMap()["kind"] != "MalformedPayload" {
		t.Fatalf("unexpected warning fields: %v", warnings[0].ContextMap())
	}

	if resolver.callsFor(poolV2) != 1 {
		t.Fatalf("expected one resolution for v2 pool, got %d", resolver.callsFor(poolV2))
	}
	if resolver.callsFor(poolUnknown) != 0 {
		t.Fatalf("unknown variant should not be resolved")
	}
	if _, ok := cache.Get(poolUnknown); ok {
		t.Fatalf("unknown variant should not be cached")
	}
	if _, ok := cache.Get(poolBroken); ok {
		t.Fatalf("failed resolution should not be cached")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected two cached pools, got %d", cache.Len())
	}

	if len(pools.pools) != 2 || pools.pools[0].Address != poolV2.Hex() || pools.pools[0].FirstSeenBlock != 1 {
		t.Fatalf("unexpected pool rows: %+v", pools.pools)
	}
}

func TestDispatcherTransportFailure(t *testing.T) {
	good := syncPayload(t, units(40_000_000, 6), units(20_000, 18))
	source := sliceSource{
		events: []model.RawEvent{v2Event(poolV2, 1, good)},
		err:    fmt.Errorf("%w: subscription closed", indexer.ErrTransport),
	}

	sink := &captureSink{}
	cache := dex.NewPoolMetaCache(&countingResolver{}, nil, zap.NewNop())
	stats, err := NewDispatcher(cache, sink, zap.NewNop(), Options{}).Run(context.Background(), source)
	if !errors.Is(err, indexer.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if stats.Priced != 1 || len(sink.results) != 1 {
		t.Fatalf("events before the failure should be priced: %+v", stats)
	}
}

func TestDispatcherSinkFailure(t *testing.T) {
	good := syncPayload(t, units(40_000_000, 6), units(20_000, 18))
	source := sliceSource{events: []model.RawEvent{
		v2Event(poolV2, 1, good),
		v2Event(poolV2, 2, good),
	}}

	sink := &captureSink{fail: map[uint64]error{1: errors.New("disk full")}}
	cache := dex.NewPoolMetaCache(&countingResolver{}, nil, zap.NewNop())
	core, logs := observer.New(zapcore.WarnLevel)

	stats, err := NewDispatcher(cache, sink, zap.New(core), Options{}).Run(context.Background(), source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Priced != 1 || stats.ByKind["OutputFailure"] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(sink.results) != 1 || sink.results[0].BlockNumber != 2 {
		t.Fatalf("second event should still be written: %+v", sink.results)
	}
	if logs.FilterField(zap.String("kind", "OutputFailure")).Len() != 1 {
		t.Fatalf("expected an output failure warning")
	}
}

func TestDispatcherCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cache := dex.NewPoolMetaCache(&countingResolver{}, nil, zap.NewNop())
	_, err := NewDispatcher(cache, &captureSink{}, zap.NewNop(), Options{}).Run(ctx, sliceSource{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestDispatcherRequiresDeps(t *testing.T) {
	if _, err := NewDispatcher(nil, &captureSink{}, nil, Options{}).Run(context.Background(), sliceSource{}); err == nil {
		t.Fatalf("expected error for nil cache")
	}
	cache := dex.NewPoolMetaCache(&countingResolver{}, nil, nil)
	if _, err := NewDispatcher(cache, nil, nil, Options{}).Run(context.Background(), sliceSource{}); err == nil {
		t.Fatalf("expected error for nil sink")
	}
}
