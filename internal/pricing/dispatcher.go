package pricing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"priceScope/internal/dex"
	"priceScope/internal/indexer"
	"priceScope/internal/model"
	"priceScope/internal/storage"
)

const outputFailure = "OutputFailure"

// Options wires optional sinks into a Dispatcher.
type Options struct {
	Drops storage.DropSink
	Pools storage.PoolSink
}

// Stats counts what a run did.
type Stats struct {
	Total   int
	Priced  int
	Dropped int
	ByKind  map[string]int
}

// Dispatcher prices pool events one at a time, in arrival order.
type Dispatcher struct {
	cache  *dex.PoolMetaCache
	sink   storage.Sink
	drops  storage.DropSink
	pools  storage.PoolSink
	logger *zap.Logger
}

func NewDispatcher(cache *dex.PoolMetaCache, sink storage.Sink, logger *zap.Logger, opts Options) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		cache:  cache,
		sink:   sink,
		drops:  opts.Drops,
		pools:  opts.Pools,
		logger: logger,
	}
}

// Run consumes source until it ends, fails, or ctx is cancelled.
// Per-event failures are logged and skipped; only the source's terminal error is returned.
func (d *Dispatcher) Run(ctx context.Context, source indexer.Source) (Stats, error) {
	stats := Stats{ByKind: make(map[string]int)}
	if d.cache == nil {
		return stats, fmt.Errorf("metadata cache is nil")
	}
	if d.sink == nil {
		return stats, fmt.Errorf("sink is nil")
	}
	if source == nil {
		return stats, fmt.Errorf("source is nil")
	}

	events, errs := source.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			d.logStats("dispatcher cancelled", stats)
			return stats, ctx.Err()
		case event, ok := <-events:
			if !ok {
				err := <-errs
				if err == nil && ctx.Err() != nil {
					err = ctx.Err()
				}
				d.logStats("dispatcher stopped", stats)
				return stats, err
			}
			d.handle(ctx, event, &stats)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, event model.RawEvent, stats *Stats) {
	stats.Total++

	result, err := d.Process(ctx, event)
	if err != nil {
		d.drop(ctx, event, dex.FailureKind(err), err, stats)
		return
	}

	if err := d.sink.PutPrice(ctx, result); err != nil {
		d.drop(ctx, event, outputFailure, err, stats)
		return
	}
	stats.Priced++
	d.logger.Debug("price emitted",
		zap.String("pool", result.Pool),
		zap.String("event", result.Variant.EventName()),
		zap.Uint64("block_number", result.BlockNumber),
		zap.String("price", result.PriceText),
	)
}

// Process classifies, resolves, and prices a single event.
// Classification runs first so events of unknown shape never reach the cache.
func (d *Dispatcher) Process(ctx context.Context, event model.RawEvent) (model.PriceResult, error) {
	variant, err := dex.Classify(len(event.Topics))
	if err != nil {
		return model.PriceResult{}, err
	}

	_, cached := d.cache.Get(event.Address)
	meta, err := d.cache.Resolve(ctx, event.Address)
	if err != nil {
		return model.PriceResult{}, err
	}
	if !cached && d.pools != nil {
		if err := d.pools.PutPool(ctx, model.NewPool(event.Address.Hex(), meta, event.BlockNumber)); err != nil {
			d.logger.Warn("store pool failed", zap.String("pool", event.Address.Hex()), zap.Error(err))
		}
	}

	price, err := dex.PriceFromPayload(variant, event.Data, meta)
	if err != nil {
		return model.PriceResult{}, err
	}
	value, text := dex.FormatSignificant(price, dex.SignificantDigits)

	return model.PriceResult{
		Timestamp:   event.Timestamp,
		BlockNumber: event.BlockNumber,
		TxHash:      event.TxHash.Hex(),
		LogIndex:    uint64(event.LogIndex),
		Pool:        event.Address.Hex(),
		Pair:        meta.PairLabel(),
		Variant:     variant,
		Price:       value,
		PriceText:   text,
	}, nil
}

func (d *Dispatcher) drop(ctx context.Context, event model.RawEvent, kind string, err error, stats *Stats) {
	stats.Dropped++
	stats.ByKind[kind]++

	d.logger.Warn("drop event",
		zap.String("pool", event.Address.Hex()),
		zap.String("kind", kind),
		zap.Uint64("block_number", event.BlockNumber),
		zap.String("tx_hash", event.TxHash.Hex()),
		zap.Error(err),
	)

	if d.drops == nil {
		return
	}
	record := model.DropRecord{
		BlockNumber: event.BlockNumber,
		TxHash:      event.TxHash.Hex(),
		LogIndex:    uint64(event.LogIndex),
		Pool:        event.Address.Hex(),
		Topics:      len(event.Topics),
		Kind:        kind,
		Error:       err.Error(),
		ObservedAt:  event.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if err := d.drops.PutDrop(ctx, record); err != nil {
		d.logger.Warn("store drop record failed", zap.String("pool", record.Pool), zap.Error(err))
	}
}

func (d *Dispatcher) logStats(msg string, stats Stats) {
	d.logger.Info(msg,
		zap.Int("total", stats.Total),
		zap.Int("priced", stats.Priced),
		zap.Int("dropped", stats.Dropped),
		zap.Int("pools_cached", d.cache.Len()),
	)
}
