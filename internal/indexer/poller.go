package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"priceScope/internal/model"
)

// LogFilterer queries logs by block range.
type LogFilterer interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// PollConfig holds runtime settings for head polling.
type PollConfig struct {
	Addresses    []common.Address
	Topic0       []common.Hash
	Interval     time.Duration
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Poller tails the chain head with eth_getLogs for endpoints without subscriptions.
// It starts at the head observed on the first poll and never looks further back.
type Poller struct {
	cfg    PollConfig
	chain  LogFilterer
	logger *zap.Logger
	retry  backoff
	now    func() time.Time
}

func NewPoller(cfg PollConfig, chainClient LogFilterer, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 4 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	return &Poller{
		cfg:    cfg,
		chain:  chainClient,
		logger: logger,
		retry:  newBackoff(cfg.MaxRetries, cfg.RetryBackoff),
		now:    time.Now,
	}
}

// Events implements Source.
func (p *Poller) Events(ctx context.Context) (<-chan model.RawEvent, <-chan error) {
	return start(ctx, p.run)
}

func (p *Poller) run(ctx context.Context, events chan<- model.RawEvent) error {
	if p.chain == nil {
		return fmt.Errorf("%w: chain client is nil", ErrTransport)
	}

	next, err := p.latestWithRetry(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("polling from head", zap.Uint64("from", next), zap.Duration("interval", p.cfg.Interval))

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		head, err := p.latestWithRetry(ctx)
		if err != nil {
			return err
		}

		for _, blockRange := range catchUp(next, head, p.cfg.BatchSize) {
			logs, err := p.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
			if err != nil {
				return err
			}
			observedAt := p.now()
			for _, log := range logs {
				if log.Removed {
					continue
				}
				if err := emit(ctx, events, toRawEvent(log, observedAt)); err != nil {
					return err
				}
			}
			p.logger.Debug("range polled", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To), zap.Int("logs", len(logs)))
			next = blockRange.To + 1
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) latestWithRetry(ctx context.Context) (uint64, error) {
	var head uint64
	err := p.retry.do(ctx, func(ctx context.Context) error {
		var err error
		head, err = p.chain.LatestBlockNumber(ctx)
		return err
	}, func(attempt int, err error) {
		p.logger.Warn("latest block fetch failed", zap.Int("attempt", attempt), zap.Error(err))
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: latest block: %w", ErrTransport, err)
	}
	return head, nil
}

func (p *Poller) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := p.retry.do(ctx, func(ctx context.Context) error {
		var err error
		logs, err = p.chain.FilterLogs(ctx, fromBlock, toBlock, p.cfg.Addresses, p.cfg.Topic0)
		return err
	}, func(attempt int, err error) {
		p.logger.Warn("filter logs failed", zap.Int("attempt", attempt), zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: filter logs %d-%d: %w", ErrTransport, fromBlock, toBlock, err)
	}
	return logs, nil
}
