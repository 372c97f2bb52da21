package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"priceScope/internal/model"
)

// LogSubscriber opens a log subscription.
type LogSubscriber interface {
	SubscribeLogs(ctx context.Context, addresses []common.Address, topic0 []common.Hash, ch chan<- types.Log) (ethereum.Subscription, error)
}

// SubscriptionConfig holds filter settings for a live subscription.
type SubscriptionConfig struct {
	Addresses []common.Address
	Topic0    []common.Hash
	Buffer    int
}

// Subscription streams logs pushed by the node over a websocket.
type Subscription struct {
	cfg    SubscriptionConfig
	client LogSubscriber
	logger *zap.Logger
	now    func() time.Time
}

func NewSubscription(cfg SubscriptionConfig, client LogSubscriber, logger *zap.Logger) *Subscription {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 128
	}
	return &Subscription{cfg: cfg, client: client, logger: logger, now: time.Now}
}

// Events implements Source.
func (s *Subscription) Events(ctx context.Context) (<-chan model.RawEvent, <-chan error) {
	return start(ctx, s.run)
}

func (s *Subscription) run(ctx context.Context, events chan<- model.RawEvent) error {
	if s.client == nil {
		return fmt.Errorf("%w: chain client is nil", ErrTransport)
	}

	logs := make(chan types.Log, s.cfg.Buffer)
	sub, err := s.client.SubscribeLogs(ctx, s.cfg.Addresses, s.cfg.Topic0, logs)
	if err != nil {
		return fmt.Errorf("%w: subscribe logs: %w", ErrTransport, err)
	}
	defer sub.Unsubscribe()

	s.logger.Info("log subscription open",
		zap.Int("addresses", len(s.cfg.Addresses)),
		zap.Int("topic0", len(s.cfg.Topic0)),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				return fmt.Errorf("%w: subscription closed", ErrTransport)
			}
			return fmt.Errorf("%w: subscription: %w", ErrTransport, err)
		case log := <-logs:
			if log.Removed {
				s.logger.Debug("skip removed log", zap.String("tx_hash", log.TxHash.Hex()), zap.Uint("log_index", log.Index))
				continue
			}
			if err := emit(ctx, events, toRawEvent(log, s.now())); err != nil {
				return err
			}
		}
	}
}
