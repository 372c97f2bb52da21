package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"priceScope/internal/model"
)

// ErrTransport marks a terminal failure of the event stream.
var ErrTransport = errors.New("transport failure")

// Source produces pool events in chain order.
//
// The events channel closes when the stream ends. The error channel then
// yields the terminal error (nil on a clean end)
// and closes.
type Source interface {
	Events(ctx context.Context) (<-chan model.RawEvent, <-chan error)
}

// start runs produce in its own goroutine with the channel contract of Source.
func start(ctx context.Context, produce func(context.Context, chan<- model.RawEvent) error) (<-chan model.RawEvent, <-chan error) {
	events := make(chan model.RawEvent)
	errs := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errs)
		errs <- produce(ctx, events)
	}()
	return events, errs
}

func emit(ctx context.Context, events chan<- model.RawEvent, event model.RawEvent) error {
	select {
	case events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func toRawEvent(log types.Log, observedAt time.Time) model.RawEvent {
	topics := make([]common.Hash, 0, len(log.Topics))
	topics = append(topics, log.Topics...)
	data := make([]byte, len(log.Data))
	copy(data, log.Data)

	return model.RawEvent{
		Address:     log.Address,
		Topics:      topics,
		Data:        data,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
		Timestamp:   observedAt,
	}
}
