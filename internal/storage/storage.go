package storage

import (
	"context"
	"errors"

	"priceScope/internal/model"
)

// Sink receives priced events in arrival order.
type Sink interface {
	PutPrice(ctx context.Context, result model.PriceResult) error
}

// DropSink receives events that could not be priced.
type DropSink interface {
	PutDrop(ctx context.Context, record model.DropRecord) error
}

// PoolSink receives pool metadata the first time a pool is resolved.
type PoolSink interface {
	PutPool(ctx context.Context, pool model.Pool) error
}

// Multi writes each result to every sink in order.
type Multi []Sink

func (m Multi) PutPrice(ctx context.Context, result model.PriceResult) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutPrice(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
