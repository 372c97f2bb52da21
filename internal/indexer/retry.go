package indexer

import (
	"context"
	"time"
)

const maxBackoffDelay = 10 * time.Second

// backoff retries an RPC call with doubling delays capped at maxBackoffDelay.
type backoff struct {
	retries int
	base    time.Duration
}

func newBackoff(retries int, base time.Duration) backoff {
	if retries < 0 {
		retries = 0
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return backoff{retries: retries, base: base}
}

// do calls fn until it succeeds or the retries run out. onFail, if set, sees every failed attempt.
// A cancelled ctx ends the loop with ctx.Err().
func (b backoff) do(ctx context.Context, fn func(context.Context) error, onFail func(attempt int, err error)) error {
	delay := b.base
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if onFail != nil {
			onFail(attempt, err)
		}
		if attempt > b.retries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxBackoffDelay {
			delay = maxBackoffDelay
		}
	}
}
