package indexer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffSucceedsAfterFailures(t *testing.T) {
	calls := 0
	var attempts []int
	err := newBackoff(3, time.Millisecond).do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	}, func(attempt int, _ error) {
		attempts = append(attempts, attempt)
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if calls != 3 || len(attempts) != 2 || attempts[1] != 2 {
		t.Fatalf("unexpected attempts: calls=%d failures=%v", calls, attempts)
	}
}

func TestBackoffExhausted(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := newBackoff(2, time.Millisecond).do(context.Background(), func(context.Context) error {
		calls++
		return boom
	}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestBackoffCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := newBackoff(5, time.Hour).do(ctx, func(context.Context) error {
		cancel()
		return errors.New("rpc down")
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
