package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"priceScope/internal/model"
)

// Console prints one human-readable block per priced event.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// PutPrice writes the record followed by a blank line.
func (c *Console) PutPrice(_ context.Context, r model.PriceResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.out,
		"Timestamp: %s\nBlock number: %d\nTransaction hash: %s\nPool contract: %s\nPool type: %s\nToken's pair: %s\nPrice: %s\n\n",
		r.Timestamp.Format(time.RFC3339Nano),
		r.BlockNumber,
		r.TxHash,
		r.Pool,
		r.Variant,
		r.Pair,
		r.PriceText,
	)
	if err != nil {
		return fmt.Errorf("write console record: %w", err)
	}
	return nil
}
