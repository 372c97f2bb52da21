package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PriceResult is the priced view of one event: token1 per token0.
type PriceResult struct {
	Timestamp   time.Time       `json:"timestamp"`
	BlockNumber uint64          `json:"block_number"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	Pool        string          `json:"pool"`
	Pair        string          `json:"pair"`
	Variant     Variant         `json:"variant"`
	Price       decimal.Decimal `json:"price"`
	PriceText   string          `json:"price_text"`
}

// MarshalJSON keeps the timestamp in UTC RFC3339Nano.
func (r PriceResult) MarshalJSON() ([]byte, error) {
	type Alias PriceResult
	return json.Marshal(struct {
		Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias:     Alias(r),
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}
