package model

// DropRecord records an event that could not be priced.
type DropRecord struct {
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Pool        string `json:"pool"`
	Topics      int    `json:"topics"`
	Kind        string `json:"kind"`
	Error       string `json:"error"`
	ObservedAt  string `json:"observed_at"`
}
