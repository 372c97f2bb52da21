package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RawEvent is one observed pool log. Timestamp is local observation time, not block time.
type RawEvent struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Timestamp   time.Time
}
