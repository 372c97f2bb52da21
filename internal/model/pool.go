package model

// Pool is a pool metadata row for storage.
type Pool struct {
	Address        string `json:"address"`
	Token0         string `json:"token0"`
	Token1         string `json:"token1"`
	Token0Symbol   string `json:"token0_symbol"`
	Token1Symbol   string `json:"token1_symbol"`
	Token0Decimals uint8  `json:"token0_decimals"`
	Token1Decimals uint8  `json:"token1_decimals"`
	FirstSeenBlock uint64 `json:"first_seen_block"`
}

// NewPool builds a storage row from cached metadata.
func NewPool(address string, meta PoolMeta, firstSeenBlock uint64) Pool {
	return Pool{
		Address:        address,
		Token0:         meta.Token0,
		Token1:         meta.Token1,
		Token0Symbol:   meta.Token0Symbol,
		Token1Symbol:   meta.Token1Symbol,
		Token0Decimals: meta.Token0Decimals,
		Token1Decimals: meta.Token1Decimals,
		FirstSeenBlock: firstSeenBlock,
	}
}
