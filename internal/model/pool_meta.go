package model

// PoolMeta captures the static facts about a pool that are fetched once per process.
type PoolMeta struct {
	Token0         string `json:"token0"`
	Token1         string `json:"token1"`
	Token0Symbol   string `json:"token0_symbol"`
	Token1Symbol   string `json:"token1_symbol"`
	Token0Decimals uint8  `json:"token0_decimals"`
	Token1Decimals uint8  `json:"token1_decimals"`
}

// PairLabel returns "token0Symbol/token1Symbol" in the pool's own token order.
func (m PoolMeta) PairLabel() string {
	return m.Token0Symbol + "/" + m.Token1Symbol
}

// TokenMeta is the ERC20 subset needed for pricing, cached per token across pools.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}
