package dex

import (
	"fmt"
	"math/big"

	"priceScope/internal/model"
)

const (
	// Sync data: [reserve0 uint112, reserve1 uint112].
	v2Fields = 2
	// Swap data: [amount0, amount1, sqrtPriceX96 uint160, liquidity, tick].
	v3Fields         = 5
	v3SqrtPriceIndex = 2
	q96Exponent      = 96
)

// V2Price returns token1 per token0 from pair reserves:
// (reserve1 / 10^decimals1) / (reserve0 / 10^decimals0).
func V2Price(reserve0, reserve1 *big.Int, decimals0, decimals1 uint8) (*big.Rat, error) {
	if reserve0 == nil || reserve1 == nil {
		return nil, fmt.Errorf("%w: missing reserve", ErrInvalidNumericState)
	}
	if reserve0.Sign() < 0 || reserve1.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative reserve", ErrInvalidNumericState)
	}
	if reserve0.Sign() == 0 {
		return nil, fmt.Errorf("%w: reserve0 is zero", ErrDivisionByZero)
	}

	amount1 := ScalePow10(reserve1, decimals1)
	amount0 := ScalePow10(reserve0, decimals0)
	return new(big.Rat).Quo(amount1, amount0), nil
}

// V3Price returns token1 per token0 from a Q64.96 square-root price:
// 1 / (10^(decimals1-decimals0) / (sqrtPriceX96 / 2^96)^2).
// The square is taken before dividing by the decimal scale.
func V3Price(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (*big.Rat, error) {
	if sqrtPriceX96 == nil {
		return nil, fmt.Errorf("%w: missing sqrtPriceX96", ErrInvalidNumericState)
	}
	if sqrtPriceX96.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative sqrtPriceX96", ErrInvalidNumericState)
	}
	if sqrtPriceX96.Sign() == 0 {
		return nil, fmt.Errorf("%w: sqrtPriceX96 is zero", ErrDivisionByZero)
	}

	ratio := ScalePow2(sqrtPriceX96, q96Exponent)
	squared := new(big.Rat).Mul(ratio, ratio)
	scale := pow10Rat(int(decimals1) - int(decimals0))
	inverse := new(big.Rat).Quo(scale, squared)
	return new(big.Rat).Quo(big.NewRat(1, 1), inverse), nil
}

// PriceFromPayload decodes event data for the variant and prices it with the pool's decimals.
func PriceFromPayload(variant model.Variant, data []byte, meta model.PoolMeta) (*big.Rat, error) {
	switch variant {
	case model.VariantV2:
		fields, err := SplitWords(data, v2Fields)
		if err != nil {
			return nil, fmt.Errorf("sync: %w", err)
		}
		reserve0, err := DecodeWord(fields[0])
		if err != nil {
			return nil, fmt.Errorf("reserve0: %w", err)
		}
		reserve1, err := DecodeWord(fields[1])
		if err != nil {
			return nil, fmt.Errorf("reserve1: %w", err)
		}
		return V2Price(reserve0, reserve1, meta.Token0Decimals, meta.Token1Decimals)
	case model.VariantV3:
		fields, err := SplitWords(data, v3Fields)
		if err != nil {
			return nil, fmt.Errorf("swap: %w", err)
		}
		sqrtPrice, err := DecodeWord(fields[v3SqrtPriceIndex])
		if err != nil {
			return nil, fmt.Errorf("sqrtPriceX96: %w", err)
		}
		return V3Price(sqrtPrice, meta.Token0Decimals, meta.Token1Decimals)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
}
