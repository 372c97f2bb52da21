package dex

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// wordSize is the widest field accepted: one 256-bit ABI word.
const wordSize = 32

// SplitWords partitions data into n equal-width big-endian fields.
func SplitWords(data []byte, n int) ([][]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: partition count %d", ErrMalformedPayload, n)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrMalformedPayload)
	}
	if len(data)%n != 0 {
		return nil, fmt.Errorf("%w: %d bytes do not split into %d fields", ErrMalformedPayload, len(data), n)
	}

	size := len(data) / n
	if size > wordSize {
		return nil, fmt.Errorf("%w: field width %d exceeds %d bytes", ErrMalformedPayload, size, wordSize)
	}

	fields := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		fields = append(fields, data[i*size:(i+1)*size])
	}
	return fields, nil
}

// DecodeWord reads an unsigned big-endian integer of at most 256 bits.
func DecodeWord(field []byte) (*big.Int, error) {
	if len(field) > wordSize {
		return nil, fmt.Errorf("%w: field width %d exceeds %d bytes", ErrMalformedPayload, len(field), wordSize)
	}
	return new(uint256.Int).SetBytes(field).ToBig(), nil
}

// ScalePow10 returns value / 10^decimals.
func ScalePow10(value *big.Int, decimals uint8) *big.Rat {
	return new(big.Rat).SetFrac(value, pow10(uint(decimals)))
}

// ScalePow2 returns value / 2^exponent.
func ScalePow2(value *big.Int, exponent uint) *big.Rat {
	return new(big.Rat).SetFrac(value, new(big.Int).Lsh(big.NewInt(1), exponent))
}

func pow10(exp uint) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(uint64(exp)), nil)
}

// pow10Rat returns 10^exp for a signed exponent.
func pow10Rat(exp int) *big.Rat {
	if exp >= 0 {
		return new(big.Rat).SetInt(pow10(uint(exp)))
	}
	return new(big.Rat).SetFrac(big.NewInt(1), pow10(uint(-exp)))
}
