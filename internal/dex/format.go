package dex

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// SignificantDigits is the display precision of emitted prices.
const SignificantDigits = 5

// FormatSignificant rounds price (half away from zero) to digits significant
// digits and renders it in plain notation, keeping trailing zeros.
func FormatSignificant(price *big.Rat, digits int) (decimal.Decimal, string) {
	if price == nil || price.Sign() == 0 || digits <= 0 {
		return decimal.Zero, "0"
	}

	num := decimal.NewFromBigInt(price.Num(), 0)
	den := decimal.NewFromBigInt(price.Denom(), 0)

	mag := magnitude(price)
	places := int32(digits - 1 - mag)
	rounded := num.DivRound(den, places)

	// 9.99996 rounds up to 10.0000, one digit too many.
	limit := decimal.New(1, int32(mag+1))
	if rounded.Abs().GreaterThanOrEqual(limit) {
		places--
		rounded = num.DivRound(den, places)
	}

	if places > 0 {
		return rounded, rounded.StringFixed(places)
	}
	return rounded, rounded.String()
}

// magnitude returns floor(log10(|r|)) for a non-zero r.
func magnitude(r *big.Rat) int {
	num := new(big.Int).Abs(r.Num())
	den := r.Denom()

	m := len(num.String()) - len(den.String())
	if cmpPow10(num, den, m) < 0 {
		m--
	}
	return m
}

// cmpPow10 compares num/den with 10^exp.
func cmpPow10(num, den *big.Int, exp int) int {
	if exp >= 0 {
		return num.Cmp(new(big.Int).Mul(den, pow10(uint(exp))))
	}
	return new(big.Int).Mul(num, pow10(uint(-exp))).Cmp(den)
}
