package service

import (
	"github.com/shopspring/decimal"

	"irecStatApp/pkg/seed"
)

// weightScale turns squared fractions into integer weights so the split can
// be done with exact integer division.
const weightScale = 1 << 32

// Distribute splits total into count whole, non-negative quantities that sum
// exactly to floor(total).
//
// Weights are seed.Fraction(seedValue+i) squared, which skews the split
// towards a few large shares and many small ones. Every entry but the last is
// floor(total * w_i / sum(w)); the last entry takes the remainder, so the sum
// is exact.
//
// The result is dense: when total is small relative to count several entries
// may be zero. Callers that display the entries drop zero quantities
// themselves. A non-positive total or count returns nil.
func Distribute(total decimal.Decimal, count int, seedValue int64) []decimal.Decimal {
	total = total.Floor()
	if count <= 0 || !total.IsPositive() {
		return nil
	}

	weights := make([]decimal.Decimal, count)
	sum := decimal.Zero
	for i := 0; i < count; i++ {
		f := seed.Fraction(seedValue + int64(i))
		w := decimal.NewFromInt(int64(f * f * weightScale))
		weights[i] = w
		sum = sum.Add(w)
	}
	if sum.IsZero() {
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
		sum = decimal.NewFromInt(int64(count))
	}

	shares := make([]decimal.Decimal, count)
	allocated := decimal.Zero
	for i := 0; i < count-1; i++ {
		q, _ := total.Mul(weights[i]).QuoRem(sum, 0)
		shares[i] = q
		allocated = allocated.Add(q)
	}
	shares[count-1] = total.Sub(allocated)
	return shares
}

// SumQuantities adds up qs.
func SumQuantities(qs []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, q := range qs {
		sum = sum.Add(q)
	}
	return sum
}
