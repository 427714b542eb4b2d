package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistribute_SumsExactly(t *testing.T) {
	cases := []struct {
		total string
		count int
		seed  int64
	}{
		{"100", 4, 7},
		{"1", 1, 0},
		{"3", 10, 99},
		{"250000", 37, 123456},
		{"1000000", 80, -5},
		{"98765432109876543210", 25, 42},
	}
	for _, tc := range cases {
		total := decimal.RequireFromString(tc.total)
		shares := Distribute(total, tc.count, tc.seed)
		require.Len(t, shares, tc.count)
		assert.True(t, SumQuantities(shares).Equal(total), "total %s count %d", tc.total, tc.count)
		for _, s := range shares {
			assert.False(t, s.IsNegative())
			assert.True(t, s.Equal(s.Floor()), "share %s is not whole", s)
		}
	}
}

func TestDistribute_Example(t *testing.T) {
	first := Distribute(decimal.NewFromInt(100), 4, 7)
	second := Distribute(decimal.NewFromInt(100), 4, 7)
	require.Len(t, first, 4)
	assert.Equal(t, "100", SumQuantities(first).String())
	for i := range first {
		assert.True(t, first[i].Equal(second[i]))
	}
}

func TestDistribute_Degenerate(t *testing.T) {
	assert.Empty(t, Distribute(decimal.Zero, 5, 1))
	assert.Empty(t, Distribute(decimal.NewFromInt(10), 0, 1))
	assert.Empty(t, Distribute(decimal.NewFromInt(-10), 3, 1))
	assert.Empty(t, Distribute(decimal.RequireFromString("0.9"), 3, 1))
}

func TestDistribute_FractionalTotalIsFloored(t *testing.T) {
	shares := Distribute(decimal.RequireFromString("10.75"), 3, 11)
	assert.Equal(t, "10", SumQuantities(shares).String())
}

func TestDistribute_SkewedTowardsFewLargeShares(t *testing.T) {
	total := decimal.NewFromInt(1000000)
	shares := Distribute(total, 100, 2024)
	largest := decimal.Zero
	for _, s := range shares {
		if s.GreaterThan(largest) {
			largest = s
		}
	}
	// An even split would give 10000 each; squaring the weights makes the
	// largest share several times bigger.
	assert.True(t, largest.GreaterThan(decimal.NewFromInt(20000)), "largest %s", largest)
}

func TestDistribute_DifferentSeedsDiffer(t *testing.T) {
	a := Distribute(decimal.NewFromInt(10000), 10, 1)
	b := Distribute(decimal.NewFromInt(10000), 10, 2)
	same := true
	for i := range a {
		if !a[i].Equal(b[i]) {
			same = false
		}
	}
	assert.False(t, same)
}
