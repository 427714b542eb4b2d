package seed

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_Deterministic(t *testing.T) {
	keys := []string{"", "a", "IREC-0001", "project-42", "bafy1234"}
	for _, k := range keys {
		assert.Equal(t, Hash(k), Hash(k), "key %q", k)
	}
	assert.Equal(t, Hash("p1"), HashParts("p", "1"))
}

func TestHash_LowCollisionOnShortIDs(t *testing.T) {
	seen := make(map[uint32]string)
	for i := 0; i < 2000; i++ {
		key := "IREC-" + string(rune('A'+i%26)) + strconv.Itoa(i)
		h := Hash(key)
		if prev, ok := seen[h]; ok {
			t.Fatalf("collision between %q and %q", prev, key)
		}
		seen[h] = key
	}
}

func TestFraction_Range(t *testing.T) {
	for s := int64(-1000); s < 1000; s++ {
		f := Fraction(s)
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
}

func TestFraction_AdjacentSeedsNotMonotonic(t *testing.T) {
	increasing, decreasing := 0, 0
	for s := int64(0); s < 200; s++ {
		if Fraction(s+1) > Fraction(s) {
			increasing++
		} else {
			decreasing++
		}
	}
	// A monotonic mapping would put all 200 steps on one side.
	assert.Greater(t, increasing, 60)
	assert.Greater(t, decreasing, 60)
}

func TestFraction_MeanRoughlyUniform(t *testing.T) {
	const n = 10000
	var sum float64
	for s := int64(0); s < n; s++ {
		sum += Fraction(s)
	}
	assert.InDelta(t, 0.5, sum/n, 0.02)
}

func TestStream_Reproducible(t *testing.T) {
	a := NewStreamFromKey("project-7")
	b := NewStreamFromKey("project-7")
	for i := 0; i < 50; i++ {
		require.Equal(t, a.Float(), b.Float())
	}
	assert.Equal(t, NewStream(7).Hex(20), NewStream(7).Hex(20))
	assert.Len(t, NewStream(7).Hex(32), 64)
}

func TestStream_IntnAndRange(t *testing.T) {
	s := NewStream(99)
	for i := 0; i < 1000; i++ {
		v := s.Intn(7)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 7)
		r := s.Range(3, 5)
		require.GreaterOrEqual(t, r, 3)
		require.LessOrEqual(t, r, 5)
	}
	assert.Equal(t, 4, s.Range(4, 4))
	assert.Panics(t, func() { s.Intn(0) })
}

func TestPickWeighted(t *testing.T) {
	weights := []float64{45, 30, 20, 5}
	assert.Equal(t, 0, PickWeighted(0, weights))
	assert.Equal(t, 0, PickWeighted(0.44, weights))
	assert.Equal(t, 1, PickWeighted(0.46, weights))
	assert.Equal(t, 2, PickWeighted(0.80, weights))
	assert.Equal(t, 3, PickWeighted(0.99, weights))
	assert.Equal(t, 2, PickWeighted(0.5, []float64{0, -1, 3}))
	assert.Equal(t, 0, PickWeighted(0.5, []float64{0, 0}))

	counts := make([]int, len(weights))
	s := NewStream(1)
	for i := 0; i < 20000; i++ {
		counts[s.Weighted(weights)]++
	}
	assert.InDelta(t, 0.45, float64(counts[0])/20000, 0.03)
	assert.InDelta(t, 0.05, float64(counts[3])/20000, 0.02)
}
