// Package seed turns string keys into stable integer seeds and seeds into
// reproducible fractional streams.
//
// Nothing in this package reads a system random source: the same key always
// yields the same hash, and the same seed always yields the same sequence.
// Adjacent seeds (s, s+1, s+2, ...) are run through a splitmix64 finaliser so
// the resulting fractions are not monotonic in the seed.
package seed

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	goldenGamma = 0x9e3779b97f4a7c15
	mantissa    = 1 << 53
)

// Hash returns a stable 32-bit hash of key.
func Hash(key string) uint32 {
	h := xxhash.Sum64String(key)
	return uint32(h ^ (h >> 32))
}

// HashParts hashes the concatenation of parts. HashParts("p", "1") equals
// Hash("p1").
func HashParts(parts ...string) uint32 {
	return Hash(strings.Join(parts, ""))
}

// Mix scrambles x with the splitmix64 finaliser.
func Mix(x uint64) uint64 {
	x += goldenGamma
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Fraction returns a deterministic value in [0, 1) for seed.
func Fraction(seed int64) float64 {
	return float64(Mix(uint64(seed))>>11) / mantissa
}

// Stream yields Fraction(base), Fraction(base+1), ... on successive calls.
// A Stream is not safe for concurrent use.
type Stream struct {
	base int64
	next int64
}

// NewStream starts a stream at base.
func NewStream(base int64) *Stream {
	return &Stream{base: base}
}

// NewStreamFromKey starts a stream at Hash(key).
func NewStreamFromKey(key string) *Stream {
	return NewStream(int64(Hash(key)))
}

// Float returns the next fraction in [0, 1).
func (s *Stream) Float() float64 {
	f := Fraction(s.base + s.next)
	s.next++
	return f
}

// Intn returns the next value in [0, n). Intn panics if n <= 0.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		panic("seed: invalid argument to Intn")
	}
	v := int(s.Float() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// Range returns the next value in [min, max].
func (s *Stream) Range(min, max int) int {
	if min >= max {
		return min
	}
	return min + s.Intn(max-min+1)
}

// Uint64 returns the next raw 64-bit value.
func (s *Stream) Uint64() uint64 {
	v := Mix(uint64(s.base + s.next))
	s.next++
	return v
}

// Hex returns the next n bytes rendered as lower-case hex.
func (s *Stream) Hex(n int) string {
	const digits = "0123456789abcdef"
	var b strings.Builder
	b.Grow(n * 2)
	var word uint64
	for i := 0; i < n; i++ {
		if i%8 == 0 {
			word = s.Uint64()
		}
		octet := byte(word >> (8 * (i % 8)))
		b.WriteByte(digits[octet>>4])
		b.WriteByte(digits[octet&0x0f])
	}
	return b.String()
}

// Weighted picks an index from weights in proportion to their value.
// Non-positive weights are never picked; if every weight is non-positive the
// first index is returned.
func (s *Stream) Weighted(weights []float64) int {
	return PickWeighted(s.Float(), weights)
}

// PickWeighted maps a fraction in [0, 1) onto weights.
func PickWeighted(f float64, weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0
	}
	target := f * total
	var acc float64
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if target < acc {
			return i
		}
	}
	return last
}
