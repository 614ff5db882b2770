package universe

import (
	"math/rand/v2"
	"time"
)

// Random is the source used for spawn and gravity sampling.
// *rand.Rand from math/rand/v2 satisfies it.
type Random interface {
	// IntN returns a value in [0, n). n is always positive.
	IntN(n int) int
}

func newDefaultRandom() Random {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// between returns a value in [lo, hi], both inclusive.
func between(r Random, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}
