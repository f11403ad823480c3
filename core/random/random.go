// Package random centralizes seeding so that every estimator draws from the
// same PCG generator family and a given random_state reproduces exactly.
package random

import (
	"math/rand/v2"
	"time"
)

// New returns a generator for seed. A nil seed draws a fresh one from the clock.
func New(seed *int64) *rand.Rand {
	var s uint64
	if seed != nil {
		s = uint64(*seed)
	} else {
		s = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(s, s))
}

// Seed returns a pointer to v, for optional random_state fields.
func Seed(v int64) *int64 {
	return &v
}

// Derive draws n child seeds from r. Ensembles hand one to each member so
// that results do not depend on scheduling.
func Derive(r *rand.Rand, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = r.Int64()
	}
	return seeds
}

// Param renders an optional seed for GetParams: nil when unset, else the int64.
func Param(seed *int64) interface{} {
	if seed == nil {
		return nil
	}
	return *seed
}
