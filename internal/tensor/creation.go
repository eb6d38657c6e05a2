package tensor

import (
	"hash/fnv"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Randn creates a tensor with values drawn from the standard normal N(0, 1).
//
// A nil src falls back to the global math/rand/v2 source.
//
// Example:
//
//	src := rand.NewPCG(42, 42)
//	z := tensor.Randn(tensor.Shape{16, 1, 32, 32}, src)
func Randn(shape Shape, src rand.Source) *Tensor {
	t := Zeros(shape)
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	for i := range t.data {
		t.data[i] = dist.Rand()
	}
	return t
}

// Rand creates a tensor with values uniformly distributed in [0, 1).
func Rand(shape Shape, src rand.Source) *Tensor {
	t := Zeros(shape)
	dist := distuv.Uniform{Min: 0, Max: 1, Src: src}
	for i := range t.data {
		t.data[i] = dist.Rand()
	}
	return t
}

// NewSource returns a PCG source seeded from seed, or from the global
// generator when seed is negative.
func NewSource(seed int64) rand.Source {
	if seed < 0 {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15) //nolint:gosec // G115: seed reinterpretation is intended.
}

// NewStream returns a PCG source for one named consumer of a run seed.
// Different names give independent streams for the same seed, so a single
// seed can drive shuffling, initialization and noise without any two of
// them replaying the same draws. A negative seed is random as in NewSource.
func NewStream(seed int64, name string) rand.Source {
	if seed < 0 {
		return NewSource(seed)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return rand.NewPCG(uint64(seed), h.Sum64()) //nolint:gosec // G115: seed reinterpretation is intended.
}
