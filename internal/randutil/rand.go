// Package randutil centralises how the project seeds math/rand/v2 so that
// every consumer gets reproducible sequences from a single int64 seed.
package randutil

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed. rand/v2's
// PCG wants two 64-bit words, so the single seed is stretched through a
// splitmix-style finalizer.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Derive returns a generator for an independent stream identified by
// stream. Streams derived from the same seed do not correlate, which lets
// parallel trials share one top-level seed.
func Derive(seed, stream int64) *rand.Rand {
	s := mix(uint64(seed) ^ mix(uint64(stream)+goldenRatio64))
	return rand.New(rand.NewPCG(s, mix(s+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
