// ABOUTME: Deterministic PRNG construction and a documented stable hash for pool names
// ABOUTME: Every PRNG here is an owned object threaded explicitly through its caller, never global state

// Package rng centralizes how this module turns a 32-bit solver seed into
// reproducible randomness, per the PRNG-as-shared-mutable-state design note:
// each generator is constructed from a pure function of (seed, context) and
// handed to exactly one caller.
package rng

import (
	"hash/crc32"
	"math/rand/v2"
)

// New builds a PCG-seeded generator from a 64-bit seed. Two distinct
// 64-bit halves are derived from seed via a splitmix64 step so that
// sequential seeds (e.g. restart index 0, 1, 2...) don't produce
// correlated PCG streams.
func New(seed uint64) *rand.Rand {
	s1 := splitmix64(seed)
	s2 := splitmix64(s1)

	return rand.New(rand.NewPCG(s1, s2))
}

// splitmix64 is the standard SplitMix64 mixing step, used only to spread
// small/sequential seeds before they reach a PCG source.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB

	return x ^ (x >> 31)
}

// StableHash32 hashes a string deterministically, replacing a language's
// built-in (and often process-randomized) string hash with something that
// agrees bit-for-bit across runs and implementations.
func StableHash32(s string) uint32 {
	return crc32.ChecksumIEEE([]byte(s))
}

// Derive combines a base seed with a stable per-context hash, used to seed
// one PRNG per bumper pool from a single solver seed without those
// streams correlating.
func Derive(base uint32, context string) uint64 {
	return uint64(base) ^ uint64(StableHash32(context))
}

// RestartSeed derives a phase-2 simulated-annealing restart's seed purely
// from the solver seed and the restart index, so the set of restarts run
// is a pure function of (seed, N) regardless of goroutine scheduling.
func RestartSeed(base uint32, idx int) uint64 {
	return splitmix64(uint64(base) ^ splitmix64(uint64(idx)+1))
}
