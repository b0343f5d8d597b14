// rand/rand.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rand

import (
	"time"

	"github.com/MichaelTJones/pcg"
)

///////////////////////////////////////////////////////////////////////////
// Random numbers.

// Rand is a PCG32 generator. It is not safe for concurrent use; each
// goroutine that draws numbers must own its own Rand.
type Rand struct {
	r *pcg.PCG32
}

const pcgSequence = 0xda3e39cb94b95bdb

// Make returns a generator seeded with seed; a zero seed is replaced by
// the current time.
func Make(seed int64) *Rand {
	r := &Rand{r: pcg.NewPCG32()}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r.Seed(seed)
	return r
}

func (r *Rand) Seed(s int64) {
	r.r.Seed(uint64(s), pcgSequence)
}

func (r *Rand) Intn(n int) int {
	return int(r.r.Bounded(uint32(n)))
}

func (r *Rand) Uint32() uint32 {
	return r.r.Random()
}

// Float64 returns a uniformly distributed value in [0,1) with 53 bits of
// precision, assembled from two 32-bit draws.
func (r *Rand) Float64() float64 {
	a := uint64(r.r.Random()) >> 5
	b := uint64(r.r.Random()) >> 6
	return float64(a<<26|b) / (1 << 53)
}

// Derive returns a new generator whose seed is drawn from r, so that a
// single configured seed can fan out to independent streams.
func (r *Rand) Derive() *Rand {
	s := int64(r.Uint32())<<32 | int64(r.Uint32())
	if s == 0 {
		s = 1
	}
	return Make(s)
}

// SampleSlice uniformly randomly samples an element of a non-empty slice.
func SampleSlice[T any](r *Rand, slice []T) T {
	return slice[r.Intn(len(slice))]
}
