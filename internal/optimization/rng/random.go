// Package rng provides the deterministic random number streams used by the
// evolutionary engine.
//
// A Random is a single Mersenne Twister stream and is not safe for
// concurrent use. Parallel code creates one stream per worker with
// NewStreams, each seeded with one draw from a SeedSource. A stream is
// reproducible for a fixed seed; a multi-worker run is reproducible only when
// the assignment of work to streams is itself deterministic.
package rng

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mathext/prng"
)

// Random is a pseudo-random stream backed by a 32 bit MT19937 generator.
type Random struct {
	src  *prng.MT19937
	rand *rand.Rand
	seed uint32
}

// New returns a stream initialized from seed.
func New(seed uint32) *Random {
	src := prng.NewMT19937()
	src.Seed(uint64(seed))
	return &Random{
		src:  src,
		rand: rand.New(src),
		seed: seed,
	}
}

// Seed returns the value the stream was initialized with.
func (r *Random) Seed() uint32 {
	return r.seed
}

// Uint32 returns the next raw 32 bit output of the generator.
func (r *Random) Uint32() uint32 {
	return r.src.Uint32()
}

// Uint64 returns two generator outputs packed high word first. It makes
// Random a math/rand/v2 Source, so gonum distributions can sample from it.
func (r *Random) Uint64() uint64 {
	return r.src.Uint64()
}

// Next returns a non-negative pseudo-random int in [0, 2^31-1).
func (r *Random) Next() int {
	return next31(r.src.Uint32)
}

// next31 keeps the top 31 bits of each draw, redrawing 2^31-1.
func next31(draw func() uint32) int {
	for {
		if v := int(draw() >> 1); v != math.MaxInt32 {
			return v
		}
	}
}

// IntN returns a pseudo-random int in [0, n). IntN(0) returns 0.
// It panics if n < 0.
func (r *Random) IntN(n int) int {
	if n < 0 {
		panic("rng: invalid argument to IntN")
	}
	if n == 0 {
		return 0
	}
	return r.rand.IntN(n)
}

// IntRange returns a pseudo-random int in [min, max). When min == max it
// returns min. It panics if min > max.
func (r *Random) IntRange(min, max int) int {
	if min > max {
		panic("rng: invalid argument to IntRange")
	}
	if min == max {
		return min
	}
	return min + r.rand.IntN(max-min)
}

// Float64 returns a pseudo-random float64 in [0.0, 1.0).
func (r *Random) Float64() float64 {
	return r.rand.Float64()
}

// Float64Range returns a pseudo-random float64 in [min, max).
func (r *Random) Float64Range(min, max float64) float64 {
	return (max-min)*r.rand.Float64() + min
}

// NormFloat64 returns a standard normally distributed float64.
func (r *Random) NormFloat64() float64 {
	return r.rand.NormFloat64()
}

// Rand exposes the underlying *rand.Rand for helpers that take one. It
// shares state with r.
func (r *Random) Rand() *rand.Rand {
	return r.rand
}
