package rng

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMT19937ReferenceOutputs(t *testing.T) {
	t.Run("seed 42", func(t *testing.T) {
		r := New(42)
		want := []uint32{1608637542, 3421126067, 4083286876, 787846414, 3143890026}
		for i, w := range want {
			assert.Equal(t, w, r.Uint32(), "draw %d", i)
		}
	})

	t.Run("seed 5489 ten-thousandth output", func(t *testing.T) {
		r := New(5489)
		var got uint32
		for i := 0; i < 10000; i++ {
			got = r.Uint32()
		}
		assert.Equal(t, uint32(4123659995), got)
	})
}

func TestNextIsNonNegative31Bit(t *testing.T) {
	r := New(42)
	assert.Equal(t, 1608637542>>1, r.Next())
	assert.Equal(t, 3421126067>>1, r.Next())

	for i := 0; i < 1000; i++ {
		v := r.Next()
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, math.MaxInt32)
	}
}

func TestNextRedrawsTopValue(t *testing.T) {
	draws := []uint32{0xFFFFFFFF, 0xFFFFFFFE, 0xFFFFFFFD, 10}
	i := 0
	draw := func() uint32 {
		d := draws[i]
		i++
		return d
	}

	assert.Equal(t, math.MaxInt32-1, next31(draw))
	assert.Equal(t, 5, next31(draw))
	assert.Equal(t, len(draws), i)
}

func TestSeedingIsReproducible(t *testing.T) {
	a := New(1234)
	b := New(1234)

	for i := 0; i < 500; i++ {
		require.Equal(t, a.Uint32(), b.Uint32(), "raw draw %d", i)
		require.Equal(t, a.IntN(97), b.IntN(97), "bounded draw %d", i)
		require.Equal(t, a.Float64(), b.Float64(), "float draw %d", i)
	}
	assert.Equal(t, uint32(1234), a.Seed())
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)

	same := 0
	for i := 0; i < 100; i++ {
		if a.Uint32() == b.Uint32() {
			same++
		}
	}
	assert.Less(t, same, 5)
}

func TestIntN(t *testing.T) {
	r := New(7)

	assert.Equal(t, 0, r.IntN(0))
	assert.Equal(t, 0, r.IntN(1))
	assert.Panics(t, func() { r.IntN(-1) })

	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		v := r.IntN(10)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 10)
		seen[v] = true
	}
	assert.Len(t, seen, 10)
}

func TestIntRange(t *testing.T) {
	r := New(7)

	assert.Equal(t, 5, r.IntRange(5, 5))
	assert.Panics(t, func() { r.IntRange(3, 2) })

	for i := 0; i < 2000; i++ {
		v := r.IntRange(-3, 4)
		require.GreaterOrEqual(t, v, -3)
		require.Less(t, v, 4)
	}
}

func TestFloat64Bounds(t *testing.T) {
	r := New(99)
	for i := 0; i < 5000; i++ {
		v := r.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)

		w := r.Float64Range(-2.5, 2.5)
		require.GreaterOrEqual(t, w, -2.5)
		require.Less(t, w, 2.5)
	}
}

func TestNewStreams(t *testing.T) {
	t.Run("constant seed gives identical streams", func(t *testing.T) {
		streams := NewStreams(ConstantSeed(42), 3)
		require.Len(t, streams, 3)
		for _, s := range streams {
			assert.Equal(t, uint32(42), s.Seed())
		}
		assert.Equal(t, streams[0].Uint32(), streams[1].Uint32())
	})

	t.Run("derived seed is distinct and repeatable", func(t *testing.T) {
		first := NewStreams(NewDerivedSeed(42), 4)
		second := NewStreams(NewDerivedSeed(42), 4)

		seeds := make(map[uint32]bool)
		for i := range first {
			assert.Equal(t, first[i].Seed(), second[i].Seed())
			seeds[first[i].Seed()] = true
		}
		assert.Len(t, seeds, 4)
	})

	t.Run("seed func draws once per stream", func(t *testing.T) {
		calls := 0
		src := SeedFunc(func() uint32 {
			calls++
			return uint32(calls)
		})
		streams := NewStreams(src, 5)
		assert.Equal(t, 5, calls)
		for i, s := range streams {
			assert.Equal(t, uint32(i+1), s.Seed())
		}
	})

	t.Run("nil source falls back to crypto", func(t *testing.T) {
		streams := NewStreams(nil, 2)
		require.Len(t, streams, 2)
	})
}

func TestCryptoSeedVaries(t *testing.T) {
	var src CryptoSeed
	seen := make(map[uint32]bool)
	for i := 0; i < 16; i++ {
		seen[src.Seed()] = true
	}
	assert.Greater(t, len(seen), 1)
}

func BenchmarkFloat64(b *testing.B) {
	r := New(42)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Float64()
	}
}
