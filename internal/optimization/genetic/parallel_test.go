package genetic

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/rng"
)

func TestParallelForVisitsEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		n       int
	}{
		{name: "more work than workers", workers: 4, n: 103},
		{name: "more workers than work", workers: 16, n: 5},
		{name: "single worker", workers: 1, n: 40},
		{name: "uneven split", workers: 3, n: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			streams := rng.NewStreams(rng.NewDerivedSeed(1), tt.workers)
			visits := make([]int32, tt.n)
			err := parallelFor(context.Background(), streams, tt.n, func(_ *rng.Random, i int) error {
				atomic.AddInt32(&visits[i], 1)
				return nil
			})
			require.NoError(t, err)
			for i, v := range visits {
				assert.Equal(t, int32(1), v, "index %d", i)
			}
		})
	}
}

func TestParallelForStreamAssignmentIsStable(t *testing.T) {
	draw := func() []uint32 {
		streams := rng.NewStreams(rng.NewDerivedSeed(9), 4)
		out := make([]uint32, 50)
		err := parallelFor(context.Background(), streams, len(out), func(r *rng.Random, i int) error {
			out[i] = r.Uint32()
			return nil
		})
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, draw(), draw())
}

func TestParallelForEmptyRange(t *testing.T) {
	called := false
	err := parallelFor(context.Background(), rng.NewStreams(rng.ConstantSeed(1), 2), 0, func(*rng.Random, int) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestParallelForStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	err := parallelFor(context.Background(), rng.NewStreams(rng.ConstantSeed(1), 1), 100, func(_ *rng.Random, i int) error {
		calls.Add(1)
		if i == 10 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(11), calls.Load())
}

func TestParallelForRecoversPanics(t *testing.T) {
	err := parallelFor(context.Background(), rng.NewStreams(rng.ConstantSeed(1), 2), 10, func(_ *rng.Random, i int) error {
		if i == 7 {
			panic("kaboom")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, optimization.KindStrategy, optimization.KindOf(err))
	assert.Contains(t, err.Error(), "kaboom")
}

func TestParallelForObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	err := parallelFor(ctx, rng.NewStreams(rng.ConstantSeed(1), 1), 1000, func(_ *rng.Random, i int) error {
		calls.Add(1)
		if i == 4 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(5), calls.Load())
}
