package text

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/genetic"
	"github.com/copyleftdev/evolver/internal/optimization/rng"
)

func TestDefaultAlphabet(t *testing.T) {
	assert.Len(t, DefaultAlphabet, 97)
	assert.Equal(t, byte('\n'), DefaultAlphabet[0])
	assert.Equal(t, byte('\r'), DefaultAlphabet[1])
	assert.Equal(t, byte(' '), DefaultAlphabet[2])
	assert.Equal(t, byte('~'), DefaultAlphabet[len(DefaultAlphabet)-1])
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		alphabet    string
		expectError bool
	}{
		{name: "printable", target: "Hello, World!", alphabet: DefaultAlphabet},
		{name: "multi-line", target: "a\r\nb", alphabet: DefaultAlphabet},
		{name: "empty target", target: "", alphabet: DefaultAlphabet, expectError: true},
		{name: "empty alphabet", target: "a", alphabet: "", expectError: true},
		{name: "symbol outside alphabet", target: "caf\xe9", alphabet: DefaultAlphabet, expectError: true},
		{name: "custom alphabet", target: "0110", alphabet: "01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewWithAlphabet(tt.target, tt.alphabet)
			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, optimization.KindConfig, optimization.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, p.Target())
		})
	}
}

func TestFitness(t *testing.T) {
	p, err := New("abcd")
	require.NoError(t, err)

	tests := []struct {
		candidate string
		want      float64
	}{
		{candidate: "abcd", want: 0},
		{candidate: "abcx", want: 1},
		{candidate: "xbcx", want: 2},
		{candidate: "wxyz", want: 4},
	}
	for _, tt := range tests {
		got, err := p.Fitness(tt.candidate)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.candidate)
	}

	_, err = p.Fitness("abc")
	assert.Error(t, err)
}

func TestSpawnUsesAlphabet(t *testing.T) {
	p, err := NewWithAlphabet("0000000000", "01")
	require.NoError(t, err)
	r := rng.New(5)

	for i := 0; i < 100; i++ {
		c, err := p.Spawn(r)
		require.NoError(t, err)
		require.Len(t, c, 10)
		assert.Empty(t, strings.Trim(c, "01"))
	}
}

func TestCrossover(t *testing.T) {
	p, err := New("aaaaaaaa")
	require.NoError(t, err)
	r := rng.New(9)

	for i := 0; i < 200; i++ {
		child, err := p.Crossover(r, "AAAAAAAA", "bbbbbbbb")
		require.NoError(t, err)
		require.Len(t, child, 8)

		point := strings.IndexByte(child, 'b')
		require.Greater(t, point, 0, "prefix always comes from the first parent")
		assert.Equal(t, strings.Repeat("A", point)+strings.Repeat("b", 8-point), child)
	}

	single, err := p.Crossover(r, "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "x", single)

	_, err = p.Crossover(r, "ab", "abc")
	assert.Error(t, err)
}

func TestMutateTouchesFirstMismatchOnly(t *testing.T) {
	p, err := NewWithAlphabet("0000", "01")
	require.NoError(t, err)
	r := rng.New(2)

	for i := 0; i < 50; i++ {
		got, err := p.Mutate(r, "0101")
		require.NoError(t, err)
		assert.Contains(t, []string{"0001", "0101"}, got)
	}

	same, err := p.Mutate(r, "0000")
	require.NoError(t, err)
	assert.Equal(t, "0000", same)
}

func TestEvolvesTarget(t *testing.T) {
	p, err := New("To be or not to be")
	require.NoError(t, err)

	cfg, err := genetic.NewConfig(200, 0.87, 0.1)
	require.NoError(t, err)

	engine, err := genetic.NewEngine(p.Strategies(), cfg,
		genetic.WithSeed(2024), genetic.WithWorkers(4), genetic.WithMaxGenerations(5000))
	require.NoError(t, err)

	res, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, p.Target(), res.Best.Candidate)
}
