package genetic

import (
	"errors"
	"strings"

	"github.com/copyleftdev/evolver/internal/optimization/rng"
)

// monkeys evolves a fixed target string: Hamming distance fitness,
// single-point crossover, and mutation that rewrites the first wrong symbol.
type monkeys struct {
	target   string
	alphabet []byte
}

func newMonkeys(target string) *monkeys {
	alphabet := []byte{'\n', '\r'}
	for c := byte(32); c < 127; c++ {
		alphabet = append(alphabet, c)
	}
	return &monkeys{target: target, alphabet: alphabet}
}

func (m *monkeys) Spawn(r *rng.Random) (string, error) {
	var sb strings.Builder
	sb.Grow(len(m.target))
	for range m.target {
		sb.WriteByte(m.alphabet[r.IntN(len(m.alphabet))])
	}
	return sb.String(), nil
}

func (m *monkeys) Fitness(candidate string) (float64, error) {
	if len(candidate) != len(m.target) {
		return 0, errors.New("length mismatch")
	}
	diffs := 0
	for i := range m.target {
		if candidate[i] != m.target[i] {
			diffs++
		}
	}
	return float64(diffs), nil
}

func (m *monkeys) Crossover(r *rng.Random, a, b string) (string, error) {
	point := r.IntRange(1, len(a))
	return a[:point] + b[point:], nil
}

func (m *monkeys) Mutate(r *rng.Random, candidate string) (string, error) {
	buf := []byte(candidate)
	for i := range buf {
		if buf[i] != m.target[i] {
			buf[i] = m.alphabet[r.IntN(len(m.alphabet))]
			break
		}
	}
	return string(buf), nil
}

func (m *monkeys) strategies() Strategies[string] {
	return Strategies[string]{
		Spawner:   m,
		Fitness:   m,
		Crossover: m,
		Mutator:   m,
	}
}

// counterStrategies spawns increasing integers scored by a caller-supplied
// fitness; crossover and mutation return the first argument unchanged.
func counterStrategies(fitness func(int) (float64, error)) Strategies[int] {
	next := 0
	var mu = make(chan struct{}, 1)
	return Strategies[int]{
		Spawner: SpawnFunc[int](func(*rng.Random) (int, error) {
			mu <- struct{}{}
			defer func() { <-mu }()
			next++
			return next, nil
		}),
		Fitness: FitnessFunc[int](fitness),
		Crossover: CrossoverFunc[int](func(_ *rng.Random, a, _ int) (int, error) {
			return a, nil
		}),
		Mutator: MutateFunc[int](func(_ *rng.Random, c int) (int, error) {
			return c, nil
		}),
	}
}

func never[T any]() Terminator[T] {
	return TerminateFunc[T](func(T, float64) bool { return false })
}

func mustConfig(populationSize int, crossover, mutation float64) Config {
	cfg, err := NewConfig(populationSize, crossover, mutation)
	if err != nil {
		panic(err)
	}
	return cfg
}
