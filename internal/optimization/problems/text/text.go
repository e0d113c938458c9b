// Package text evolves a string towards a fixed target, the "monkeys at
// typewriters" demonstration of the genetic engine.
package text

import (
	"strings"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/genetic"
	"github.com/copyleftdev/evolver/internal/optimization/rng"
)

// DefaultAlphabet holds line feed, carriage return and printable ASCII.
var DefaultAlphabet = func() string {
	var sb strings.Builder
	sb.WriteString("\n\r")
	for c := byte(32); c < 127; c++ {
		sb.WriteByte(c)
	}
	return sb.String()
}()

// Problem describes a target string and the symbols candidates are built
// from. Candidates always have the target's length.
type Problem struct {
	target   string
	alphabet string
}

// New creates a problem over DefaultAlphabet.
func New(target string) (*Problem, error) {
	return NewWithAlphabet(target, DefaultAlphabet)
}

// NewWithAlphabet creates a problem whose candidates use only the bytes of
// alphabet. Every byte of target must be in alphabet, otherwise the search
// could never reach it.
func NewWithAlphabet(target, alphabet string) (*Problem, error) {
	if target == "" {
		return nil, optimization.ConfigErrorf("target must not be empty").
			WithComponent("text").WithOperation("New")
	}
	if alphabet == "" {
		return nil, optimization.ConfigErrorf("alphabet must not be empty").
			WithComponent("text").WithOperation("New")
	}
	for i := 0; i < len(target); i++ {
		if strings.IndexByte(alphabet, target[i]) < 0 {
			return nil, optimization.ConfigErrorf("target symbol %q at %d is not in the alphabet", target[i], i).
				WithComponent("text").WithOperation("New")
		}
	}
	return &Problem{target: target, alphabet: alphabet}, nil
}

// Target returns the string being searched for.
func (p *Problem) Target() string { return p.target }

// Spawn returns a random string of the target's length.
func (p *Problem) Spawn(r *rng.Random) (string, error) {
	buf := make([]byte, len(p.target))
	for i := range buf {
		buf[i] = p.symbol(r)
	}
	return string(buf), nil
}

// Fitness is the Hamming distance to the target.
func (p *Problem) Fitness(candidate string) (float64, error) {
	if len(candidate) != len(p.target) {
		return 0, optimization.NewErrorf("candidate length %d, want %d", len(candidate), len(p.target)).
			WithComponent("text").WithOperation("Fitness")
	}
	diffs := 0
	for i := 0; i < len(candidate); i++ {
		if candidate[i] != p.target[i] {
			diffs++
		}
	}
	return float64(diffs), nil
}

// Crossover joins a prefix of a with the suffix of b at a random point in
// [1, len). A one-symbol target has no interior point and yields a.
func (p *Problem) Crossover(r *rng.Random, a, b string) (string, error) {
	if len(a) != len(b) {
		return "", optimization.NewErrorf("parent lengths differ: %d and %d", len(a), len(b)).
			WithComponent("text").WithOperation("Crossover")
	}
	if len(a) < 2 {
		return a, nil
	}
	point := r.IntRange(1, len(a))
	return a[:point] + b[point:], nil
}

// Mutate replaces the first symbol that differs from the target with a
// random one. A candidate equal to the target is returned unchanged.
func (p *Problem) Mutate(r *rng.Random, candidate string) (string, error) {
	for i := 0; i < len(candidate) && i < len(p.target); i++ {
		if candidate[i] != p.target[i] {
			buf := []byte(candidate)
			buf[i] = p.symbol(r)
			return string(buf), nil
		}
	}
	return candidate, nil
}

// Strategies bundles the problem for genetic.NewEngine. The default
// terminator stops on an exact match.
func (p *Problem) Strategies() genetic.Strategies[string] {
	return genetic.Strategies[string]{
		Spawner:   p,
		Fitness:   p,
		Crossover: p,
		Mutator:   p,
	}
}

func (p *Problem) symbol(r *rng.Random) byte {
	return p.alphabet[r.IntN(len(p.alphabet))]
}
