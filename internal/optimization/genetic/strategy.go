package genetic

import (
	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/rng"
)

// Spawner creates a random candidate. Spawn is called concurrently, each
// caller holding its own stream.
type Spawner[T any] interface {
	Spawn(r *rng.Random) (T, error)
}

// FitnessCalculator scores a candidate. It must be a deterministic, pure
// function; lower is better and 0 is the conventional optimum.
type FitnessCalculator[T any] interface {
	Fitness(candidate T) (float64, error)
}

// Crossover produces one child from two parents. The engine calls it with
// (a, b) and (b, a) to obtain two children.
type Crossover[T any] interface {
	Crossover(r *rng.Random, a, b T) (T, error)
}

// Mutator produces a mutated variant of a candidate. Implementations must not
// modify candidate in place; it may still be referenced by the population.
type Mutator[T any] interface {
	Mutate(r *rng.Random, candidate T) (T, error)
}

// Terminator decides whether the best candidate of a generation is good
// enough to stop.
type Terminator[T any] interface {
	Terminate(best T, fitness float64) bool
}

// SpawnFunc adapts a function to Spawner.
type SpawnFunc[T any] func(r *rng.Random) (T, error)

// Spawn implements Spawner.
func (f SpawnFunc[T]) Spawn(r *rng.Random) (T, error) { return f(r) }

// FitnessFunc adapts a function to FitnessCalculator.
type FitnessFunc[T any] func(candidate T) (float64, error)

// Fitness implements FitnessCalculator.
func (f FitnessFunc[T]) Fitness(candidate T) (float64, error) { return f(candidate) }

// CrossoverFunc adapts a function to Crossover.
type CrossoverFunc[T any] func(r *rng.Random, a, b T) (T, error)

// Crossover implements Crossover.
func (f CrossoverFunc[T]) Crossover(r *rng.Random, a, b T) (T, error) { return f(r, a, b) }

// MutateFunc adapts a function to Mutator.
type MutateFunc[T any] func(r *rng.Random, candidate T) (T, error)

// Mutate implements Mutator.
func (f MutateFunc[T]) Mutate(r *rng.Random, candidate T) (T, error) { return f(r, candidate) }

// TerminateFunc adapts a function to Terminator.
type TerminateFunc[T any] func(best T, fitness float64) bool

// Terminate implements Terminator.
func (f TerminateFunc[T]) Terminate(best T, fitness float64) bool { return f(best, fitness) }

// DefaultTerminator stops once the best fitness is exactly 0.
type DefaultTerminator[T any] struct{}

// Terminate implements Terminator.
func (DefaultTerminator[T]) Terminate(_ T, fitness float64) bool {
	return fitness == 0
}

// Strategies bundles the capabilities an engine is built from. Spawner,
// Fitness, Crossover and Mutator are required; a nil Terminator means
// DefaultTerminator.
type Strategies[T any] struct {
	Spawner    Spawner[T]
	Fitness    FitnessCalculator[T]
	Crossover  Crossover[T]
	Mutator    Mutator[T]
	Terminator Terminator[T]
}

func (s Strategies[T]) validate() error {
	missing := ""
	switch {
	case s.Spawner == nil:
		missing = "spawner"
	case s.Fitness == nil:
		missing = "fitness calculator"
	case s.Crossover == nil:
		missing = "crossover operator"
	case s.Mutator == nil:
		missing = "mutator"
	}
	if missing != "" {
		return optimization.ConfigErrorf("%s is required", missing).
			WithComponent("genetic").WithOperation("NewEngine")
	}
	return nil
}
