package optimization

import (
	"context"
)

// Optimizer defines the interface for optimization algorithms over a
// candidate type T.
type Optimizer[T any] interface {
	// Optimize runs the optimization process until it terminates, fails or
	// ctx is cancelled.
	Optimize(ctx context.Context) (*Result[T], error)

	// Best returns the best solution found so far. The boolean is false
	// before the first population has been evaluated.
	Best() (Solution[T], bool)

	// Stop gracefully stops the optimization process
	Stop()
}

// Solution pairs a candidate with its fitness. Lower fitness is better.
type Solution[T any] struct {
	Candidate T
	Fitness   float64
}

// Result contains the result of an optimization run
type Result[T any] struct {
	Best Solution[T]

	// Generations is the index of the generation the best solution came
	// from; generation 0 is the initial population.
	Generations int

	// Evaluations counts fitness function calls made during the run.
	Evaluations int64

	// Converged is true when the terminator accepted the best solution and
	// false when the run stopped on its generation limit.
	Converged bool
}
