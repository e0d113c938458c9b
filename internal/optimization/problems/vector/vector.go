// Package vector minimizes a real-valued objective over a box in R^n with
// the genetic engine. Candidates are []float64 points inside the bounds.
package vector

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/genetic"
	"github.com/copyleftdev/evolver/internal/optimization/rng"
)

// Objective maps a point to a cost. It must be deterministic.
type Objective func(x []float64) float64

// Sphere is sum(x_i^2), minimum 0 at the origin.
func Sphere(x []float64) float64 {
	return floats.Dot(x, x)
}

// Rastrigin is 10n + sum(x_i^2 - 10cos(2*pi*x_i)), minimum 0 at the origin
// with many regularly spaced local minima.
func Rastrigin(x []float64) float64 {
	sum := 10 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum
}

var objectives = map[string]Objective{
	"sphere":    Sphere,
	"rastrigin": Rastrigin,
}

// Objectives returns the names of the built-in objectives, sorted.
func Objectives() []string {
	names := make([]string, 0, len(objectives))
	for name := range objectives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupObjective returns the built-in objective called name.
func LookupObjective(name string) (Objective, bool) {
	f, ok := objectives[name]
	return f, ok
}

const (
	// DefaultMutationScale is the mutation standard deviation as a fraction
	// of each dimension's range.
	DefaultMutationScale = 0.1
	// DefaultTolerance is the cost at which a run is considered converged.
	DefaultTolerance = 1e-6
)

// Config describes a vector problem.
type Config struct {
	// Objective names a built-in objective.
	Objective string
	// Bounds holds [min, max] per dimension.
	Bounds [][2]float64
	// MutationScale defaults to DefaultMutationScale when zero.
	MutationScale float64
	// Tolerance defaults to DefaultTolerance when zero.
	Tolerance float64
}

// Problem implements the genetic strategies for a box-bounded objective.
type Problem struct {
	objective Objective
	bounds    [][2]float64
	sigma     []float64
	tolerance float64
}

// New validates cfg and builds the problem.
func New(cfg Config) (*Problem, error) {
	objective, ok := LookupObjective(cfg.Objective)
	if !ok {
		return nil, optimization.ConfigErrorf("unknown objective %q", cfg.Objective).
			WithComponent("vector").WithOperation("New")
	}
	return NewWithObjective(objective, cfg)
}

// NewWithObjective builds a problem around a caller-supplied objective;
// cfg.Objective is ignored.
func NewWithObjective(objective Objective, cfg Config) (*Problem, error) {
	if objective == nil {
		return nil, optimization.ConfigErrorf("objective is required").
			WithComponent("vector").WithOperation("New")
	}
	if len(cfg.Bounds) == 0 {
		return nil, optimization.ConfigErrorf("at least one dimension is required").
			WithComponent("vector").WithOperation("New")
	}

	scale := cfg.MutationScale
	if scale == 0 {
		scale = DefaultMutationScale
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, optimization.ConfigErrorf("mutation scale must be positive, got %v", cfg.MutationScale).
			WithComponent("vector").WithOperation("New")
	}
	tolerance := cfg.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}
	if !(tolerance > 0) {
		return nil, optimization.ConfigErrorf("tolerance must be positive, got %v", cfg.Tolerance).
			WithComponent("vector").WithOperation("New")
	}

	bounds := make([][2]float64, len(cfg.Bounds))
	sigma := make([]float64, len(cfg.Bounds))
	for i, b := range cfg.Bounds {
		if math.IsNaN(b[0]) || math.IsNaN(b[1]) || math.IsInf(b[0], 0) || math.IsInf(b[1], 0) || b[0] > b[1] {
			return nil, optimization.ConfigErrorf("invalid bounds %v for dimension %d", b, i).
				WithComponent("vector").WithOperation("New")
		}
		bounds[i] = b
		sigma[i] = scale * (b[1] - b[0])
	}

	return &Problem{
		objective: objective,
		bounds:    bounds,
		sigma:     sigma,
		tolerance: tolerance,
	}, nil
}

// Dimensions returns the number of coordinates in a candidate.
func (p *Problem) Dimensions() int { return len(p.bounds) }

// Spawn draws a point uniformly inside the bounds.
func (p *Problem) Spawn(r *rng.Random) ([]float64, error) {
	x := make([]float64, len(p.bounds))
	for i, b := range p.bounds {
		x[i] = r.Float64Range(b[0], b[1])
	}
	return x, nil
}

// Fitness evaluates the objective.
func (p *Problem) Fitness(x []float64) (float64, error) {
	if len(x) != len(p.bounds) {
		return 0, optimization.NewErrorf("candidate has %d dimensions, want %d", len(x), len(p.bounds)).
			WithComponent("vector").WithOperation("Fitness")
	}
	return p.objective(x), nil
}

// Crossover blends the parents coordinate-wise, a_i + u_i(b_i - a_i) with
// u_i uniform in [0, 1). Children stay inside the bounds.
func (p *Problem) Crossover(r *rng.Random, a, b []float64) ([]float64, error) {
	if len(a) != len(b) || len(a) != len(p.bounds) {
		return nil, optimization.NewErrorf("parent dimensions %d and %d, want %d", len(a), len(b), len(p.bounds)).
			WithComponent("vector").WithOperation("Crossover")
	}
	child := make([]float64, len(a))
	for i := range a {
		child[i] = a[i] + r.Float64()*(b[i]-a[i])
	}
	return child, nil
}

// Mutate adds normally distributed noise to every coordinate and clamps the
// result to the bounds. x is not modified.
func (p *Problem) Mutate(r *rng.Random, x []float64) ([]float64, error) {
	if len(x) != len(p.bounds) {
		return nil, optimization.NewErrorf("candidate has %d dimensions, want %d", len(x), len(p.bounds)).
			WithComponent("vector").WithOperation("Mutate")
	}
	child := make([]float64, len(x))
	copy(child, x)
	for i := range child {
		if p.sigma[i] == 0 {
			continue
		}
		noise := distuv.Normal{Mu: 0, Sigma: p.sigma[i], Src: r}
		child[i] = p.clamp(i, child[i]+noise.Rand())
	}
	return child, nil
}

// Terminate stops once the cost is within the tolerance.
func (p *Problem) Terminate(_ []float64, fitness float64) bool {
	return fitness <= p.tolerance
}

// Strategies bundles the problem for genetic.NewEngine.
func (p *Problem) Strategies() genetic.Strategies[[]float64] {
	return genetic.Strategies[[]float64]{
		Spawner:    p,
		Fitness:    p,
		Crossover:  p,
		Mutator:    p,
		Terminator: p,
	}
}

func (p *Problem) clamp(i int, v float64) float64 {
	return math.Max(p.bounds[i][0], math.Min(p.bounds[i][1], v))
}
