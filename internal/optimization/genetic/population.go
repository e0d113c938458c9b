package genetic

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Scored pairs a candidate with the fitness computed for it. A Scored value
// is never updated; a changed candidate gets a new Scored.
type Scored[T any] struct {
	Candidate T
	Fitness   float64
}

// Population is one generation of scored candidates.
type Population[T any] []Scored[T]

// Best returns the candidate with the lowest fitness and its index. Ties go
// to the lowest index. It returns -1 for an empty population.
func (p Population[T]) Best() (Scored[T], int) {
	if len(p) == 0 {
		return Scored[T]{}, -1
	}
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i].Fitness < p[best].Fitness {
			best = i
		}
	}
	return p[best], best
}

// Fitnesses returns the fitness values in population order.
func (p Population[T]) Fitnesses() []float64 {
	out := make([]float64, len(p))
	for i := range p {
		out[i] = p[i].Fitness
	}
	return out
}

// Stats summarizes the fitness distribution of a population.
type Stats struct {
	Size   int
	Best   float64
	Worst  float64
	Mean   float64
	StdDev float64
}

// Stats computes summary statistics over the population's fitness values.
func (p Population[T]) Stats() Stats {
	if len(p) == 0 {
		return Stats{}
	}
	fitness := p.Fitnesses()
	mean, std := stat.MeanStdDev(fitness, nil)
	if len(fitness) == 1 {
		std = 0
	}
	return Stats{
		Size:   len(p),
		Best:   floats.Min(fitness),
		Worst:  floats.Max(fitness),
		Mean:   mean,
		StdDev: std,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
