package genetic

import (
	"math"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/rng"
)

// MaxFitnessMagnitude bounds the absolute fitness the engine accepts. Up to
// 2^52 the wheel weights stay exact integers apart and the total cannot
// overflow.
const MaxFitnessMagnitude = 1 << 52

// weighable reports whether v is a fitness the wheel can weight.
func weighable(v float64) bool {
	return finite(v) && math.Abs(v) <= MaxFitnessMagnitude
}

// Wheel performs fitness-proportionate (roulette-wheel) selection for
// minimization. Each candidate gets weight maxFitness - fitness, where
// maxFitness is one above the worst fitness, so every weight is at least 1
// as long as all fitness values lie within MaxFitnessMagnitude.
//
// A Wheel is read-only after construction and may be shared by workers.
type Wheel[T any] struct {
	population  Population[T]
	maxFitness  float64
	totalWeight float64
}

// NewWheel computes the selection weights for population.
func NewWheel[T any](population Population[T]) *Wheel[T] {
	w := &Wheel[T]{population: population}
	if len(population) == 0 {
		return w
	}

	max := population[0].Fitness
	for _, c := range population[1:] {
		if c.Fitness > max {
			max = c.Fitness
		}
	}
	w.maxFitness = max + 1
	if w.maxFitness == max {
		w.maxFitness = math.Nextafter(max, math.Inf(1))
	}

	for _, c := range population {
		w.totalWeight += w.maxFitness - c.Fitness
	}
	return w
}

// MaxFitness returns the worst fitness plus one.
func (w *Wheel[T]) MaxFitness() float64 { return w.maxFitness }

// TotalWeight returns the sum of all selection weights.
func (w *Wheel[T]) TotalWeight() float64 { return w.totalWeight }

// Select draws one candidate. It fails with ErrSelectionExhausted only if the
// weights do not add up to TotalWeight, which indicates an accounting or
// floating point bug.
func (w *Wheel[T]) Select(r *rng.Random) (Scored[T], error) {
	i, err := w.SelectIndex(r)
	if err != nil {
		return Scored[T]{}, err
	}
	return w.population[i], nil
}

// SelectIndex is Select returning the population index.
func (w *Wheel[T]) SelectIndex(r *rng.Random) (int, error) {
	v := r.Float64() * w.totalWeight
	for i := range w.population {
		weight := w.maxFitness - w.population[i].Fitness
		if v < weight {
			return i, nil
		}
		v -= weight
	}
	return -1, &optimization.Error{
		Kind:      optimization.KindInvariant,
		Message:   "roulette wheel",
		Op:        "Select",
		Component: "genetic",
		Err:       optimization.ErrSelectionExhausted,
	}
}
