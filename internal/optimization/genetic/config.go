package genetic

import (
	"math"

	"github.com/copyleftdev/evolver/internal/optimization"
)

const (
	// DefaultPopulationSize is the number of candidates spawned for
	// generation 0.
	DefaultPopulationSize = 300
	// DefaultCrossoverProbability is the chance a parent pair is recombined.
	DefaultCrossoverProbability = 0.87
	// DefaultMutationProbability is the chance each child is mutated.
	DefaultMutationProbability = 0.01
)

// Config holds the validated numeric parameters of an engine. The zero value
// is not usable; start from DefaultConfig or NewConfig. Setters reject
// invalid values and leave the previous value in place.
type Config struct {
	populationSize       int
	crossoverProbability float64
	mutationProbability  float64
}

// DefaultConfig returns a configuration with population 300, crossover
// probability 0.87 and mutation probability 0.01.
func DefaultConfig() Config {
	return Config{
		populationSize:       DefaultPopulationSize,
		crossoverProbability: DefaultCrossoverProbability,
		mutationProbability:  DefaultMutationProbability,
	}
}

// NewConfig builds a configuration, failing on the first invalid value.
func NewConfig(populationSize int, crossoverProbability, mutationProbability float64) (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.SetPopulationSize(populationSize); err != nil {
		return Config{}, err
	}
	if err := cfg.SetCrossoverProbability(crossoverProbability); err != nil {
		return Config{}, err
	}
	if err := cfg.SetMutationProbability(mutationProbability); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// PopulationSize returns the size of the initial population.
func (c Config) PopulationSize() int { return c.populationSize }

// CrossoverProbability returns the recombination probability.
func (c Config) CrossoverProbability() float64 { return c.crossoverProbability }

// MutationProbability returns the per-child mutation probability.
func (c Config) MutationProbability() float64 { return c.mutationProbability }

// SetPopulationSize sets the population size. n must be positive.
func (c *Config) SetPopulationSize(n int) error {
	if n <= 0 {
		return optimization.ConfigErrorf("population size must be greater than zero, got %d", n).
			WithComponent("genetic").WithOperation("SetPopulationSize")
	}
	c.populationSize = n
	return nil
}

// SetCrossoverProbability sets the crossover probability. p must be in [0, 1].
func (c *Config) SetCrossoverProbability(p float64) error {
	if !validProbability(p) {
		return optimization.ConfigErrorf("crossover probability must be within 0.0 - 1.0, got %v", p).
			WithComponent("genetic").WithOperation("SetCrossoverProbability")
	}
	c.crossoverProbability = p
	return nil
}

// SetMutationProbability sets the mutation probability. p must be in [0, 1].
func (c *Config) SetMutationProbability(p float64) error {
	if !validProbability(p) {
		return optimization.ConfigErrorf("mutation probability must be within 0.0 - 1.0, got %v", p).
			WithComponent("genetic").WithOperation("SetMutationProbability")
	}
	c.mutationProbability = p
	return nil
}

// Validate reports whether c holds a usable configuration. It catches the
// zero value, which never passed through a setter.
func (c Config) Validate() error {
	if c.populationSize <= 0 {
		return optimization.ConfigErrorf("population size must be greater than zero, got %d", c.populationSize).
			WithComponent("genetic").WithOperation("Validate")
	}
	if !validProbability(c.crossoverProbability) || !validProbability(c.mutationProbability) {
		return optimization.ConfigErrorf("probabilities must be within 0.0 - 1.0").
			WithComponent("genetic").WithOperation("Validate")
	}
	return nil
}

func validProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}
