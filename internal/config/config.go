// Package config loads service configuration from the environment with an
// optional YAML file overlay.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/evolver/internal/optimization/genetic"
)

// FileEnv names the variable holding the path of the YAML overlay.
const FileEnv = "EVOLVER_CONFIG"

type Config struct {
	Environment string `env:"ENV" envDefault:"development" yaml:"environment"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080" yaml:"port"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s" yaml:"read_timeout"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s" yaml:"write_timeout"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s" yaml:"idle_timeout"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s" yaml:"shutdown_timeout"`
	} `yaml:"http"`
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info" yaml:"level"`
		Format string `env:"LOG_FORMAT" envDefault:"json" yaml:"format"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr" yaml:"output"`
	} `yaml:"logging"`
	Evolution Evolution `yaml:"evolution"`
	Jobs      struct {
		// MaxConcurrent caps the evolution jobs running at once.
		MaxConcurrent int `env:"JOBS_MAX_CONCURRENT" envDefault:"4" yaml:"max_concurrent"`
		// Retention is how long finished jobs stay queryable.
		Retention time.Duration `env:"JOBS_RETENTION" envDefault:"1h" yaml:"retention"`
	} `yaml:"jobs"`
}

// Evolution holds engine defaults applied to jobs that do not override them.
type Evolution struct {
	PopulationSize       int     `env:"GA_POPULATION_SIZE" envDefault:"300" yaml:"population_size"`
	CrossoverProbability float64 `env:"GA_CROSSOVER_PROBABILITY" envDefault:"0.87" yaml:"crossover_probability"`
	MutationProbability  float64 `env:"GA_MUTATION_PROBABILITY" envDefault:"0.01" yaml:"mutation_probability"`
	// Workers is the goroutine count per run; 0 means GOMAXPROCS.
	Workers int `env:"GA_WORKERS" envDefault:"0" yaml:"workers"`
	// MaxGenerations bounds every run; 0 means unbounded.
	MaxGenerations int `env:"GA_MAX_GENERATIONS" envDefault:"10000" yaml:"max_generations"`
	// Seed makes runs reproducible; 0 draws fresh seeds for every run.
	Seed uint32 `env:"GA_SEED" envDefault:"0" yaml:"seed"`
}

// Load reads the environment, applies the file named by EVOLVER_CONFIG if
// set, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if path := GetEnv(FileEnv, ""); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys missing from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks values no later consumer re-checks.
func (c *Config) Validate() error {
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port %d out of range", c.HTTP.Port)
	}
	if c.Jobs.MaxConcurrent < 1 {
		return fmt.Errorf("jobs.max_concurrent must be at least 1, got %d", c.Jobs.MaxConcurrent)
	}
	if c.Evolution.Workers < 0 {
		return fmt.Errorf("evolution.workers must not be negative, got %d", c.Evolution.Workers)
	}
	if c.Evolution.MaxGenerations < 0 {
		return fmt.Errorf("evolution.max_generations must not be negative, got %d", c.Evolution.MaxGenerations)
	}
	_, err := c.Evolution.GeneticConfig()
	return err
}

// GeneticConfig builds the validated engine configuration.
func (e Evolution) GeneticConfig() (genetic.Config, error) {
	return genetic.NewConfig(e.PopulationSize, e.CrossoverProbability, e.MutationProbability)
}

// Options returns the engine options implied by e.
func (e Evolution) Options() []genetic.Option {
	opts := []genetic.Option{genetic.WithMaxGenerations(e.MaxGenerations)}
	if e.Workers > 0 {
		opts = append(opts, genetic.WithWorkers(e.Workers))
	}
	if e.Seed != 0 {
		opts = append(opts, genetic.WithSeed(e.Seed))
	}
	return opts
}

// GetEnv returns the value of the environment variable or the default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
