package genetic

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes recorded by Metrics.
const (
	OutcomeConverged = "converged"
	OutcomeLimit     = "generation_limit"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Metrics holds the Prometheus collectors updated by an engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	generations        prometheus.Counter
	evaluations        prometheus.Counter
	bestFitness        prometheus.Gauge
	populationSize     prometheus.Gauge
	generationDuration prometheus.Histogram
	runs               *prometheus.CounterVec
}

// NewMetrics creates and registers the engine collectors on reg. Pass a
// fresh prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		generations: factory.NewCounter(prometheus.CounterOpts{
			Name: "evolver_generations_total",
			Help: "Total generations completed across all runs",
		}),
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "evolver_fitness_evaluations_total",
			Help: "Total fitness function calls",
		}),
		bestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Name: "evolver_best_fitness",
			Help: "Best fitness of the most recent generation",
		}),
		populationSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "evolver_population_size",
			Help: "Number of candidates in the most recent generation",
		}),
		generationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "evolver_generation_duration_seconds",
			Help:    "Wall time to build and evaluate one generation",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "evolver_runs_total",
			Help: "Finished runs by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeGeneration(p Progress, evaluated int64, took time.Duration) {
	if m == nil {
		return
	}
	m.generations.Inc()
	m.evaluations.Add(float64(evaluated))
	m.bestFitness.Set(p.BestFitness)
	m.populationSize.Set(float64(p.PopulationSize))
	m.generationDuration.Observe(took.Seconds())
}

func (m *Metrics) observeRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}
