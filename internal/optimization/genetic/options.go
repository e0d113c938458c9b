package genetic

import (
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/copyleftdev/evolver/internal/optimization/rng"
)

const tracerName = "github.com/copyleftdev/evolver/internal/optimization/genetic"

// Option configures an Engine.
type Option func(*options)

type options struct {
	workers        int
	seedSource     func() rng.SeedSource
	maxGenerations int
	logger         *zap.Logger
	metrics        *Metrics
	tracer         trace.Tracer
}

func defaultOptions() options {
	return options{
		workers:    runtime.GOMAXPROCS(0),
		seedSource: func() rng.SeedSource { return rng.CryptoSeed{} },
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
	}
}

// WithWorkers sets how many goroutines, each with its own random stream,
// run the parallel loops. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithSeed makes runs reproducible. Every run derives its per-worker seeds
// from seed in the same order, so two runs with equal seed and worker count
// produce the same result.
func WithSeed(seed uint32) Option {
	return func(o *options) {
		o.seedSource = func() rng.SeedSource { return rng.NewDerivedSeed(seed) }
	}
}

// WithSeedSource draws per-worker seeds from src. src is shared by every run
// of the engine.
func WithSeedSource(src rng.SeedSource) Option {
	return func(o *options) {
		if src != nil {
			o.seedSource = func() rng.SeedSource { return src }
		}
	}
}

// WithMaxGenerations stops a run after generation n even if the terminator
// has not accepted the best candidate. 0 means no limit.
func WithMaxGenerations(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxGenerations = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer replaces the tracer obtained from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}
