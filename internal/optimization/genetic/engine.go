// Package genetic implements a generational genetic algorithm over an
// arbitrary candidate type.
//
// Each generation the engine picks parent pairs by roulette-wheel selection
// (fitness is a cost, lower is better), recombines and mutates them in
// parallel, and scores the children. Generation 0 holds PopulationSize
// candidates; every later generation holds 2*PopulationSize, since each of
// the PopulationSize selection rounds yields two children and nothing trims
// the result.
package genetic

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/rng"
)

// ErrAlreadyRunning is returned when Run is called on an engine whose
// previous run has not finished.
var ErrAlreadyRunning = errors.New("engine is already running")

var _ optimization.Optimizer[struct{}] = (*Engine[struct{}])(nil)

// Engine runs the evolutionary search. An Engine can run many times, but
// only one run at a time.
type Engine[T any] struct {
	strategies Strategies[T]
	config     Config
	opts       options
	progress   *broadcaster

	running     atomic.Bool
	evaluations atomic.Int64

	mu     sync.Mutex
	best   *Scored[T]
	cancel context.CancelFunc
}

// Outcome is the value delivered by RunAsync.
type Outcome[T any] struct {
	Result *optimization.Result[T]
	Err    error
}

// NewEngine creates an engine from strategies and cfg.
func NewEngine[T any](strategies Strategies[T], cfg Config, opts ...Option) (*Engine[T], error) {
	if err := strategies.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strategies.Terminator == nil {
		strategies.Terminator = DefaultTerminator[T]{}
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Engine[T]{
		strategies: strategies,
		config:     cfg,
		opts:       o,
		progress:   newBroadcaster(),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine[T]) Config() Config {
	return e.config
}

// Subscribe returns a channel receiving one Progress per generation, in
// order, for the next or current run. buffer sets the channel capacity. The
// engine waits for a slow subscriber rather than dropping events, so keep
// draining or call the returned cancel function. The channel is closed when
// the run ends or on cancel.
func (e *Engine[T]) Subscribe(buffer int) (<-chan Progress, func()) {
	return e.progress.subscribe(buffer)
}

// OnProgress registers fn to be called synchronously after every
// generation. fn must not call Subscribe or OnProgress.
func (e *Engine[T]) OnProgress(fn func(Progress)) {
	e.progress.onProgress(fn)
}

// Best returns the best candidate of the latest evaluated generation.
func (e *Engine[T]) Best() (optimization.Solution[T], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.best == nil {
		return optimization.Solution[T]{}, false
	}
	return optimization.Solution[T]{Candidate: e.best.Candidate, Fitness: e.best.Fitness}, true
}

// Stop cancels the current run, if any.
func (e *Engine[T]) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Optimize implements optimization.Optimizer.
func (e *Engine[T]) Optimize(ctx context.Context) (*optimization.Result[T], error) {
	return e.Run(ctx)
}

// RunAsync starts Run on a new goroutine and delivers its outcome on the
// returned channel.
func (e *Engine[T]) RunAsync(ctx context.Context) <-chan Outcome[T] {
	out := make(chan Outcome[T], 1)
	go func() {
		defer close(out)
		res, err := e.Run(ctx)
		out <- Outcome[T]{Result: res, Err: err}
	}()
	return out
}

// Run evolves generations until the terminator accepts the best candidate,
// the generation limit is reached, a strategy fails, or ctx is done.
// Cancellation yields an error for which optimization.IsCancelled is true.
func (e *Engine[T]) Run(ctx context.Context) (*optimization.Result[T], error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, optimization.WrapError(ErrAlreadyRunning, "run").WithComponent("genetic")
	}
	defer e.running.Store(false)
	defer e.progress.closeAll()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.best = nil
	e.cancel = cancel
	e.mu.Unlock()
	e.evaluations.Store(0)

	ctx, span := e.opts.tracer.Start(ctx, "genetic.Run", trace.WithAttributes(
		attribute.Int("population_size", e.config.PopulationSize()),
		attribute.Float64("crossover_probability", e.config.CrossoverProbability()),
		attribute.Float64("mutation_probability", e.config.MutationProbability()),
		attribute.Int("workers", e.opts.workers),
	))
	defer span.End()

	logger := e.opts.logger.With(zap.Int("population_size", e.config.PopulationSize()))
	logger.Info("Starting evolution run",
		zap.Float64("crossover_probability", e.config.CrossoverProbability()),
		zap.Float64("mutation_probability", e.config.MutationProbability()),
		zap.Int("workers", e.opts.workers),
		zap.Int("max_generations", e.opts.maxGenerations),
	)

	streams := rng.NewStreams(e.opts.seedSource(), e.opts.workers)
	start := time.Now()

	genStart := time.Now()
	population, err := e.initialPopulation(ctx, streams)
	if err != nil {
		return nil, e.fail(ctx, span, logger, err)
	}

	var lastEvaluations int64
	for generation := 0; ; generation++ {
		best, _ := population.Best()
		e.mu.Lock()
		e.best = &best
		e.mu.Unlock()

		evaluations := e.evaluations.Load()
		stats := population.Stats()
		p := Progress{
			Generation:     generation,
			PopulationSize: stats.Size,
			BestFitness:    best.Fitness,
			MeanFitness:    stats.Mean,
			StdDevFitness:  stats.StdDev,
			Evaluations:    evaluations,
			Elapsed:        time.Since(start),
		}
		e.opts.metrics.observeGeneration(p, evaluations-lastEvaluations, time.Since(genStart))
		lastEvaluations = evaluations

		logger.Debug("Generation complete",
			zap.Int("generation", generation),
			zap.Float64("best_fitness", best.Fitness),
			zap.Float64("mean_fitness", stats.Mean),
			zap.Int64("evaluations", evaluations),
		)
		e.progress.publish(ctx, p)

		if e.strategies.Terminator.Terminate(best.Candidate, best.Fitness) {
			return e.finish(span, logger, best, generation, true), nil
		}
		if e.opts.maxGenerations > 0 && generation >= e.opts.maxGenerations {
			return e.finish(span, logger, best, generation, false), nil
		}
		if err := ctx.Err(); err != nil {
			return nil, e.fail(ctx, span, logger, err)
		}

		genStart = time.Now()
		genCtx, genSpan := e.opts.tracer.Start(ctx, "genetic.Generation",
			trace.WithAttributes(attribute.Int("generation", generation+1)))
		population, err = e.nextGeneration(genCtx, streams, population)
		genSpan.End()
		if err != nil {
			return nil, e.fail(ctx, span, logger, err)
		}
	}
}

// initialPopulation spawns and scores PopulationSize candidates.
func (e *Engine[T]) initialPopulation(ctx context.Context, streams []*rng.Random) (Population[T], error) {
	population := make(Population[T], e.config.PopulationSize())
	err := parallelFor(ctx, streams, len(population), func(r *rng.Random, i int) error {
		candidate, err := e.strategies.Spawner.Spawn(r)
		if err != nil {
			return strategyError(err, "Spawn")
		}
		scored, err := e.score(candidate)
		if err != nil {
			return err
		}
		population[i] = scored
		return nil
	})
	return population, err
}

// nextGeneration runs PopulationSize selection rounds over population; round
// i writes its children to slots 2i and 2i+1.
func (e *Engine[T]) nextGeneration(ctx context.Context, streams []*rng.Random, population Population[T]) (Population[T], error) {
	wheel := NewWheel(population)
	rounds := e.config.PopulationSize()
	next := make(Population[T], rounds*2)

	err := parallelFor(ctx, streams, rounds, func(r *rng.Random, i int) error {
		parent1, err := wheel.Select(r)
		if err != nil {
			return err
		}
		parent2, err := wheel.Select(r)
		if err != nil {
			return err
		}

		child1, child2, err := e.breed(r, parent1, parent2)
		if err != nil {
			return err
		}
		next[i*2] = child1
		next[i*2+1] = child2
		return nil
	})
	return next, err
}

// breed produces two scored children. A child no operator touched keeps its
// parent's fitness instead of being re-evaluated.
func (e *Engine[T]) breed(r *rng.Random, parent1, parent2 Scored[T]) (Scored[T], Scored[T], error) {
	child1, child2 := parent1.Candidate, parent2.Candidate
	changed1, changed2 := false, false

	if r.Float64() < e.config.CrossoverProbability() {
		var err error
		if child1, err = e.strategies.Crossover.Crossover(r, parent1.Candidate, parent2.Candidate); err != nil {
			return Scored[T]{}, Scored[T]{}, strategyError(err, "Crossover")
		}
		if child2, err = e.strategies.Crossover.Crossover(r, parent2.Candidate, parent1.Candidate); err != nil {
			return Scored[T]{}, Scored[T]{}, strategyError(err, "Crossover")
		}
		changed1, changed2 = true, true
	}

	if r.Float64() < e.config.MutationProbability() {
		var err error
		if child1, err = e.strategies.Mutator.Mutate(r, child1); err != nil {
			return Scored[T]{}, Scored[T]{}, strategyError(err, "Mutate")
		}
		changed1 = true
	}
	if r.Float64() < e.config.MutationProbability() {
		var err error
		if child2, err = e.strategies.Mutator.Mutate(r, child2); err != nil {
			return Scored[T]{}, Scored[T]{}, strategyError(err, "Mutate")
		}
		changed2 = true
	}

	scored1, scored2 := parent1, parent2
	var err error
	if changed1 {
		if scored1, err = e.score(child1); err != nil {
			return Scored[T]{}, Scored[T]{}, err
		}
	}
	if changed2 {
		if scored2, err = e.score(child2); err != nil {
			return Scored[T]{}, Scored[T]{}, err
		}
	}
	return scored1, scored2, nil
}

// score evaluates a new candidate exactly once.
func (e *Engine[T]) score(candidate T) (Scored[T], error) {
	fitness, err := e.strategies.Fitness.Fitness(candidate)
	e.evaluations.Add(1)
	if err != nil {
		return Scored[T]{}, strategyError(err, "Fitness")
	}
	if !weighable(fitness) {
		return Scored[T]{}, optimization.NewErrorf("fitness must be finite with magnitude at most 2^52, got %v", fitness).
			WithKind(optimization.KindStrategy).WithComponent("genetic").WithOperation("Fitness")
	}
	return Scored[T]{Candidate: candidate, Fitness: fitness}, nil
}

func (e *Engine[T]) finish(span trace.Span, logger *zap.Logger, best Scored[T], generation int, converged bool) *optimization.Result[T] {
	outcome := OutcomeConverged
	if !converged {
		outcome = OutcomeLimit
	}
	e.opts.metrics.observeRun(outcome)

	evaluations := e.evaluations.Load()
	span.SetAttributes(
		attribute.Int("generations", generation),
		attribute.Float64("best_fitness", best.Fitness),
		attribute.Bool("converged", converged),
	)
	logger.Info("Evolution run finished",
		zap.String("outcome", outcome),
		zap.Int("generation", generation),
		zap.Float64("best_fitness", best.Fitness),
		zap.Int64("evaluations", evaluations),
	)

	return &optimization.Result[T]{
		Best:        optimization.Solution[T]{Candidate: best.Candidate, Fitness: best.Fitness},
		Generations: generation,
		Evaluations: evaluations,
		Converged:   converged,
	}
}

// fail classifies err, records it and returns the error handed to the
// caller. A done context wins over whatever error the workers reported.
func (e *Engine[T]) fail(ctx context.Context, span trace.Span, logger *zap.Logger, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		e.opts.metrics.observeRun(OutcomeCancelled)
		span.SetStatus(codes.Error, "cancelled")
		logger.Info("Evolution run cancelled", zap.Error(ctxErr))
		return optimization.Cancelled(ctxErr).WithComponent("genetic")
	}

	e.opts.metrics.observeRun(OutcomeFailed)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error("Evolution run failed",
		zap.String("kind", optimization.KindOf(err).String()),
		zap.Error(err),
	)
	return err
}

func strategyError(err error, op string) error {
	return optimization.WrapError(err, "strategy failed").
		WithKind(optimization.KindStrategy).
		WithComponent("genetic").
		WithOperation(op)
}
