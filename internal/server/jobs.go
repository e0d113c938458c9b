package server

import (
	"context"
	"sync"
	"time"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/genetic"
)

// Status is the lifecycle state of an evolution job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the job can no longer change.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// StartRequest describes an evolution job over one of the built-in problems.
// Engine fields left out fall back to the server defaults.
type StartRequest struct {
	Problem string `json:"problem" validate:"required,oneof=text vector"`

	// text
	Target string `json:"target,omitempty" validate:"required_if=Problem text,max=4096"`

	// vector
	Objective string       `json:"objective,omitempty" validate:"required_if=Problem vector"`
	Bounds    [][2]float64 `json:"bounds,omitempty" validate:"required_if=Problem vector,max=64"`
	Tolerance float64      `json:"tolerance,omitempty" validate:"gte=0"`

	PopulationSize       *int     `json:"population_size,omitempty" validate:"omitempty,gt=0,lte=100000"`
	CrossoverProbability *float64 `json:"crossover_probability,omitempty" validate:"omitempty,gte=0,lte=1"`
	MutationProbability  *float64 `json:"mutation_probability,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxGenerations       *int     `json:"max_generations,omitempty" validate:"omitempty,gte=0"`
	Workers              *int     `json:"workers,omitempty" validate:"omitempty,gt=0,lte=1024"`
	Seed                 *uint32  `json:"seed,omitempty"`
}

// JobStatus is the externally visible state of a job.
type JobStatus struct {
	ID             string      `json:"id"`
	Problem        string      `json:"problem"`
	Status         Status      `json:"status"`
	Generation     int         `json:"generation"`
	PopulationSize int         `json:"population_size"`
	Evaluations    int64       `json:"evaluations"`
	BestFitness    *float64    `json:"best_fitness,omitempty"`
	MeanFitness    float64     `json:"mean_fitness"`
	Best           interface{} `json:"best,omitempty"`
	Converged      bool        `json:"converged"`
	Error          string      `json:"error,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	FinishedAt     *time.Time  `json:"finished_at,omitempty"`
}

// job tracks one engine run. Progress is fed by the engine's callback; the
// best candidate is read from the engine on demand.
type job struct {
	id      string
	problem string
	cancel  context.CancelFunc
	done    chan struct{}
	best    func() (interface{}, float64, bool)

	mu        sync.RWMutex
	status    Status
	progress  genetic.Progress
	seen      bool
	converged bool
	err       string
	created   time.Time
	started   time.Time
	finished  time.Time
}

func newJob(id, problem string, cancel context.CancelFunc) *job {
	return &job{
		id:      id,
		problem: problem,
		cancel:  cancel,
		done:    make(chan struct{}),
		status:  StatusPending,
		created: time.Now().UTC(),
	}
}

func (j *job) markRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusRunning
	j.started = time.Now().UTC()
}

func (j *job) observe(p genetic.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = p
	j.seen = true
}

// finish records the outcome and releases waiters.
func (j *job) finish(converged bool, err error) {
	j.mu.Lock()
	switch {
	case err == nil:
		j.status = StatusCompleted
		j.converged = converged
	case optimization.IsCancelled(err):
		j.status = StatusCancelled
	default:
		j.status = StatusFailed
		j.err = err.Error()
	}
	j.finished = time.Now().UTC()
	j.mu.Unlock()
	close(j.done)
}

func (j *job) snapshot() JobStatus {
	j.mu.RLock()
	st := JobStatus{
		ID:             j.id,
		Problem:        j.problem,
		Status:         j.status,
		Generation:     j.progress.Generation,
		PopulationSize: j.progress.PopulationSize,
		Evaluations:    j.progress.Evaluations,
		MeanFitness:    j.progress.MeanFitness,
		Converged:      j.converged,
		Error:          j.err,
		CreatedAt:      j.created,
	}
	if !j.started.IsZero() {
		started := j.started
		st.StartedAt = &started
	}
	if !j.finished.IsZero() {
		finished := j.finished
		st.FinishedAt = &finished
	}
	seen := j.seen
	j.mu.RUnlock()

	if seen && j.best != nil {
		if candidate, fitness, ok := j.best(); ok {
			st.Best = candidate
			st.BestFitness = &fitness
		}
	}
	return st
}

func (j *job) state() (Status, time.Time) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status, j.finished
}

// prepare builds the engine now, so configuration errors reach the caller,
// and returns the job body. The body waits for a job slot, then runs.
func prepare[T any](s *Server, ctx context.Context, j *job, strategies genetic.Strategies[T], cfg genetic.Config, opts []genetic.Option) (func(), error) {
	engine, err := genetic.NewEngine(strategies, cfg, opts...)
	if err != nil {
		return nil, err
	}
	j.best = func() (interface{}, float64, bool) {
		sol, ok := engine.Best()
		return sol.Candidate, sol.Fitness, ok
	}
	engine.OnProgress(j.observe)

	return func() {
		defer j.cancel()

		if err := s.slots.Acquire(ctx, 1); err != nil {
			j.finish(false, optimization.Cancelled(err))
			s.logJobEnd(j)
			return
		}
		defer s.slots.Release(1)

		j.markRunning()
		res, err := engine.Run(ctx)
		if err != nil {
			j.finish(false, err)
		} else {
			j.finish(res.Converged, nil)
		}
		s.logJobEnd(j)
	}, nil
}
