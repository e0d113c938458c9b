// Package server exposes the evolution engine over HTTP: a small REST API
// and a JSON-RPC 2.0 endpoint for starting, monitoring and cancelling jobs.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"

	"github.com/copyleftdev/evolver/internal/config"
	apperrors "github.com/copyleftdev/evolver/internal/errors"
	"github.com/copyleftdev/evolver/internal/logging"
	"github.com/copyleftdev/evolver/internal/optimization/genetic"
	"github.com/copyleftdev/evolver/internal/optimization/problems/text"
	"github.com/copyleftdev/evolver/internal/optimization/problems/vector"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Server implements the HTTP and JSON-RPC server for the evolution service.
// It manages evolution jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg      *config.Config
	logger   Logger
	validate *validator.Validate
	metrics  *genetic.Metrics
	started  *prometheus.CounterVec
	slots    *semaphore.Weighted

	jobs   map[string]*job
	jobsMu sync.RWMutex // Protects jobs and closed
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a new server instance with the given config and logger.
// Engine and job metrics are registered on reg.
func NewServer(cfg *config.Config, logger Logger, reg prometheus.Registerer) *Server {
	slots := cfg.Jobs.MaxConcurrent
	if slots < 1 {
		slots = 1
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  genetic.NewMetrics(reg),
		started: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "evolver_jobs_started_total",
			Help: "Evolution jobs accepted by problem",
		}, []string{"problem"}),
		slots: semaphore.NewWeighted(int64(slots)),
		jobs:  make(map[string]*job),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	logger := s.logger.WithFields(nil)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evolve", apperrors.ErrorHandler(logger, s.handleEvolve))
		r.Get("/status/{id}", apperrors.ErrorHandler(logger, s.handleStatus))
		r.Delete("/evolution/{id}", apperrors.ErrorHandler(logger, s.handleCancel))
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// StartJob validates req, builds the engine and starts the run.
func (s *Server) StartJob(req StartRequest) (JobStatus, error) {
	if err := s.validate.Struct(req); err != nil {
		return JobStatus{}, apperrors.Wrap(err, "invalid request").WithStatus(http.StatusBadRequest)
	}

	cfg, opts, err := s.engineSettings(req)
	if err != nil {
		return JobStatus{}, err
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	j := newJob(id, req.Problem, cancel)

	zl := logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{"job_id": id}))
	opts = append(opts, genetic.WithLogger(zl), genetic.WithMetrics(s.metrics))

	var run func()
	switch req.Problem {
	case "text":
		var p *text.Problem
		if p, err = text.New(req.Target); err == nil {
			run, err = prepare(s, ctx, j, p.Strategies(), cfg, opts)
		}
	case "vector":
		var p *vector.Problem
		if p, err = vector.New(vector.Config{
			Objective: req.Objective,
			Bounds:    req.Bounds,
			Tolerance: req.Tolerance,
		}); err == nil {
			run, err = prepare(s, ctx, j, p.Strategies(), cfg, opts)
		}
	default:
		err = apperrors.BadRequest("unknown problem %q", req.Problem)
	}
	if err != nil {
		cancel()
		return JobStatus{}, err
	}

	s.reap(time.Now())

	// Registration and wg.Add share the lock with Close, so every started
	// job is visible to Close before its goroutine exists.
	s.jobsMu.Lock()
	if s.closed {
		s.jobsMu.Unlock()
		cancel()
		return JobStatus{}, apperrors.Errorf("server is shutting down").
			WithStatus(http.StatusServiceUnavailable)
	}
	s.jobs[id] = j
	s.wg.Add(1)
	s.jobsMu.Unlock()

	go func() {
		defer s.wg.Done()
		run()
	}()
	s.started.WithLabelValues(req.Problem).Inc()

	s.logger.Info("Evolution job started", map[string]interface{}{
		"job_id":          id,
		"problem":         req.Problem,
		"population_size": cfg.PopulationSize(),
	})
	return j.snapshot(), nil
}

// JobStatus returns the current state of the job with the given id.
func (s *Server) JobStatus(id string) (JobStatus, error) {
	j, ok := s.lookup(id)
	if !ok {
		return JobStatus{}, apperrors.NotFound("job %s not found", id)
	}
	return j.snapshot(), nil
}

// CancelJob requests cancellation of a pending or running job. The job
// reaches StatusCancelled once its run observes the request.
func (s *Server) CancelJob(id string) (JobStatus, error) {
	j, ok := s.lookup(id)
	if !ok {
		return JobStatus{}, apperrors.NotFound("job %s not found", id)
	}
	if status, _ := j.state(); status.Terminal() {
		return JobStatus{}, apperrors.Errorf("cannot cancel job with status: %s", status).
			WithStatus(http.StatusConflict)
	}
	j.cancel()

	s.logger.Info("Evolution job cancellation requested", map[string]interface{}{
		"job_id": id,
	})
	return j.snapshot(), nil
}

// Wait blocks until the job finishes or ctx is done.
func (s *Server) Wait(ctx context.Context, id string) (JobStatus, error) {
	j, ok := s.lookup(id)
	if !ok {
		return JobStatus{}, apperrors.NotFound("job %s not found", id)
	}
	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return j.snapshot(), ctx.Err()
	}
}

// Close cancels all jobs, refuses new ones and waits for the runs to
// return. It is safe to call more than once.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	s.closed = true
	for _, j := range s.jobs {
		j.cancel()
	}
	s.jobsMu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Server) lookup(id string) (*job, bool) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// reap drops finished jobs older than the retention period.
func (s *Server) reap(now time.Time) {
	retention := s.cfg.Jobs.Retention
	if retention <= 0 {
		return
	}
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	for id, j := range s.jobs {
		if status, finished := j.state(); status.Terminal() && now.Sub(finished) > retention {
			delete(s.jobs, id)
		}
	}
}

// evolution merges request overrides with the configured defaults. A
// configured generation limit also caps what a request may ask for.
func (s *Server) evolution(req StartRequest) config.Evolution {
	defaults := s.cfg.Evolution

	ev := defaults
	if req.PopulationSize != nil {
		ev.PopulationSize = *req.PopulationSize
	}
	if req.CrossoverProbability != nil {
		ev.CrossoverProbability = *req.CrossoverProbability
	}
	if req.MutationProbability != nil {
		ev.MutationProbability = *req.MutationProbability
	}
	if req.Workers != nil {
		ev.Workers = *req.Workers
	}
	if req.Seed != nil {
		ev.Seed = *req.Seed
	}
	if req.MaxGenerations != nil {
		ev.MaxGenerations = *req.MaxGenerations
		if limit := defaults.MaxGenerations; limit > 0 && (ev.MaxGenerations == 0 || ev.MaxGenerations > limit) {
			ev.MaxGenerations = limit
		}
	}
	return ev
}

func (s *Server) engineSettings(req StartRequest) (genetic.Config, []genetic.Option, error) {
	ev := s.evolution(req)
	cfg, err := ev.GeneticConfig()
	if err != nil {
		return genetic.Config{}, nil, err
	}
	return cfg, ev.Options(), nil
}

func (s *Server) logJobEnd(j *job) {
	st := j.snapshot()
	fields := map[string]interface{}{
		"job_id":      st.ID,
		"status":      string(st.Status),
		"generation":  st.Generation,
		"evaluations": st.Evaluations,
	}
	if st.BestFitness != nil {
		fields["best_fitness"] = *st.BestFitness
	}
	if st.Status == StatusFailed {
		fields["error"] = st.Error
		s.logger.Error("Evolution job failed", fields)
		return
	}
	s.logger.Info("Evolution job finished", fields)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleEvolve handles POST /api/v1/evolve.
func (s *Server) handleEvolve(w http.ResponseWriter, r *http.Request) error {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.Wrap(err, "invalid request body").WithStatus(http.StatusBadRequest)
	}

	st, err := s.StartJob(req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusAccepted, st)
	return nil
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) error {
	st, err := s.JobStatus(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, st)
	return nil
}

// handleCancel handles DELETE /api/v1/evolution/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) error {
	st, err := s.CancelJob(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, st)
	return nil
}
