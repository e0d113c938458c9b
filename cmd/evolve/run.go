package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/evolver/internal/config"
	"github.com/copyleftdev/evolver/internal/logging"
	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/genetic"
	"github.com/copyleftdev/evolver/internal/optimization/problems/text"
	"github.com/copyleftdev/evolver/internal/optimization/problems/vector"
)

// runOptions holds the flags shared by every subcommand.
type runOptions struct {
	population     int
	crossover      float64
	mutation       float64
	workers        int
	seed           uint32
	maxGenerations int
	every          int
	logLevel       string
	timeout        time.Duration
}

func (o *runOptions) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.IntVarP(&o.population, "population", "p", genetic.DefaultPopulationSize, "population size")
	f.Float64Var(&o.crossover, "crossover", genetic.DefaultCrossoverProbability, "crossover probability")
	f.Float64Var(&o.mutation, "mutation", genetic.DefaultMutationProbability, "mutation probability")
	f.IntVarP(&o.workers, "workers", "w", 0, "worker goroutines (0 = GOMAXPROCS)")
	f.Uint32Var(&o.seed, "seed", 0, "seed for a reproducible run (0 = random)")
	f.IntVar(&o.maxGenerations, "max-generations", 10000, "stop after this many generations (0 = no limit)")
	f.IntVar(&o.every, "every", 10, "print progress every N generations (0 = only the result)")
	f.StringVar(&o.logLevel, "log-level", "warn", "engine log level")
	f.DurationVar(&o.timeout, "timeout", 0, "abort the run after this long (0 = no timeout)")
}

// evolution merges configured defaults with the flags the user set.
func (o *runOptions) evolution(cmd *cobra.Command) (config.Evolution, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Evolution{}, err
	}
	ev := cfg.Evolution

	flags := cmd.Flags()
	if flags.Changed("population") {
		ev.PopulationSize = o.population
	}
	if flags.Changed("crossover") {
		ev.CrossoverProbability = o.crossover
	}
	if flags.Changed("mutation") {
		ev.MutationProbability = o.mutation
	}
	if flags.Changed("workers") {
		ev.Workers = o.workers
	}
	if flags.Changed("seed") {
		ev.Seed = o.seed
	}
	if flags.Changed("max-generations") {
		ev.MaxGenerations = o.maxGenerations
	}
	return ev, nil
}

func newTextCmd(opts *runOptions) *cobra.Command {
	var alphabet string

	cmd := &cobra.Command{
		Use:   "text TARGET",
		Short: "Evolve a string until it equals TARGET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := text.NewWithAlphabet(args[0], alphabet)
			if err != nil {
				return err
			}
			return run(cmd, opts, p.Strategies(), func(s string) string { return strconv.Quote(s) })
		},
	}
	cmd.Flags().StringVar(&alphabet, "alphabet", text.DefaultAlphabet, "symbols candidates are built from")
	return cmd
}

func newVectorCmd(opts *runOptions) *cobra.Command {
	var (
		objective string
		bounds    []string
		tolerance float64
		scale     float64
	)

	cmd := &cobra.Command{
		Use:   "vector",
		Short: "Minimize a benchmark function over a box",
		Example: `  evolve vector --objective rastrigin --bounds=-5.12:5.12 --bounds=-5.12:5.12
  evolve vector --objective sphere --bounds -5:5,-5:5 --tolerance 1e-4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			box, err := parseBounds(bounds)
			if err != nil {
				return err
			}
			p, err := vector.New(vector.Config{
				Objective:     objective,
				Bounds:        box,
				MutationScale: scale,
				Tolerance:     tolerance,
			})
			if err != nil {
				return err
			}
			return run(cmd, opts, p.Strategies(), func(x []float64) string {
				parts := make([]string, len(x))
				for i, v := range x {
					parts[i] = strconv.FormatFloat(v, 'g', 6, 64)
				}
				return "[" + strings.Join(parts, " ") + "]"
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&objective, "objective", "sphere", "objective: "+strings.Join(vector.Objectives(), ", "))
	f.StringSliceVar(&bounds, "bounds", []string{"-5:5", "-5:5"}, "MIN:MAX per dimension")
	f.Float64Var(&tolerance, "tolerance", vector.DefaultTolerance, "stop once the cost is at most this")
	f.Float64Var(&scale, "mutation-scale", vector.DefaultMutationScale, "mutation std-dev as a fraction of each range")
	return cmd
}

// parseBounds reads "MIN:MAX" pairs.
func parseBounds(pairs []string) ([][2]float64, error) {
	box := make([][2]float64, 0, len(pairs))
	for _, pair := range pairs {
		lo, hi, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("bounds %q: want MIN:MAX", pair)
		}
		min, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return nil, fmt.Errorf("bounds %q: %w", pair, err)
		}
		max, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return nil, fmt.Errorf("bounds %q: %w", pair, err)
		}
		box = append(box, [2]float64{min, max})
	}
	return box, nil
}

// run builds an engine for strategies, streams progress to the command
// output and prints the result.
func run[T any](cmd *cobra.Command, opts *runOptions, strategies genetic.Strategies[T], format func(T) string) error {
	ev, err := opts.evolution(cmd)
	if err != nil {
		return err
	}
	cfg, err := ev.GeneticConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(&logging.Config{Level: opts.logLevel, Format: "text", Output: "stderr"})
	if err != nil {
		return err
	}
	engineOpts := append(ev.Options(), genetic.WithLogger(logging.NewZapLogger(logger)))

	engine, err := genetic.NewEngine(strategies, cfg, engineOpts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	events, unsubscribe := engine.Subscribe(64)
	defer unsubscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for p := range events {
			if opts.every > 0 && p.Generation%opts.every == 0 {
				printProgress(out, p)
			}
		}
	}()

	res, err := engine.Run(ctx)
	<-printed
	if err != nil {
		if optimization.IsCancelled(err) {
			if best, ok := engine.Best(); ok {
				fmt.Fprintf(out, "cancelled; best so far %s (fitness %g)\n", format(best.Candidate), best.Fitness)
			}
		}
		return err
	}

	state := "converged"
	if !res.Converged {
		state = "stopped at generation limit"
	}
	fmt.Fprintf(out, "%s after %d generations, %d evaluations\n", state, res.Generations, res.Evaluations)
	fmt.Fprintf(out, "best %s (fitness %g)\n", format(res.Best.Candidate), res.Best.Fitness)
	return nil
}

func printProgress(out io.Writer, p genetic.Progress) {
	fmt.Fprintf(out, "gen %5d  size %5d  best %-10g mean %-10g sd %-10g evals %d\n",
		p.Generation, p.PopulationSize, p.BestFitness, p.MeanFitness, p.StdDevFitness, p.Evaluations)
}
