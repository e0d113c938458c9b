// Command evolve runs the genetic engine locally on one of the built-in
// problems and prints its progress.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts runOptions

	rootCmd := &cobra.Command{
		Use:   "evolve",
		Short: "Run a genetic search on a built-in problem",
		Long: `evolve runs the generational genetic engine locally. Engine defaults
come from the GA_* environment variables and EVOLVER_CONFIG, and flags
override them.`,
		SilenceUsage: true,
	}
	opts.bind(rootCmd)

	rootCmd.AddCommand(newTextCmd(&opts), newVectorCmd(&opts))
	return rootCmd
}
