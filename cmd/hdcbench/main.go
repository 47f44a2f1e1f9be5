// Package main implements hdcbench, a small CLI that exercises the
// registry and the top-k similarity scan end to end. It is not a product
// surface; it exists for the same reason codeNERD ships a runnable entry
// point for every subsystem it carries.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	hdc "github.com/OutfinityResearch/hdc-algebra"
	"github.com/OutfinityResearch/hdc-algebra/registry"
)

var (
	verbose      bool
	strategyFlag string
	geometryFlag int
	countFlag    int
	kFlag        int
	seedFlag     int64

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hdcbench",
	Short: "hdcbench inspects and exercises the HDC algebra core",
	Long: `hdcbench is a small diagnostic CLI over the hdc-algebra module.

It reports each registered strategy's metadata and runs a synthetic
top-k-similar workload (a vocabulary of from-name vectors scanned against
one random query) to sanity-check the registry and algebra wiring without
writing a test.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("hdcbench: init logger: %w", err)
		}
		hdc.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "List every registered strategy and its metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(cmd.OutOrStdout())
	},
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Build N from-name vectors and run a top-k similarity scan against a random query",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBench(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	benchCmd.Flags().StringVarP(&strategyFlag, "strategy", "s", registry.DefaultStrategyID, "strategy id to exercise")
	benchCmd.Flags().IntVarP(&geometryFlag, "geometry", "g", 0, "vector geometry (0 = strategy default)")
	benchCmd.Flags().IntVarP(&countFlag, "count", "n", 32, "number of from-name vectors in the vocabulary")
	benchCmd.Flags().IntVarP(&kFlag, "k", "k", 5, "top-k results to print")
	benchCmd.Flags().Int64Var(&seedFlag, "seed", 0, "PRNG seed (0 = system entropy)")

	rootCmd.AddCommand(infoCmd, benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
