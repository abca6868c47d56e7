package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anamnesis-pool/anamnesis-analyze/anam"
	"github.com/anamnesis-pool/anamnesis-analyze/anam/trace"
)

var (
	// CLI flags shared by all subcommands
	logLevel   string // Log verbosity level
	configPath string // Optional analysis YAML file

	// CLI flags for the analysis itself
	numSlots     int      // Pool capacity; sets H_max = log2(num_slots)
	filePatterns []string // Glob patterns for per-thread trace files
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "anamnesis-analyze",
	Short: "Slot-reuse entropy analysis for Anamnesis pool traces",
	Long: "Merge per-thread binary traces from the Anamnesis memory pool, compute operation " +
		"statistics and the normalized entropy of slot reuse, and compare it with k* = 1/(2 ln 2).",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// resolveConfig loads --config when given and lets explicitly set flags win.
func resolveConfig(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	if configPath != "" {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("num-slots") {
		cfg.NumSlots = numSlots
	}
	if flags.Changed("pattern") {
		cfg.Patterns = filePatterns
	}
	if flags.Changed("levels") {
		cfg.Levels = sweepLevels
	}
	if flags.Changed("level-dir") {
		cfg.LevelDir = levelDir
	}
	if flags.Changed("jobs") {
		cfg.Jobs = jobs
	}
	if flags.Changed("export") {
		cfg.Export.Path = exportPath
	}
	if flags.Changed("export-format") {
		cfg.Export.Format = exportFormat
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.NumSlots <= 1 {
		logrus.Warnf("num_slots=%d: H_max is not positive, H_norm will be reported as 0", cfg.NumSlots)
	}
	return cfg, nil
}

// newAnalyzer builds the pipeline for cfg.
func newAnalyzer(cfg Config) *anam.Analyzer {
	a := anam.NewAnalyzer(cfg.NumSlots)
	a.Discoverer = trace.GlobDiscoverer{Patterns: cfg.Patterns}
	return a
}

// Execute runs the CLI root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to an analysis YAML config file")
	rootCmd.PersistentFlags().IntVar(&numSlots, "num-slots", anam.DefaultNumSlots, "Number of slots in the pool")
	rootCmd.PersistentFlags().StringSliceVar(&filePatterns, "pattern", nil, "Trace file glob pattern (default trace_thread_*.bin and trace_thread_*.bin.sz)")
}
