package cmd

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anamnesis-pool/anamnesis-analyze/anam"
)

var (
	// CLI flags for multi-level sweeps
	sweepLevels  []int  // Contention levels (thread counts) to look for
	levelDir     string // Per-level directory pattern under the base directory
	jobs         int    // Levels analyzed concurrently
	exportPath   string // Where to write the (contention, H_norm) series
	exportFormat string // yaml, msgpack or csv
)

// sweepCmd analyzes one trace directory per contention level
var sweepCmd = &cobra.Command{
	Use:   "sweep <base_dir>",
	Short: "Analyze traces_c<N> directories across contention levels",
	Long: "Analyze one trace directory per contention level under base_dir (traces_c1, traces_c2, ...), " +
		"print a report per level and the entropy-vs-contention table, and optionally export the series for plotting.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if err := runSweep(cmd.Context(), cfg, args[0], cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Sweep of %s failed: %v", args[0], err)
		}
	},
}

// runSweep analyzes every configured level, prints the per-level reports in
// contention order, then the summary table, and publishes the series.
func runSweep(ctx context.Context, cfg Config, base string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a := newAnalyzer(cfg)
	points, results, err := a.Sweep(ctx, anam.LevelDirs(base, cfg.LevelDir, cfg.Levels), anam.SweepOptions{Jobs: cfg.Jobs})
	if err != nil {
		return err
	}
	for _, res := range results {
		if err := anam.WriteReport(out, res); err != nil {
			return err
		}
	}
	if err := anam.WriteSweepSummary(out, points); err != nil {
		return err
	}

	var sink anam.SeriesSink
	if cfg.Export.Path != "" {
		sink = anam.FileSink{Path: cfg.Export.Path, Format: anam.ExportFormat(cfg.Export.Format)}
	}
	if err := anam.PublishSeries(sink, cfg.NumSlots, points); err != nil {
		return err
	}
	if sink != nil && len(points) > 0 {
		logrus.Infof("Series written to %s", cfg.Export.Path)
	}
	return nil
}

func init() {
	sweepCmd.Flags().IntSliceVar(&sweepLevels, "levels", anam.DefaultLevels, "Comma-separated contention levels")
	sweepCmd.Flags().StringVar(&levelDir, "level-dir", anam.DefaultLevelDir, "Per-level directory pattern; its single %d receives the level")
	sweepCmd.Flags().IntVar(&jobs, "jobs", 0, "Levels analyzed concurrently (0 = GOMAXPROCS)")
	sweepCmd.Flags().StringVar(&exportPath, "export", "", "Write the (contention, H_norm) series to this file")
	sweepCmd.Flags().StringVar(&exportFormat, "export-format", string(anam.FormatYAML), "Series encoding: yaml, msgpack or csv")

	rootCmd.AddCommand(sweepCmd)
}
