package cmd

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anamnesis-pool/anamnesis-analyze/anam"
)

// analyzeCmd analyzes one trace directory
var analyzeCmd = &cobra.Command{
	Use:   "analyze <trace_dir>",
	Short: "Analyze the per-thread traces of one capture directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if err := runAnalyze(cmd.Context(), cfg, args[0], cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Analysis of %s failed: %v", args[0], err)
		}
	},
}

// runAnalyze runs one directory through the pipeline and prints its report.
// A directory without data is reported as such, not treated as a failure.
func runAnalyze(ctx context.Context, cfg Config, dir string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := newAnalyzer(cfg).AnalyzeDir(ctx, dir)
	if err != nil {
		return err
	}
	return anam.WriteReport(out, res)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
