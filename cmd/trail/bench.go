package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/groblegark/audittrail/internal/bench"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: "data",
	Short:   "Benchmark the list-events endpoint",
	Long: `Benchmark the list-events endpoint with randomized queries over
the last seven days: mixed filters, page positions and page sizes.

Warmup requests run sequentially first and are excluded from the
report; the first of them absorbs the snapshot build.`,
	Example: `  trail bench
  trail bench --requests 1000 --concurrency 20
  trail bench --seed 42 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		total, _ := cmd.Flags().GetInt("requests")
		warmup, _ := cmd.Flags().GetInt("warmup")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		seedVal, _ := cmd.Flags().GetInt64("seed")
		if seedVal == 0 {
			seedVal = time.Now().UnixNano()
		}

		runner := bench.NewRunner(trailClient, bench.NewPicker(seedVal), newLogger("info"))
		report, err := runner.Run(context.Background(), bench.Options{
			Total:       total,
			Warmup:      warmup,
			Concurrency: concurrency,
		})
		if err != nil {
			return fmt.Errorf("benchmarking: %w", err)
		}

		if jsonOutput {
			return printJSON(report)
		}
		printReportTable(report)
		return nil
	},
}

func init() {
	benchCmd.Flags().Int("requests", bench.DefaultTotal, "measured requests")
	benchCmd.Flags().Int("warmup", bench.DefaultWarmup, "warmup requests (excluded from the report)")
	benchCmd.Flags().Int("concurrency", bench.DefaultConcurrency, "concurrent workers")
	benchCmd.Flags().Int64("seed", 0, "random seed for the query mix (0 = time-based)")
}
