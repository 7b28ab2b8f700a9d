// Package bench drives randomized read load against a running audit server
// and reports throughput and latency percentiles.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/groblegark/audittrail/internal/client"
)

// Defaults for one benchmark run.
const (
	DefaultTotal       = 100
	DefaultWarmup      = 10
	DefaultConcurrency = 5
)

// Options configures one benchmark run. Total and Concurrency fall back to
// the defaults above when unset; a zero Warmup skips the warmup phase.
type Options struct {
	Total       int
	Warmup      int
	Concurrency int
}

// Report is the aggregate outcome of the measured requests.
type Report struct {
	Count       int     `json:"count"`
	Concurrency int     `json:"concurrency"`
	RPS         float64 `json:"rps"`
	P50MS       float64 `json:"p50_ms"`
	P90MS       float64 `json:"p90_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	AvgMS       float64 `json:"avg_ms"`
}

// Runner issues queries drawn by a Picker through an AuditClient. Warmup
// requests run sequentially and are excluded from the report; measured
// requests are spread across a fixed-size worker pool.
type Runner struct {
	client client.AuditClient
	picker *Picker
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger falls back to slog.Default.
func NewRunner(c client.AuditClient, picker *Picker, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{client: c, picker: picker, logger: logger}
}

// Run executes the benchmark. Any failed request aborts the run; a report
// over partial results would understate tail latency.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Total <= 0 {
		opts.Total = DefaultTotal
	}
	if opts.Warmup < 0 {
		opts.Warmup = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	// Drawing every request up front keeps the sequence deterministic
	// regardless of worker scheduling.
	requests := make([]*client.ListEventsRequest, opts.Warmup+opts.Total)
	for i := range requests {
		requests[i] = r.picker.Pick()
	}

	r.logger.Info("starting benchmark",
		"total", opts.Total,
		"warmup", opts.Warmup,
		"concurrency", opts.Concurrency)

	for i, req := range requests[:opts.Warmup] {
		if _, err := r.client.ListEvents(ctx, req); err != nil {
			return nil, fmt.Errorf("warmup request %d: %w", i+1, err)
		}
	}

	measured := requests[opts.Warmup:]
	latencies := make([]float64, len(measured))
	var next atomic.Int64

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Concurrency; w++ {
		g.Go(func() error {
			for {
				i := next.Add(1) - 1
				if i >= int64(len(measured)) {
					return nil
				}
				t0 := time.Now()
				if _, err := r.client.ListEvents(gctx, measured[i]); err != nil {
					return fmt.Errorf("request %d: %w", i+1, err)
				}
				latencies[i] = time.Since(t0).Seconds() * 1000
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	report := &Report{
		Count:       opts.Total,
		Concurrency: opts.Concurrency,
		RPS:         float64(opts.Total) / elapsed.Seconds(),
		P50MS:       Percentile(latencies, 0.50),
		P90MS:       Percentile(latencies, 0.90),
		P95MS:       Percentile(latencies, 0.95),
		P99MS:       Percentile(latencies, 0.99),
		AvgMS:       mean(latencies),
	}
	r.logger.Info("benchmark complete",
		"rps", report.RPS,
		"p95_ms", report.P95MS,
		"p99_ms", report.P99MS)
	return report, nil
}

// Percentile returns the p-quantile of xs (p in [0, 1]) by linear
// interpolation between closest ranks. An empty input yields 0.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	k := float64(len(sorted)-1) * p
	f := int(k)
	c := f + 1
	if c >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[f] + (sorted[c]-sorted[f])*(k-float64(f))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
