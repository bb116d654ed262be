package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"ecommerce-dashboard/internal/analytics"
	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/pipeline"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// maxLatency is the largest latency the histograms track, in microseconds.
const maxLatency = 10_000_000

// Bounds of the pause after a failed fetch of the lines.
const (
	minBackoff = time.Millisecond
	maxBackoff = 100 * time.Millisecond
)

type Result struct {
	Operations     int64         `json:"operations"`
	Errors         int64         `json:"errors"`
	Throughput     float64       `json:"throughput"`
	P95Latency     time.Duration `json:"p95_latency"`
	P99Latency     time.Duration `json:"p99_latency"`
	AverageLatency time.Duration `json:"average_latency"`
	ErrorRate      float64       `json:"error_rate"`
	TotalTime      time.Duration `json:"total_time"`
	// DataIntegrity is false if any repetition of a request returned rows
	// different from its first run.
	DataIntegrity bool `json:"data_integrity"`
}

// LinesProvider is satisfied by *cache.Memo.
type LinesProvider interface {
	Lines(ctx context.Context) ([]pipeline.EnrichedLine, error)
}

// Run replays reqs round-robin from concurrency workers for duration. Each
// operation fetches the current lines and dispatches one request. A worker
// backs off after a failed fetch and stops once the data is unavailable; the
// partial result is then returned with that error. A cancelled ctx stops the
// run early and returns the partial result together with ctx.Err().
func Run(ctx context.Context, lines LinesProvider, reqs []analytics.Request, concurrency int, duration time.Duration, logger *slog.Logger) (*Result, error) {
	if len(reqs) == 0 {
		return nil, errors.New("no requests to run")
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", duration)
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseline, err := lines.Lines(ctx)
	if err != nil {
		return nil, err
	}
	expected := make([][]analytics.Row, len(reqs))
	for i, req := range reqs {
		res, err := analytics.Dispatch(baseline, req)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		expected[i] = res.Rows
	}

	var (
		wg         sync.WaitGroup
		operations atomic.Int64
		failures   atomic.Int64
		mismatched atomic.Bool
		stopErr    atomic.Pointer[error]
	)
	histograms := make([]*hdrhistogram.Histogram, concurrency)
	start := time.Now()

	for w := 0; w < concurrency; w++ {
		histogram := hdrhistogram.New(1, maxLatency, 3)
		histograms[w] = histogram
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			var backoff time.Duration
			for i := worker; time.Since(start) < duration && ctx.Err() == nil; i++ {
				idx := i % len(reqs)
				opStart := time.Now()
				current, err := lines.Lines(ctx)
				if err != nil {
					failures.Add(1)
					if errors.Is(err, dataset.ErrDataUnavailable) {
						stopErr.CompareAndSwap(nil, &err)
						logger.Warn("bench worker stopped",
							slog.Int("worker", worker),
							slog.String("error", err.Error()),
						)
						return
					}
					backoff = min(max(2*backoff, minBackoff), maxBackoff)
					pause(ctx, min(backoff, duration-time.Since(start)))
					continue
				}
				backoff = 0
				res, err := analytics.Dispatch(current, reqs[idx])
				if err != nil {
					failures.Add(1)
					continue
				}
				latency := time.Since(opStart).Microseconds()
				histogram.RecordValue(min(max(latency, 1), maxLatency))
				operations.Add(1)
				if !slices.EqualFunc(res.Rows, expected[idx], analytics.Row.Equal) {
					mismatched.Store(true)
				}
			}
		}(w)
	}
	wg.Wait()

	merged := hdrhistogram.New(1, maxLatency, 3)
	for _, h := range histograms {
		merged.Merge(h)
	}

	result := &Result{
		Operations:    operations.Load(),
		Errors:        failures.Load(),
		TotalTime:     time.Since(start),
		DataIntegrity: !mismatched.Load(),
	}
	result.Throughput = float64(result.Operations) / result.TotalTime.Seconds()
	if total := result.Operations + result.Errors; total > 0 {
		result.ErrorRate = float64(result.Errors) / float64(total)
	}
	result.AverageLatency = time.Duration(merged.Mean()) * time.Microsecond
	result.P95Latency = time.Duration(merged.ValueAtQuantile(95)) * time.Microsecond
	result.P99Latency = time.Duration(merged.ValueAtQuantile(99)) * time.Microsecond

	logger.Info("query bench finished",
		slog.Int("requests", len(reqs)),
		slog.Int("concurrency", concurrency),
		slog.Int64("operations", result.Operations),
		slog.Int64("errors", result.Errors),
		slog.Duration("p99", result.P99Latency),
		slog.Bool("data_integrity", result.DataIntegrity),
	)
	if p := stopErr.Load(); p != nil {
		return result, errors.Join(*p, ctx.Err())
	}
	return result, ctx.Err()
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
