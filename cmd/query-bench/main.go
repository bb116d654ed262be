package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ecommerce-dashboard/internal/analytics"
	"ecommerce-dashboard/internal/app"
	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/runner"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	configPath := flag.String("config", "config.yaml", "path to the yaml config")
	dataDir := flag.String("data", "", "read the CSV extracts from this directory instead of the configured source")
	concurrency := flag.Int("concurrency", 0, "number of concurrent workers (default bench_settings.default_concurrency)")
	duration := flag.Duration("duration", 0, "duration of the test (default bench_settings.default_duration)")
	mode := flag.String("mode", "", "only replay selections of this mode (top_products or revenue_trend)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		exitCode = 1
		return
	}
	if *dataDir != "" {
		cfg.Source = config.Source{Kind: config.SourceCSV, DataDir: *dataDir}
	}
	if *concurrency == 0 {
		*concurrency = cfg.BenchSettings.DefaultConcurrency
	}
	if *duration == 0 {
		*duration = cfg.BenchSettings.DefaultDuration
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	memo, closeSource, err := app.OpenCache(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("failed to open data source", "error", err)
		exitCode = 1
		return
	}
	defer closeSource()

	lines, err := memo.Lines(ctx)
	if err != nil {
		logger.Error("failed to build enriched table", "error", err)
		exitCode = 1
		return
	}

	var reqs []analytics.Request
	for _, req := range analytics.Catalog(analytics.Options(lines)) {
		if *mode == "" || string(req.Mode) == *mode {
			reqs = append(reqs, req)
		}
	}

	fmt.Fprintf(os.Stderr, "Running %d selections on %s with %d workers for %s...\n", len(reqs), cfg.Source.Kind, *concurrency, *duration)

	result, err := runner.Run(ctx, memo, reqs, *concurrency, *duration, logger)
	if err != nil && result == nil {
		logger.Error("benchmark failed", "error", err)
		exitCode = 1
		return
	}
	if err != nil {
		logger.Warn("benchmark interrupted", "error", err)
	}

	jsonOutput, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to marshal result", "error", err)
		exitCode = 1
		return
	}
	fmt.Println(string(jsonOutput))
}
