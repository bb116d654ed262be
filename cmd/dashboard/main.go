package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"ecommerce-dashboard/internal/analytics"
	"ecommerce-dashboard/internal/app"
	"ecommerce-dashboard/internal/config"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	configPath := flag.String("config", "config.yaml", "path to the yaml config")
	dataDir := flag.String("data", "", "read the CSV extracts from this directory instead of the configured source")
	mode := flag.String("mode", string(analytics.ModeTopProducts), "analysis to run (top_products or revenue_trend)")
	filter := flag.String("filter", string(analytics.FilterNone), "top_products filter (none, year, location or min_score)")
	year := flag.Int("year", 0, "year for -filter=year")
	location := flag.String("location", "", "customer state for -filter=location")
	minScore := flag.Int("min-score", 0, "minimum review score for -filter=min_score")
	dimension := flag.String("dimension", string(analytics.DimensionTime), "revenue_trend grouping (time, location or category)")
	granularity := flag.String("granularity", string(analytics.Yearly), "time bucket for -dimension=time (monthly or yearly)")
	all := flag.Bool("all", false, "run every selection the dashboard offers")
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
	logger := cfg.NewLogger(os.Stderr)

	ctx := context.Background()
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

	reqs := []analytics.Request{{
		Mode:           analytics.Mode(*mode),
		Filter:         analytics.ProductFilter(*filter),
		Year:           *year,
		Location:       *location,
		MinReviewScore: *minScore,
		Dimension:      analytics.Dimension(*dimension),
		Granularity:    analytics.Granularity(*granularity),
	}}
	if *all {
		reqs = analytics.Catalog(analytics.Options(lines))
	}

	results := make([]analytics.Result, 0, len(reqs))
	for _, req := range reqs {
		res, err := analytics.Dispatch(lines, req)
		if err != nil {
			logger.Error("invalid selection", "error", err)
			exitCode = 1
			return
		}
		if res.Empty() {
			logger.Warn("no data for selection", "mode", res.Request.Mode, "filter", res.Request.Filter)
		}
		results = append(results, res)
	}

	var out any = results
	if len(results) == 1 {
		out = results[0]
	}
	jsonOutput, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		logger.Error("failed to marshal result", "error", err)
		exitCode = 1
		return
	}
	fmt.Println(string(jsonOutput))
}
