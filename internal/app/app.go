// Package app wires configuration to a data source and the enriched-table
// cache shared by the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"ecommerce-dashboard/internal/cache"
	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/database"
	"ecommerce-dashboard/internal/dataset"
)

// OpenSource returns the source cfg points at. On success closeFn releases
// any database connection.
func OpenSource(ctx context.Context, cfg *config.Config) (src cache.Source, closeFn func() error, err error) {
	if cfg.Source.Kind == config.SourceCSV {
		return dataset.NewDirSource(cfg.Source.DataDir), func() error { return nil }, nil
	}

	dsn, err := cfg.Databases.DSN(cfg.Source.Kind)
	if err != nil {
		return nil, nil, err
	}
	driver, err := database.New(cfg.Source.Kind)
	if err != nil {
		return nil, nil, err
	}
	if md, ok := driver.(*database.MongoDriver); ok {
		md.Database = cfg.Databases.MongoDatabase
	}
	if err := driver.Connect(ctx, dsn); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", cfg.Source.Kind, err)
	}
	return driver, driver.Close, nil
}

// OpenCache opens the configured source and puts a Memo in front of it.
func OpenCache(ctx context.Context, cfg *config.Config, logger *slog.Logger, obs cache.Observer) (*cache.Memo, func() error, error) {
	src, closeFn, err := OpenSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("data source opened", slog.String("kind", cfg.Source.Kind))
	memo := cache.New(src, cfg.Pipeline, logger)
	if obs != nil {
		memo.WithObserver(obs)
	}
	return memo, closeFn, nil
}
