package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/database"
	"ecommerce-dashboard/internal/dataset"
)

type summary struct {
	Database  string                `json:"database"`
	Rows      map[dataset.Table]int `json:"rows"`
	TotalTime time.Duration         `json:"total_time"`
	Verified  bool                  `json:"verified"`
}

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	configPath := flag.String("config", "config.yaml", "path to the yaml config")
	dataDir := flag.String("data", "", "directory with the CSV extracts (default source.data_dir)")
	dbType := flag.String("db", database.KindPostgres, "database type ("+strings.Join(database.Kinds, ", ")+")")
	dsn := flag.String("dsn", "", "connection string, overrides the configured one")
	verify := flag.Bool("verify", true, "load the dataset back and compare row counts")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		exitCode = 1
		return
	}
	logger := cfg.NewLogger(os.Stderr)

	if *dataDir == "" {
		*dataDir = cfg.Source.DataDir
	}
	if *dsn == "" {
		*dsn, err = cfg.Databases.DSN(*dbType)
		if err != nil {
			logger.Error("no connection string", "error", err)
			exitCode = 1
			return
		}
	}

	driver, err := database.New(*dbType)
	if err != nil {
		logger.Error("unsupported database", "error", err)
		exitCode = 1
		return
	}
	if md, ok := driver.(*database.MongoDriver); ok {
		md.Database = cfg.Databases.MongoDatabase
	}

	ctx := context.Background()
	start := time.Now()

	tables, err := dataset.LoadDir(ctx, *dataDir)
	if err != nil {
		logger.Error("failed to read extracts", "error", err)
		exitCode = 1
		return
	}

	if err := driver.Connect(ctx, *dsn); err != nil {
		logger.Error("failed to connect", "db", *dbType, "error", err)
		exitCode = 1
		return
	}
	defer driver.Close()

	// Reset the database to ensure a clean state before the import
	if err := driver.Reset(ctx); err != nil {
		logger.Error("failed to reset database", "error", err)
		exitCode = 1
		return
	}
	if err := driver.Import(ctx, tables); err != nil {
		logger.Error("failed to import dataset", "error", err)
		exitCode = 1
		return
	}

	out := summary{Database: *dbType, Rows: map[dataset.Table]int{}}
	for _, table := range dataset.AllTables {
		out.Rows[table] = tables.Len(table)
	}

	if *verify {
		back, err := driver.Load(ctx)
		if err != nil {
			logger.Error("failed to load dataset back", "error", err)
			exitCode = 1
			return
		}
		out.Verified = true
		for _, table := range dataset.AllTables {
			if back.Len(table) != tables.Len(table) {
				logger.Error("row count mismatch", "table", table, "imported", tables.Len(table), "loaded", back.Len(table))
				out.Verified = false
				exitCode = 1
			}
		}
	}
	out.TotalTime = time.Since(start)

	jsonOutput, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		logger.Error("failed to marshal summary", "error", err)
		exitCode = 1
		return
	}
	fmt.Println(string(jsonOutput))
}
