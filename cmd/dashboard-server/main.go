package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ecommerce-dashboard/internal/app"
	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/server"

	"github.com/gin-gonic/gin"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	configPath := flag.String("config", "config.yaml", "path to the yaml config")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		exitCode = 1
		return
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	memo, closeSource, err := app.OpenCache(ctx, cfg, logger, reg)
	if err != nil {
		logger.Error("failed to open data source", "error", err)
		exitCode = 1
		return
	}
	defer closeSource()

	// build once up front so a broken source fails the start, not the first request
	if _, err := memo.Snapshot(ctx); err != nil {
		logger.Error("failed to build enriched table", "error", err)
		exitCode = 1
		return
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(memo, reg, logger).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server started", "address", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", "error", err)
			exitCode = 1
			return
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
		exitCode = 1
	}
}
