package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	historyPath := flag.String("history", "", "SQLite database for window history (empty = disabled)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (empty = disabled)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshots")
	savePath := flag.String("save", "", "Persist the final state to this file")
	loadPath := flag.String("load", "", "Resume from a persisted state file")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	runID := uuid.NewString()

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		logger.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()

	history, err := telemetry.OpenHistory(*historyPath, runID)
	if err != nil {
		logger.Error("failed to open history", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	var metrics *telemetry.Metrics
	var metricsSrv *http.Server
	if *metricsAddr != "" {
		metrics, err = telemetry.NewMetrics(prometheus.NewRegistry())
		if err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
		metricsSrv = serveMetrics(*metricsAddr, metrics, logger)
	}

	r, err := newRunner(runnerOptions{
		RunID:       runID,
		Seed:        rngSeed,
		Config:      cfg,
		LoadPath:    *loadPath,
		SavePath:    *savePath,
		SnapshotDir: *snapshotDir,
		LogStats:    *logStats,
		Logger:      logger,
		Output:      output,
		History:     history,
		Metrics:     metrics,
	})
	if err != nil {
		logger.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runErr := r.run(ctx, *maxTicks)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		output.Close()
		history.Close()
		os.Exit(1)
	}
}

func serveMetrics(addr string, metrics *telemetry.Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server exited", "error", err)
		}
	}()

	logger.Info("serving Prometheus metrics", "addr", addr)
	return srv
}
