package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"jsonload/internal/config"
	"jsonload/internal/metrics"

	// register every dialect; the config names which one to use.
	_ "jsonload/internal/warehouse/all"
)

// main loads the pipeline config, optionally installs a metrics backend, and
// runs (or dry-runs) the pipeline.
func main() {
	var (
		cfgPath string
		envFile string
		lint    bool
		dryRun  bool
	)

	flag.StringVar(&cfgPath, "config", "pipeline.json", "pipeline config JSON path")
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file with secrets; ignored when missing")
	flag.BoolVar(&lint, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "run every step in validate mode; nothing is committed")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fatalf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fatalf("load %s: %v", envFile, err)
	}

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Error("configuration is invalid", zap.String("config", cfgPath))
		os.Exit(1)
	}
	if lint {
		log.Info("configuration is valid", zap.String("config", cfgPath))
		return
	}

	if flush := setupMetrics(log, p); flush != nil {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	if err := run(ctx, log, p, dryRun); err != nil {
		log.Error("pipeline failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
	log.Info("completed",
		zap.Bool("dry_run", dryRun),
		zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// setupMetrics installs the configured backend and returns its flush
// function, or nil when metrics are disabled.
func setupMetrics(log *zap.Logger, p config.Pipeline) func() {
	b, err := newMetricsBackend(p)
	if err != nil {
		log.Warn("metrics disabled", zap.Error(err))
		return nil
	}
	if b == nil {
		log.Debug("metrics disabled", zap.String("backend", p.Metrics.Backend))
		return nil
	}
	metrics.SetBackend(b)
	log.Info("metrics enabled", zap.String("backend", p.Metrics.Backend))
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush", zap.Error(err))
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
