package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"etlops/internal/config"
	"etlops/internal/logging"
	"etlops/internal/metrics"
	"etlops/internal/metrics/datadog"
	"etlops/internal/metrics/prompush"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "etlops/internal/storage/all"
)

// main loads the pipeline file, installs logging and metrics, and runs every
// input through the configured steps.
func main() {
	var (
		cfgPath  string
		envFile  string
		validate bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/sample.yaml", "pipeline config path (.json, .yaml or .yml)")
	flag.StringVar(&envFile, "env", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable debug logs")

	flag.Parse()

	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		fatalf("load %s: %v", envFile, err)
	}

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	if err := config.ApplyEnv(&p, os.Getenv); err != nil {
		fatalf("environment: %v", err)
	}
	if *verbose {
		p.Logging.Level = "debug"
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration is invalid: %s", cfgPath)
	}
	if validate {
		fmt.Fprintf(os.Stderr, "configuration is valid: %s\n", cfgPath)
		os.Exit(0)
	}

	logging.Setup(p.Logging.Level, p.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, uuid.NewString())
	log := logging.FromContext(ctx)

	flush := setupMetrics(p, log)
	defer flush()

	start := time.Now()
	sum, err := run(ctx, p)
	if err != nil {
		log.Error("run failed", "err", err, "elapsed", time.Since(start).Truncate(time.Millisecond))
		flush()
		os.Exit(1)
	}
	log.Info("run completed",
		"inputs", sum.Inputs,
		"read", sum.Read.Load(),
		"skipped", sum.Skipped.Load(),
		"written", sum.Written.Load(),
		"batches", sum.Batches.Load(),
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
}

// setupMetrics installs the configured backend and returns its flush func.
// A backend that fails to initialise leaves metrics disabled.
func setupMetrics(p config.Pipeline, log *slog.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch p.Metrics.Backend {
	case "prom", "pushgateway":
		b, err = prompush.NewBackend(p.Job, p.Metrics.Addr)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.Addr,
			Namespace:  "etlops.",
			GlobalTags: []string{"job:" + p.Job},
		})
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}
	default:
		log.Warn("unknown metrics backend; metrics disabled", "backend", p.Metrics.Backend)
		return func() {}
	}
	if err != nil {
		log.Warn("metrics backend init failed; metrics disabled", "backend", p.Metrics.Backend, "err", err)
		return func() {}
	}
	metrics.SetBackend(b)
	log.Info("metrics enabled", "backend", p.Metrics.Backend, "addr", p.Metrics.Addr)

	done := false
	return func() {
		if done {
			return
		}
		done = true
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", "err", err)
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
