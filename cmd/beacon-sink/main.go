// beacon-sink is a local development sink for the telemetry pipeline: it
// receives events over HTTP, applies the default PII policy, and keeps the
// most recent events in memory for inspection.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/quietmetrics/beacon/pkg/observability"
	"github.com/quietmetrics/beacon/pkg/sanitize"
)

const version = "0.1.0"

func main() {
	addr := flag.String("addr", ":8077", "Address to listen on")
	capacity := flag.Int("capacity", 1000, "Maximum number of events retained in memory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	rulesPath := flag.String("sanitizer-rules", "", "Optional YAML file overriding the PII detection rules")
	flag.Parse()

	logger := observability.NewLogger(parseLevel(*logLevel), os.Stdout).WithComponent("beacon-sink")

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	sanitizer, watcher, err := buildSanitizer(*rulesPath, logger, metrics)
	if err != nil {
		logger.WithError(err).Error("failed to load sanitizer rules")
		os.Exit(1)
	}

	checker := observability.NewHealthChecker(version)
	if *rulesPath != "" {
		// Readiness degrades when the rule file the watcher depends on
		// disappears.
		checker.AddCheck("sanitizer_rules", func(context.Context) error {
			_, err := os.Stat(*rulesPath)
			return err
		})
	}
	store := NewEventStore(*capacity)
	sink := newSinkServer(store, sanitizer, logger, metrics)

	server := &http.Server{
		Addr:         *addr,
		Handler:      sink.router(checker, registry),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, server, 15*time.Second)
	if watcher != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return watcher.Close()
		})
	}

	var g errgroup.Group
	g.Go(func() error {
		logger.WithField("addr", *addr).Info("dev sink listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("dev sink exited with error")
		os.Exit(1)
	}
}

// buildSanitizer mirrors the client pipeline's rule loading: defaults unless
// a rule file is given, with hot reload while the sink runs.
func buildSanitizer(path string, logger *observability.Logger, metrics *observability.Metrics) (*sanitize.Sanitizer, *sanitize.RuleWatcher, error) {
	opts := []sanitize.Option{
		sanitize.WithLogger(logger),
		sanitize.WithMetrics(metrics),
		sanitize.WithDevMode(true),
	}

	if path == "" {
		return sanitize.New(sanitize.DefaultRules(), opts...), nil, nil
	}

	rules, err := sanitize.LoadRulesFile(path)
	if err != nil {
		return nil, nil, err
	}
	s := sanitize.New(rules, opts...)
	watcher, err := sanitize.WatchRules(path, s, logger)
	if err != nil {
		logger.WithError(err).Warn("rule hot reload unavailable")
		return s, nil, nil
	}
	return s, watcher, nil
}

func parseLevel(level string) observability.LogLevel {
	switch level {
	case "debug":
		return observability.DebugLevel
	case "warn":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}
