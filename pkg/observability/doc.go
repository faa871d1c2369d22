// Package observability provides structured logging, Prometheus metrics and
// panic containment for the telemetry pipeline.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("provider", "plausible").Info("provider initialized")
//
// Development-mode diagnostics (dropped PII pairs, provider fallbacks) are
// logged at Warn level only when the pipeline runs with Debug enabled; they
// are never emitted in production.
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.EventsTotal.WithLabelValues("pageview", "delivered").Inc()
//
// # Panic Containment
//
// Telemetry must never break the host page. Every host callback entry point
// wraps itself:
//
//	defer observability.RecoverPanic(logger, "scroll evaluation")
//
// # Related Packages
//
//   - pkg/config: pipeline configuration, including log level
//   - pkg/monitoring: error reports built on top of this package
package observability
