// Package event defines the telemetry event model shared by the pipeline:
// the event envelope handed to providers, the fixed event names the facade
// emits, and the Core Web Vitals snapshot produced by the vitals collector.
//
// Events carry a flat property map only - no nesting - so that the PII
// sanitizer can reason about every value it forwards.
package event
