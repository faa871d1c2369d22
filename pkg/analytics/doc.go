// Package analytics is the orchestrating facade of the telemetry pipeline.
// An Analytics instance owns the provider adapter, the web-vitals collector
// and the scroll-depth tracker, and exposes the public event API.
//
// The instance is explicitly constructed and passed to call sites; there is
// no package-level singleton. A nil configuration yields a fully inert
// pipeline: every tracking call is a no-op, never an error.
package analytics
