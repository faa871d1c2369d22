// Package provider defines the back-end contract for delivering sanitized
// telemetry events and implements the Plausible adapter.
//
// Provider selection is a closed set of kinds resolved once at startup.
// Only plausible is implemented; the other recognized kinds fail fast at
// resolution instead of silently dropping events.
package provider
