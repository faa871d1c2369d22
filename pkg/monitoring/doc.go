// Package monitoring reports pipeline errors and blocked actions to a
// remote crash-reporting sink and, as self-telemetry, through the analytics
// event API. Reports carry structured, non-sensitive reason codes only;
// the remote sink is active only when a DSN is configured.
package monitoring
