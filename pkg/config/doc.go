// Package config resolves the analytics pipeline configuration from a flat
// environment map, once, at startup.
//
// A nil *Config is a meaningful result: it disables the whole pipeline.
// Load returns nil (without error) when the site domain is absent, when
// BEACON_DISABLED is set, or when running outside production without the
// explicit BEACON_FORCE_ENABLE opt-in. A non-nil Config always carries a
// non-empty Domain.
package config
